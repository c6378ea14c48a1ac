package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghodss/yaml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shelfeng/skiaicoach/internal/api"
	"github.com/shelfeng/skiaicoach/internal/options"
	"github.com/shelfeng/skiaicoach/internal/storage"
	"github.com/shelfeng/skiaicoach/pkg/check"
)

const defaultConfigPath = "/etc/skiaicoach/config.yaml"

func newRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the skiaicoach server",
		Args:  cobra.NoArgs,
	}
	registerRunFlags(cmd, v)

	cmd.RunE = func(*cobra.Command, []string) error {
		// Load a .env next to the binary first, the way the application has
		// always been configured; on App Service the same pairs arrive as
		// app settings in the environment.
		if err := godotenv.Load(); err == nil {
			log.Debug("loaded settings from .env")
		}

		// Viper holds default and flag values at this point.
		opts, err := unmarshalOptions(v)
		if err != nil {
			return err
		}

		// Merge the config file under the flags.
		bs, err := readConfigFile(opts.ConfigFile)
		if err != nil {
			return err
		}
		if bs != nil {
			opts, err = mergeConfigIntoViper(v, bs)
			if err != nil {
				return err
			}
		}

		opts.ApplyEnv()
		opts.Resolve()

		if err := check.Validate(opts); err != nil {
			return errors.Wrap(err, "command-line arguments specify illegal configuration")
		}

		if err := runServer(context.Background(), opts); err != nil {
			log.Fatal(err)
		}
		return nil
	}

	return cmd
}

func registerRunFlags(cmd *cobra.Command, v *viper.Viper) {
	defaults := options.DefaultOptions()
	flags := cmd.Flags()
	bind := func(key, flagName string) {
		if err := v.BindPFlag(key, flags.Lookup(flagName)); err != nil {
			panic(err)
		}
	}

	flags.String("config-file", defaults.ConfigFile, "path to the YAML configuration file")
	bind("config_file", "config-file")
	flags.String("bind-ip", defaults.BindIP, "IP address to listen on")
	bind("bind_ip", "bind-ip")
	flags.Int("bind-port", defaults.BindPort, "port to listen on")
	bind("bind_port", "bind-port")
	flags.String("upload-dir", defaults.UploadDir, "directory for uploaded videos")
	bind("upload_dir", "upload-dir")
	flags.String("model", defaults.ModelName, "default analysis model")
	bind("model_name", "model")
	flags.Int("frames", defaults.FramesToExtract, "number of frames to extract per video")
	bind("frames_to_extract", "frames")
	flags.String("ffmpeg", defaults.FFmpegBinary, "ffmpeg binary used for frame extraction")
	bind("ffmpeg_binary", "ffmpeg")
	flags.Bool("use-azure-storage", defaults.Storage.UseAzure, "store uploads in Azure Blob Storage")
	bind("storage.use_azure", "use-azure-storage")
	flags.Bool("debug", defaults.Debug, "enable the debug endpoints")
	bind("debug", "debug")

	// Settings without flags still need their defaults in viper so a config
	// file can override them.
	v.SetDefault("temp_dir", defaults.TempDir)
	v.SetDefault("frames_dir", defaults.FramesDir)
	v.SetDefault("allowed_extensions", defaults.AllowedExtensions)
	v.SetDefault("max_upload_bytes", defaults.MaxUploadBytes)
	v.SetDefault("storage.container", defaults.Storage.Container)
}

// unmarshalOptions converts the current viper settings into Options layered
// over the defaults.
func unmarshalOptions(v *viper.Viper) (*options.Options, error) {
	bs, err := json.Marshal(v.AllSettings())
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal configuration map into json bytes")
	}
	opts := options.DefaultOptions()
	if err = yaml.Unmarshal(bs, opts, yaml.DisallowUnknownFields); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal configuration")
	}
	return opts, nil
}

// mergeConfigIntoViper layers the YAML config file under any flag overrides
// and returns the updated options. Precedence is flag > config > default.
func mergeConfigIntoViper(v *viper.Viper, bs []byte) (*options.Options, error) {
	var configMap map[string]interface{}
	if err := yaml.Unmarshal(bs, &configMap); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal yaml configuration file")
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, errors.Wrap(err, "can't merge configuration to viper")
	}
	return unmarshalOptions(v)
}

func readConfigFile(configPath string) ([]byte, error) {
	isDefault := configPath == ""
	if isDefault {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); err != nil {
		if isDefault && os.IsNotExist(err) {
			log.Debugf("no configuration file at %s, skipping", configPath)
			return nil, nil
		}
		return nil, errors.Wrap(err, "error finding configuration file")
	}
	bs, err := os.ReadFile(configPath) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "error reading configuration file")
	}
	return bs, nil
}

// runServer starts the HTTP server and blocks until it crashes or the
// process receives a termination signal.
func runServer(parent context.Context, opts *options.Options) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printableConfig, err := opts.Printable()
	if err != nil {
		return err
	}
	log.Infof("server configuration: %s", printableConfig)

	files := storage.New(ctx, opts)
	server, err := api.NewServer(opts, files)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down server...")
		return server.Close()
	case err := <-errCh:
		return errors.Wrap(err, "server exited unexpectedly")
	}
}
