// Package options contains the configurable options for the skiaicoach server
// and its Azure deployment commands.
package options

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/shelfeng/skiaicoach/internal/logger"
	"github.com/shelfeng/skiaicoach/pkg/check"
)

// Fixed identifiers of the production deployment target.
const (
	DefaultAppName       = "skiaicoach"
	DefaultResourceGroup = "rg-shelfeng-test-ai"
)

// DefaultOptions returns the default configuration of the server.
func DefaultOptions() *Options {
	return &Options{
		ConfigFile:        "",
		Log:               logger.DefaultConfig(),
		BindIP:            "0.0.0.0",
		BindPort:          5000,
		UploadDir:         "uploads",
		TempDir:           "temp",
		FramesDir:         "static/frames",
		AllowedExtensions: "mp4,mov,avi",
		MaxUploadBytes:    512 * 1024 * 1024,
		ModelName:         "gemini-3-flash-preview",
		FramesToExtract:   10,
		Storage: StorageOptions{
			Container: "skivideos",
		},
		Deploy: DeployOptions{
			AppName:        DefaultAppName,
			ResourceGroup:  DefaultResourceGroup,
			EnvFile:        ".env",
			SourceDir:      ".",
			Artifact:       "app.zip",
			Role:           "Storage Blob Data Contributor",
			StartupCommand: "gunicorn --bind=0.0.0.0 --timeout 600 app:app",
			AzBinary:       "az",
		},
	}
}

// Options stores all the configurable options for skiaicoach.
type Options struct {
	ConfigFile string `json:"config_file"`

	Log logger.Config `json:"log"`

	BindIP   string `json:"bind_ip"`
	BindPort int    `json:"bind_port"`

	UploadDir string `json:"upload_dir"`
	TempDir   string `json:"temp_dir"`
	FramesDir string `json:"frames_dir"`

	// AllowedExtensions is the comma-separated list of accepted video file
	// extensions, without dots.
	AllowedExtensions string `json:"allowed_extensions"`
	MaxUploadBytes    int64  `json:"max_upload_bytes"`

	ModelName       string `json:"model_name"`
	FramesToExtract int    `json:"frames_to_extract"`
	FFmpegBinary    string `json:"ffmpeg_binary"`

	Storage StorageOptions `json:"storage"`
	AI      AIOptions      `json:"ai"`
	Deploy  DeployOptions  `json:"deploy"`

	Debug bool `json:"debug"`
}

// StorageOptions configures where uploaded videos are kept.
type StorageOptions struct {
	UseAzure         bool   `json:"use_azure"`
	AccountURL       string `json:"account_url"`
	ConnectionString string `json:"connection_string"`
	Container        string `json:"container"`
}

// Validate implements the check.Validatable interface.
func (s StorageOptions) Validate() []error {
	if !s.UseAzure {
		return nil
	}
	return []error{
		check.True(s.AccountURL != "" || s.ConnectionString != "",
			"azure storage requires an account URL or a connection string"),
		check.NotEmpty(s.Container, "azure storage container must be set"),
	}
}

// AIOptions holds credentials and endpoints for the coaching models.
type AIOptions struct {
	GeminiAPIKey string `json:"gemini_api_key"`

	OpenAIAPIKey string `json:"openai_api_key"`

	AzureOpenAIEndpoint   string `json:"azure_openai_endpoint"`
	AzureOpenAIAPIKey     string `json:"azure_openai_api_key"`
	AzureOpenAIAPIVersion string `json:"azure_openai_api_version"`
}

// Resolve fills dynamic defaults for AI options.
func (a *AIOptions) Resolve() {
	if a.AzureOpenAIAPIVersion == "" {
		a.AzureOpenAIAPIVersion = "2024-12-01-preview"
	}
}

// DeployOptions configures the Azure App Service deployment commands.
type DeployOptions struct {
	AppName       string `json:"app_name"`
	ResourceGroup string `json:"resource_group"`

	// EnvFile is the dotenv file whose pairs become App Service app settings.
	EnvFile string `json:"env_file"`

	SourceDir string `json:"source_dir"`
	Artifact  string `json:"artifact"`

	// StorageScope is the full resource ID of the storage account granted to
	// the site's managed identity.
	StorageScope string `json:"storage_scope"`
	Role         string `json:"role"`

	StartupCommand string `json:"startup_command"`

	AzBinary string `json:"az_binary"`
}

// Validate implements the check.Validatable interface.
func (d DeployOptions) Validate() []error {
	return []error{
		check.NotEmpty(d.AppName, "deploy app name must be set"),
		check.NotEmpty(d.ResourceGroup, "deploy resource group must be set"),
		check.NotEmpty(d.AzBinary, "az binary must be set"),
	}
}

// Validate validates the state of the Options struct.
func (o *Options) Validate() []error {
	errs := []error{
		check.NotEmpty(o.BindIP, "bind IP must be provided"),
		check.GreaterThan(o.BindPort, 0, "bind port must be positive"),
		check.NotEmpty(o.UploadDir, "upload dir must be provided"),
		check.GreaterThan(o.FramesToExtract, 0, "frames to extract must be positive"),
		check.NotEmpty(o.ModelName, "model name must be provided"),
	}
	errs = append(errs, o.Log.Validate()...)
	errs = append(errs, o.Storage.Validate()...)
	errs = append(errs, o.Deploy.Validate()...)
	return errs
}

// Resolve fully resolves the configuration, handling dynamic defaults.
func (o *Options) Resolve() {
	if o.FFmpegBinary == "" {
		o.FFmpegBinary = "ffmpeg"
	}
	o.AI.Resolve()
}

// Extensions returns the allow-listed video extensions, lower-cased and
// without surrounding whitespace.
func (o *Options) Extensions() []string {
	parts := strings.Split(o.AllowedExtensions, ",")
	exts := make([]string, 0, len(parts))
	for _, p := range parts {
		if e := strings.ToLower(strings.TrimSpace(p)); e != "" {
			exts = append(exts, e)
		}
	}
	return exts
}

// Printable returns the configuration as JSON with secrets redacted.
func (o Options) Printable() ([]byte, error) {
	const hidden = "********"
	if o.AI.GeminiAPIKey != "" {
		o.AI.GeminiAPIKey = hidden
	}
	if o.AI.OpenAIAPIKey != "" {
		o.AI.OpenAIAPIKey = hidden
	}
	if o.AI.AzureOpenAIAPIKey != "" {
		o.AI.AzureOpenAIAPIKey = hidden
	}
	if o.Storage.ConnectionString != "" {
		o.Storage.ConnectionString = hidden
	}
	optJSON, err := json.Marshal(o)
	if err != nil {
		return nil, errors.Wrap(err, "unable to convert config to JSON")
	}
	return optJSON, nil
}
