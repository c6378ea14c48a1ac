package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gotest.tools/assert"
)

func newFlaggedViper(t *testing.T) (*cobra.Command, *viper.Viper) {
	t.Helper()
	v := viper.New()
	cmd := &cobra.Command{}
	registerRunFlags(cmd, v)
	return cmd, v
}

func TestUnmarshalOptionsDefaults(t *testing.T) {
	_, v := newFlaggedViper(t)

	opts, err := unmarshalOptions(v)
	assert.NilError(t, err)
	assert.Equal(t, opts.BindPort, 5000)
	assert.Equal(t, opts.ModelName, "gemini-3-flash-preview")
	assert.Equal(t, opts.Storage.Container, "skivideos")
}

func TestUnmarshalOptionsRejectsUnknownKey(t *testing.T) {
	_, v := newFlaggedViper(t)
	v.SetDefault("bogus_setting", 1)

	_, err := unmarshalOptions(v)
	assert.ErrorContains(t, err, "cannot unmarshal configuration")
}

func TestFlagsWinOverConfigFile(t *testing.T) {
	cmd, v := newFlaggedViper(t)
	assert.NilError(t, cmd.Flags().Set("bind-port", "9000"))

	config := []byte(`
bind_port: 7000
model_name: gpt-4o
storage:
  container: othervideos
`)
	opts, err := mergeConfigIntoViper(v, config)
	assert.NilError(t, err)

	// Flag beats config; config beats default.
	assert.Equal(t, opts.BindPort, 9000)
	assert.Equal(t, opts.ModelName, "gpt-4o")
	assert.Equal(t, opts.Storage.Container, "othervideos")
}

func TestMergeConfigRejectsUnknownKey(t *testing.T) {
	_, v := newFlaggedViper(t)

	_, err := mergeConfigIntoViper(v, []byte("bogus_setting: 1\n"))
	assert.ErrorContains(t, err, "cannot unmarshal configuration")
}

func TestReadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NilError(t, os.WriteFile(path, []byte("bind_port: 7000\n"), 0o600))

	bs, err := readConfigFile(path)
	assert.NilError(t, err)
	assert.Equal(t, string(bs), "bind_port: 7000\n")
}

func TestReadConfigFileMissingDefaultIsSkipped(t *testing.T) {
	bs, err := readConfigFile("")
	assert.NilError(t, err)
	assert.Assert(t, bs == nil)
}

func TestReadConfigFileMissingExplicitIsError(t *testing.T) {
	_, err := readConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "error finding configuration file")
}
