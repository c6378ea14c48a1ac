//nolint:exhaustruct

package options

import (
	"strings"
	"testing"

	"github.com/ghodss/yaml"
	"gotest.tools/assert"

	"github.com/shelfeng/skiaicoach/internal/logger"
)

func TestUnmarshalOptions(t *testing.T) {
	type optionsUnmarshaledTestCase struct {
		name     string
		raw      string
		expected Options
	}

	optionsTests := []optionsUnmarshaledTestCase{
		{
			name: "server_config_no_log",
			raw: `
bind_ip: 127.0.0.1
bind_port: 8000
model_name: gpt-4o
`,
			expected: Options{
				BindIP:    "127.0.0.1",
				BindPort:  8000,
				ModelName: "gpt-4o",
			},
		},
		{
			name: "server_config_with_log",
			raw: `
bind_port: 8000
log:
    level: debug
    color: false
`,
			expected: Options{
				BindPort: 8000,
				Log: logger.Config{
					Level: "debug",
					Color: false,
				},
			},
		},
		{
			name: "deploy_config",
			raw: `
deploy:
    app_name: skiaicoach
    resource_group: rg-shelfeng-test-ai
    artifact: app.zip
`,
			expected: Options{
				Deploy: DeployOptions{
					AppName:       "skiaicoach",
					ResourceGroup: "rg-shelfeng-test-ai",
					Artifact:      "app.zip",
				},
			},
		},
	}

	for _, test := range optionsTests {
		t.Run(test.name, func(t *testing.T) {
			unmarshaled := Options{}
			err := yaml.Unmarshal([]byte(test.raw), &unmarshaled, yaml.DisallowUnknownFields)
			assert.NilError(t, err)
			assert.DeepEqual(t, unmarshaled, test.expected)
		})
	}
}

func TestDefaultsValidate(t *testing.T) {
	opts := DefaultOptions()
	opts.Resolve()
	for _, err := range opts.Validate() {
		assert.NilError(t, err)
	}
	assert.Equal(t, opts.Deploy.AppName, "skiaicoach")
	assert.Equal(t, opts.Deploy.ResourceGroup, "rg-shelfeng-test-ai")
	assert.Equal(t, opts.Deploy.StartupCommand, "gunicorn --bind=0.0.0.0 --timeout 600 app:app")
	assert.Equal(t, opts.FFmpegBinary, "ffmpeg")
	assert.Equal(t, opts.AI.AzureOpenAIAPIVersion, "2024-12-01-preview")
}

func TestValidateRejectsBadConfig(t *testing.T) {
	opts := DefaultOptions()
	opts.BindPort = 0
	opts.Storage.UseAzure = true

	var found int
	for _, err := range opts.Validate() {
		if err != nil {
			found++
		}
	}
	assert.Assert(t, found >= 2)
}

func TestExtensions(t *testing.T) {
	opts := DefaultOptions()
	assert.DeepEqual(t, opts.Extensions(), []string{"mp4", "mov", "avi"})

	opts.AllowedExtensions = " MP4 ,, webm "
	assert.DeepEqual(t, opts.Extensions(), []string{"mp4", "webm"})
}

func TestPrintableRedactsSecrets(t *testing.T) {
	opts := DefaultOptions()
	opts.AI.OpenAIAPIKey = "sk-secret"
	opts.Storage.ConnectionString = "AccountKey=hunter2"

	out, err := opts.Printable()
	assert.NilError(t, err)
	assert.Assert(t, !strings.Contains(string(out), "sk-secret"))
	assert.Assert(t, !strings.Contains(string(out), "hunter2"))
	assert.Assert(t, strings.Contains(string(out), "********"))
}
