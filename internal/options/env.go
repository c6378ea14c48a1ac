package options

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnv overrides options from the environment variable names the deployed
// application has always used. On App Service these arrive as app settings
// pushed from the .env file.
func (o *Options) ApplyEnv() {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("USE_AZURE_STORAGE"); ok {
		o.Storage.UseAzure = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	setString(&o.Storage.AccountURL, "AZURE_STORAGE_ACCOUNT_URL")
	setString(&o.Storage.ConnectionString, "AZURE_STORAGE_CONNECTION_STRING")
	setString(&o.Storage.Container, "AZURE_CONTAINER_NAME")

	setString(&o.UploadDir, "UPLOAD_FOLDER")
	setString(&o.AllowedExtensions, "ALLOWED_EXTENSIONS")
	setString(&o.ModelName, "AI_MODEL_NAME")
	if v, ok := os.LookupEnv("NUM_FRAMES_TO_EXTRACT"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			o.FramesToExtract = n
		}
	}

	setString(&o.AI.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&o.AI.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&o.AI.AzureOpenAIEndpoint, "AZURE_OPENAI_ENDPOINT")
	setString(&o.AI.AzureOpenAIAPIKey, "AZURE_OPENAI_API_KEY")
	setString(&o.AI.AzureOpenAIAPIVersion, "AZURE_OPENAI_API_VERSION")

	if v, ok := os.LookupEnv("PORT"); ok {
		if p, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && p > 0 {
			o.BindPort = p
		}
	}
}
