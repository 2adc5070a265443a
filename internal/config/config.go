package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type EnvConfig struct {
	UploadUrl   string
	UploadToken string

	NatsUrl         string
	SubmSqsUrl      string
	ResSqsUrl       string
	ToolCacheDir    string
	LfsMediaBaseUrl string
}

func ReadEnvConfig() *EnvConfig {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	return &EnvConfig{
		UploadUrl:       os.Getenv("COV_UPLOAD_URL"),
		UploadToken:     os.Getenv("COV_UPLOAD_TOKEN"),
		NatsUrl:         os.Getenv("NATS_URL"),
		SubmSqsUrl:      os.Getenv("RUN_SQS_URL"),
		ResSqsUrl:       os.Getenv("RES_SQS_URL"),
		ToolCacheDir:    os.Getenv("TOOL_CACHE_DIR"),
		LfsMediaBaseUrl: os.Getenv("LFS_MEDIA_BASE_URL"),
	}
}

func (c *EnvConfig) Validate() error {
	if c.UploadUrl != "" && c.UploadToken == "" {
		return fmt.Errorf("COV_UPLOAD_TOKEN is required when COV_UPLOAD_URL is set")
	}
	return nil
}
