package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const defaultPort = "10000"

type Config struct {
	Port string

	// LINE channel access token used by the reply client.
	LineToken    string `validate:"required"`
	LineEndpoint string

	// Workflow endpoint may be absent: submission then fails fast with a
	// configuration-missing result instead of failing the boot.
	WorkflowEndpoint string
	WorkflowToken    string

	// Empty allow-list means no one may issue admin commands.
	AdminUserIDs []string

	FAQPath string
}

// Load reads configuration from the environment, after a best-effort .env
// load for local runs.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("config.Load: godotenv.Load: %v", err)
	}

	config := Config{
		Port:             getenv("PORT", defaultPort),
		LineToken:        os.Getenv("LINE_TOKEN"),
		LineEndpoint:     os.Getenv("LINE_REPLY_ENDPOINT"),
		WorkflowEndpoint: os.Getenv("WORKFLOW_ENDPOINT"),
		WorkflowToken:    os.Getenv("WORKFLOW_TOKEN"),
		AdminUserIDs:     splitList(os.Getenv("ADMIN_USER_IDS")),
		FAQPath:          os.Getenv("FAQ_CSV_PATH"),
	}

	if err := validator.New().Struct(&config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")

	list := make([]string, 0, len(parts))

	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}

	return list
}
