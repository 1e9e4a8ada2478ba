package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads .env files from the working directory and the user's
// config directories. Variables already set in the environment win.
func LoadEnvFiles() error {
	envPaths := []string{
		"./.env",
	}

	if home, err := os.UserHomeDir(); err == nil {
		envPaths = append(envPaths,
			filepath.Join(home, ".healthrisk", ".env"),
			filepath.Join(home, ".config", "healthrisk", ".env"),
		)
	}

	var existing []string
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	return godotenv.Load(existing...)
}

// envAliases maps canonical keys to the well-known names checked after them.
var envAliases = map[string][]string{
	"HEALTHRISK_AI_API_KEY":              {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"HEALTHRISK_AI_MODEL":                {"GEMINI_MODEL"},
	"HEALTHRISK_SECURITY_JWT_SECRET":     {"HEALTHRISK_JWT_SECRET"},
	"HEALTHRISK_SECURITY_ADMIN_PASSWORD": {"HEALTHRISK_ADMIN_PASSWORD"},
	"HEALTHRISK_LOG_LEVEL":               {"LOG_LEVEL"},
}

// ResolveEnvWithAliases returns the canonical variable, or the first alias set.
func ResolveEnvWithAliases(canonicalKey string) string {
	if val := os.Getenv(canonicalKey); val != "" {
		return val
	}

	if aliases, ok := envAliases[canonicalKey]; ok {
		for _, alias := range aliases {
			if val := os.Getenv(alias); val != "" {
				return val
			}
		}
	}

	return ""
}
