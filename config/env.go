package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env when present. Variables already set in the
// environment win.
func LoadEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		logg.WithField("module", "config").Warn("load .env: " + err.Error())
	}
}
