package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

func loadDotenv() {
	loadOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			// .env is optional, variables may come straight from the environment
			fmt.Fprintf(os.Stderr, "no .env file loaded: %v\n", err)
		}
	})
}

// Config returns a required environment variable and exits if it is not set.
func Config(envVar string) string {
	loadDotenv()

	envVarValue := os.Getenv(envVar)
	if envVarValue == "" {
		fmt.Fprintf(os.Stderr, "%s not set\n", envVar)
		os.Exit(1)
	}

	return envVarValue
}

// ConfigDefault returns an environment variable or the given fallback.
func ConfigDefault(envVar, fallback string) string {
	loadDotenv()

	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

// ConfigInt returns an integer environment variable or the given fallback.
func ConfigInt(envVar string, fallback int) int {
	loadDotenv()

	v := os.Getenv(envVar)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s is not an integer: %v\n", envVar, err)
		os.Exit(1)
	}
	return n
}
