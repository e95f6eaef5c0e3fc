package main

import (
	"errors"
	"log"

	"github.com/joho/godotenv"

	"github.com/camden-git/photoqueue/config"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}

	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			log.Fatalf("FATAL: %v", err)
		}
		log.Fatalf("Error: %v", err)
	}
}
