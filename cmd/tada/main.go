package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/idilsaglam/tada/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A .env next to the binary can carry TADA_TOKEN and TADA_API_URL.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	os.Exit(cli.Execute(version))
}
