package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hugh/clubhub/internal/database/migrate"
	"github.com/hugh/clubhub/pkg/config"
	"github.com/hugh/clubhub/pkg/crypto"
	"github.com/hugh/clubhub/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	genKey := flag.Bool("genkey", false, "print a new ENCRYPTION_KEY and exit")
	flag.Parse()

	// Runs before config so a production deploy can bootstrap its key.
	if *genKey {
		if err := writeKey(os.Stdout); err != nil {
			slog.Error("failed to generate key", "error", err)
			os.Exit(1)
		}
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)

	if err := migrate.Run(cfg.Database.URL(), *direction); err != nil {
		logger.Error("migration failed", "direction", *direction, "error", err)
		os.Exit(1)
	}

	logger.Info("migration complete", "direction", *direction)
}

// writeKey prints a fresh age identity in ENCRYPTION_KEY form.
func writeKey(w io.Writer) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "ENCRYPTION_KEY=%s\n", key)
	return err
}
