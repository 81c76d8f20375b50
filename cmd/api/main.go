package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"dvbc-erp-api/internal"
	"dvbc-erp-api/internal/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load and validate configuration
	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Validate database connection string
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	// Create and start server
	srv := internal.NewServer(dsn, cfg)

	slog.Info("starting DVBC ERP API server",
		"jwt_issuer", cfg.JWTIssuer,
		"jwt_audience", cfg.JWTAudience,
		"jwt_expiry", cfg.JWTExpiry.String(),
		"addr", ":8080")

	log.Fatal(http.ListenAndServe(":8080", srv.Router))
}
