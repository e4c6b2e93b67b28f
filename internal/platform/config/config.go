// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, S3) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Mirava API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Cryptographic keys for session and identity signing
	SessionSecret  string `env:"SESSION_SECRET,required"`
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// Object Storage (Cloudflare R2 / S3-compatible)
	S3Endpoint      string `env:"S3_ENDPOINT,required"`
	S3Region        string `env:"S3_REGION"    envDefault:"auto"`
	S3AccessKey     string `env:"S3_ACCESS_KEY,required"`
	S3SecretKey     string `env:"S3_SECRET_KEY,required"`
	S3UseSSL        bool   `env:"S3_USE_SSL"   envDefault:"true"`
	S3StagingBucket string `env:"S3_STAGING_BUCKET" envDefault:"mirava-staging"`
	S3PublicBucket  string `env:"S3_PUBLIC_BUCKET"  envDefault:"mirava-public"`

	// Publication pipeline defaults. These seed the mutable publication
	// settings record; moderators can adjust the live values at runtime.
	UploadQuality       int `env:"PUBLISH_UPLOAD_QUALITY"      envDefault:"90"`
	PublishQuality      int `env:"PUBLISH_QUALITY"             envDefault:"80"`
	PublishMaxWidth     int `env:"PUBLISH_MAX_WIDTH"           envDefault:"1600"`
	PublishMaxHeight    int `env:"PUBLISH_MAX_HEIGHT"          envDefault:"2400"`
	RecompressThreshold int `env:"PUBLISH_RECOMPRESS_THRESHOLD" envDefault:"85"`
	PublishEffort       int `env:"PUBLISH_EFFORT"              envDefault:"4"`
	PublishWorkers      int `env:"PUBLISH_WORKERS"             envDefault:"3"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
