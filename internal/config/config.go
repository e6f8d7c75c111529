// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads the mira CLI configuration.
//
// Settings come from three layers, later ones winning:
//
//  1. Built-in defaults (Default)
//  2. mira.yaml: the --config path, else ./mira.yaml, else ~/.mira/mira.yaml
//  3. Environment: MIRA_BACKEND_URL and MIRA_WEB_UI_URL, optionally loaded
//     from a .env file in the working directory
//
// A missing mira.yaml is not an error; an explicitly requested one is.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kraklabs/mira/pkg/delivery"
	"github.com/kraklabs/mira/pkg/ingestion"
)

// FileName is the configuration file name looked up in the working directory
// and in ~/.mira.
const FileName = ingestion.ConfigFileName

// Environment variables that override the file.
const (
	EnvBackendURL = "MIRA_BACKEND_URL"
	EnvWebUIURL   = "MIRA_WEB_UI_URL"
)

// Config is the full CLI configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Frontend  FrontendConfig  `yaml:"frontend"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Delivery  DeliveryConfig  `yaml:"delivery"`

	// Source is the file the configuration was read from, empty for defaults.
	Source string `yaml:"-"`
}

// BackendConfig points at the analysis backend.
type BackendConfig struct {
	APIURL string `yaml:"api_url"`
}

// FrontendConfig points at the web UI.
type FrontendConfig struct {
	WebUIURL string `yaml:"web_ui_url"`
}

// IngestionConfig tunes the walk and parse steps.
type IngestionConfig struct {
	Exclude      []string      `yaml:"exclude"`
	MaxFileSize  int64         `yaml:"max_file_size"`
	ParseTimeout time.Duration `yaml:"parse_timeout"`
}

// DeliveryConfig tunes the backend client.
type DeliveryConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	defaults := ingestion.DefaultConfig()
	return &Config{
		Backend:  BackendConfig{APIURL: "http://localhost:8080"},
		Frontend: FrontendConfig{WebUIURL: "http://localhost:3000"},
		Ingestion: IngestionConfig{
			MaxFileSize:  defaults.MaxFileSizeBytes,
			ParseTimeout: defaults.ParseTimeout,
		},
		Delivery: DeliveryConfig{
			Timeout: 30 * time.Second,
			Burst:   1,
		},
	}
}

// Load resolves the configuration. When path is empty the default locations
// are searched.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	file, err := locate(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		if err := cfg.readFile(file); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func locate(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file %s: %w", path, err)
		}
		return path, nil
	}

	candidates := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".mira", FileName))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Source = path
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.APIURL = v
	}
	if v := os.Getenv(EnvWebUIURL); v != "" {
		c.Frontend.WebUIURL = v
	}
}

// Validate checks the values that would otherwise fail late, mid-run.
func (c *Config) Validate() error {
	if err := checkHTTPURL("backend.api_url", c.Backend.APIURL); err != nil {
		return err
	}
	if c.Ingestion.MaxFileSize < 0 {
		return fmt.Errorf("ingestion.max_file_size must not be negative")
	}
	if c.Ingestion.ParseTimeout < 0 {
		return fmt.Errorf("ingestion.parse_timeout must not be negative")
	}
	if c.Delivery.RateLimit < 0 {
		return fmt.Errorf("delivery.rate_limit must not be negative")
	}
	return nil
}

// WebUIURL returns the validated frontend.web_ui_url. Only the commands that
// open the web UI need it, so Validate does not check it.
func (c *Config) WebUIURL() (string, error) {
	if err := checkHTTPURL("frontend.web_ui_url", c.Frontend.WebUIURL); err != nil {
		return "", err
	}
	return c.Frontend.WebUIURL, nil
}

func checkHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: missing host in %q", key, raw)
	}
	return nil
}

// IngestionSettings converts the file settings to the pipeline's Config.
func (c *Config) IngestionSettings() ingestion.Config {
	return ingestion.Config{
		ExtraExcludes:    c.Ingestion.Exclude,
		MaxFileSizeBytes: c.Ingestion.MaxFileSize,
		ParseTimeout:     c.Ingestion.ParseTimeout,
	}
}

// ClientSettings converts the file settings to the backend client's config.
func (c *Config) ClientSettings() delivery.ClientConfig {
	return delivery.ClientConfig{
		BaseURL:   c.Backend.APIURL,
		Timeout:   c.Delivery.Timeout,
		RateLimit: c.Delivery.RateLimit,
		Burst:     c.Delivery.Burst,
	}
}
