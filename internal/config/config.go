/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user-editable YAML configuration with environment
// overrides. The model API key never touches the config file; it lives in
// the OS keychain.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

type GenerationConfig struct {
	// Endpoint is the base URL of the model gateway.
	Endpoint string `yaml:"endpoint"`
	// Model names the generation model requested from the gateway.
	Model string `yaml:"model"`
	// Concurrency is the number of parallel image generations.
	Concurrency int `yaml:"concurrency"`
	// ImageDelayMs spaces consecutive image generations.
	ImageDelayMs int `yaml:"image_delay_ms"`
	// DefaultPreset is applied to new stories when no preset is given.
	DefaultPreset string `yaml:"default_preset"`
}

type StorageConfig struct {
	// Backend selects the snapshot store: "file", "sqlite" or "postgres".
	Backend string `yaml:"backend"`
	// Path is the data directory (file backend) or database file (sqlite).
	Path string `yaml:"path"`
	// PostgresDSN is used when Backend is "postgres".
	PostgresDSN string `yaml:"postgres_dsn"`
	// AutosaveSec is the autosave interval in seconds.
	AutosaveSec int `yaml:"autosave_sec"`
}

type ReaderConfig struct {
	// DwellMs holds each panel during auto-play when narration is off.
	DwellMs int `yaml:"dwell_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	Generation    GenerationConfig `yaml:"generation"`
	Storage       StorageConfig    `yaml:"storage"`
	Reader        ReaderConfig     `yaml:"reader"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Generation:    GenerationConfig{Model: "manga-diffusion-xl", Concurrency: 1, ImageDelayMs: 2000, DefaultPreset: ""},
		Storage:       StorageConfig{Backend: "file", Path: "", AutosaveSec: 15},
		Reader:        ReaderConfig{DwellMs: 4000},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvEndpoint     = "MW_GEN_ENDPOINT"
	EnvModel        = "MW_GEN_MODEL"
	EnvConcurrency  = "MW_GEN_CONCURRENCY"
	EnvImageDelayMs = "MW_GEN_IMAGE_DELAY_MS"
	EnvPreset       = "MW_GEN_PRESET"
	EnvStoreBackend = "MW_STORE_BACKEND"
	EnvStorePath    = "MW_STORE_PATH"
	EnvPGDSN        = "MW_PG_DSN"
	EnvAPIKey       = "MW_API_KEY"
	EnvLogLevel     = "MW_LOG_LEVEL"
	EnvLogFormat    = "MW_LOG_FORMAT"
	EnvLogSource    = "MW_LOG_SOURCE"
	EnvLogFile      = "MW_LOG_FILE"
)

// Keyring service and key for the model API key.
const (
	keyringService = "MangaWeaver"
	keyringAPIKey  = "api_key"
)

// KeyStore abstracts the OS keyring so tests can stub it.
type KeyStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var keyStore KeyStore = osKeyring{}

// Path returns the per-user config file path.
func Path() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "MangaWeaver")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "MangaWeaver")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "mangaweaver")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file if present, applies defaults and environment
// overrides, and fetches the API key. MW_API_KEY wins over the keychain so
// scripted runs need no keyring at all.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)

	apiKey := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if apiKey == "" {
		apiKey, _ = keyStore.Get(keyringService, keyringAPIKey)
	}
	return cfg, apiKey, nil
}

// Save writes the config YAML and stores the API key in the keychain when
// non-empty.
func Save(cfg AppConfig, apiKey string) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if apiKey != "" {
		if err := keyStore.Set(keyringService, keyringAPIKey, apiKey); err != nil {
			return fmt.Errorf("store api key: %w", err)
		}
	}
	return nil
}

// ForgetAPIKey removes the stored key from the keychain.
func ForgetAPIKey() error {
	return keyStore.Delete(keyringService, keyringAPIKey)
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if strings.TrimSpace(src.Generation.Endpoint) != "" {
		dst.Generation.Endpoint = strings.TrimSpace(src.Generation.Endpoint)
	}
	if strings.TrimSpace(src.Generation.Model) != "" {
		dst.Generation.Model = strings.TrimSpace(src.Generation.Model)
	}
	if src.Generation.Concurrency > 0 {
		dst.Generation.Concurrency = src.Generation.Concurrency
	}
	if src.Generation.ImageDelayMs > 0 {
		dst.Generation.ImageDelayMs = src.Generation.ImageDelayMs
	}
	if strings.TrimSpace(src.Generation.DefaultPreset) != "" {
		dst.Generation.DefaultPreset = strings.TrimSpace(src.Generation.DefaultPreset)
	}
	if strings.TrimSpace(src.Storage.Backend) != "" {
		dst.Storage.Backend = strings.ToLower(strings.TrimSpace(src.Storage.Backend))
	}
	if strings.TrimSpace(src.Storage.Path) != "" {
		dst.Storage.Path = strings.TrimSpace(src.Storage.Path)
	}
	if strings.TrimSpace(src.Storage.PostgresDSN) != "" {
		dst.Storage.PostgresDSN = strings.TrimSpace(src.Storage.PostgresDSN)
	}
	if src.Storage.AutosaveSec > 0 {
		dst.Storage.AutosaveSec = src.Storage.AutosaveSec
	}
	if src.Reader.DwellMs > 0 {
		dst.Reader.DwellMs = src.Reader.DwellMs
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvEndpoint)); v != "" {
		cfg.Generation.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		cfg.Generation.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvConcurrency)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Generation.Concurrency = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvImageDelayMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Generation.ImageDelayMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPreset)); v != "" {
		cfg.Generation.DefaultPreset = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreBackend)); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGDSN)); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}
