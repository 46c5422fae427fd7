/*
 * Copyright (c) 2025 by the Manga Weaver authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

type memKeyring struct {
	entries map[string]string
}

func (m *memKeyring) Get(service, key string) (string, error) {
	v, ok := m.entries[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *memKeyring) Set(service, key, value string) error {
	if m.entries == nil {
		m.entries = map[string]string{}
	}
	m.entries[service+"/"+key] = value
	return nil
}

func (m *memKeyring) Delete(service, key string) error {
	delete(m.entries, service+"/"+key)
	return nil
}

func withTestEnv(t *testing.T) *memKeyring {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on HOME redirection")
	}
	t.Setenv("HOME", t.TempDir())
	mk := &memKeyring{}
	old := keyStore
	keyStore = mk
	t.Cleanup(func() { keyStore = old })
	return mk
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	withTestEnv(t)
	cfg, apiKey, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if apiKey != "" {
		t.Fatalf("expected no api key, got %q", apiKey)
	}
	want := Defaults()
	if cfg != want {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadMergesFile(t *testing.T) {
	withTestEnv(t)
	path, err := Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	body := "generation:\n  concurrency: 3\nstorage:\n  backend: SQLite\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Generation.Concurrency != 3 {
		t.Fatalf("concurrency = %d, want 3", cfg.Generation.Concurrency)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Fatalf("backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Generation.ImageDelayMs != 2000 {
		t.Fatalf("image delay = %d, want 2000", cfg.Generation.ImageDelayMs)
	}
	if cfg.Reader.DwellMs != 4000 {
		t.Fatalf("dwell = %d, want 4000", cfg.Reader.DwellMs)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	withTestEnv(t)
	path, _ := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("generation:\n  concurrency: 3\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvConcurrency, "5")
	t.Setenv(EnvLogFormat, "JSON")
	t.Setenv(EnvLogSource, "true")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Generation.Concurrency != 5 {
		t.Fatalf("concurrency = %d, want 5", cfg.Generation.Concurrency)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format = %q, want json", cfg.Logging.Format)
	}
	if !cfg.Logging.Source {
		t.Fatal("expected source logging enabled")
	}
}

func TestAPIKeyEnvBeatsKeyring(t *testing.T) {
	mk := withTestEnv(t)
	if err := mk.Set(keyringService, keyringAPIKey, "from-keyring"); err != nil {
		t.Fatalf("seed keyring: %v", err)
	}

	_, apiKey, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if apiKey != "from-keyring" {
		t.Fatalf("api key = %q, want from-keyring", apiKey)
	}

	t.Setenv(EnvAPIKey, "from-env")
	_, apiKey, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if apiKey != "from-env" {
		t.Fatalf("api key = %q, want from-env", apiKey)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	mk := withTestEnv(t)
	cfg := Defaults()
	cfg.Generation.Concurrency = 2
	cfg.Storage.Backend = "sqlite"
	if err := Save(cfg, "secret-key"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, apiKey, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Generation.Concurrency != 2 || got.Storage.Backend != "sqlite" {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if apiKey != "secret-key" {
		t.Fatalf("api key = %q, want secret-key", apiKey)
	}

	if err := ForgetAPIKey(); err != nil {
		t.Fatalf("ForgetAPIKey: %v", err)
	}
	if _, err := mk.Get(keyringService, keyringAPIKey); err == nil {
		t.Fatal("expected key removed from keyring")
	}
}
