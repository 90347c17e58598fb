package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "decks")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nport: 9000\n")

	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "decks" || cfg.Port != 9000 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := writeFile(t, "name: x\n")
	var cfg sample
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadIfExists_MissingKeepsDefaults(t *testing.T) {
	cfg := sample{Name: "default", Port: 8080}
	found, err := LoadIfExists(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	if err != nil {
		t.Fatalf("LoadIfExists: %v", err)
	}
	if found {
		t.Error("found = true for missing file")
	}
	if cfg.Name != "default" {
		t.Errorf("name = %q", cfg.Name)
	}
}

func TestLoadIfExists_OverridesDefaults(t *testing.T) {
	path := writeFile(t, "port: 9100\n")
	cfg := sample{Name: "default", Port: 8080}
	found, err := LoadIfExists(path, &cfg)
	if err != nil || !found {
		t.Fatalf("LoadIfExists = %v, %v", found, err)
	}
	if cfg.Port != 9100 || cfg.Name != "default" {
		t.Errorf("cfg = %+v", cfg)
	}
}
