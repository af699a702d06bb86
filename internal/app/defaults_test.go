package app_test

import (
	"path/filepath"
	"testing"

	"certvault-go/internal/app"
)

func TestGetDefaults(t *testing.T) {
	t.Run("honors environment overrides", func(t *testing.T) {
		t.Setenv("CERTVAULT_CONFIG_PATH", "/tmp/custom.toml")
		t.Setenv("CERTVAULT_HOME", "/tmp/cv-home")

		defaults, err := app.GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/tmp/custom.toml" {
			t.Errorf("config_path = %q", defaults["config_path"])
		}
		if defaults["base_dir"] != "/tmp/cv-home" {
			t.Errorf("base_dir = %q", defaults["base_dir"])
		}
		if defaults["log_dir"] != filepath.Join("/tmp/cv-home", "log") {
			t.Errorf("log_dir = %q", defaults["log_dir"])
		}
	})

	t.Run("falls back to home-relative paths", func(t *testing.T) {
		t.Setenv("CERTVAULT_CONFIG_PATH", "")
		t.Setenv("CERTVAULT_HOME", "")
		t.Setenv("HOME", "/home/tester")

		defaults, err := app.GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/home/tester/.config/certvault.toml" {
			t.Errorf("config_path = %q", defaults["config_path"])
		}
		if defaults["base_dir"] != "/home/tester/.local/share/certvault" {
			t.Errorf("base_dir = %q", defaults["base_dir"])
		}
	})
}
