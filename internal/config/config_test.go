package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TIMEKEEPER_USER_ID", "alice")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %q", cfg.Database.Driver)
	}
	if cfg.User.ID != "alice" {
		t.Errorf("expected user from env, got %q", cfg.User.ID)
	}
	if cfg.DefaultRate() != nil {
		t.Errorf("expected no default rate")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
database:
  driver: bolt
  path: /tmp/tk.db
billing:
  default_hourly_rate: 150
  timezone: America/New_York
user:
  id: bob
  name: Bob
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TIMEKEEPER_BILLING_DEFAULT_HOURLY_RATE", "200")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := DatabaseConfig{Driver: DriverBolt, Path: "/tmp/tk.db"}
	if diff := cmp.Diff(want, cfg.Database); diff != "" {
		t.Errorf("database config mismatch (-want +got):\n%s", diff)
	}
	if rate := cfg.DefaultRate(); rate == nil || *rate != 200 {
		t.Errorf("expected env to override rate to 200, got %v", rate)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "America/New_York" {
		t.Errorf("unexpected location %v %v", loc, err)
	}
	if cfg.User.Name != "Bob" {
		t.Errorf("expected user name Bob, got %q", cfg.User.Name)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"driver", "database:\n  driver: postgres\n"},
		{"rate", "billing:\n  default_hourly_rate: -5\n"},
		{"timezone", "billing:\n  timezone: Mars/Olympus\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.User.ID = "carol"
	cfg.Billing.DefaultHourlyRate = 95.5

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TIMEKEEPER_USER_NAME=Dana\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TIMEKEEPER_USER_NAME", "")
	os.Unsetenv("TIMEKEEPER_USER_NAME")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if got := os.Getenv("TIMEKEEPER_USER_NAME"); got != "Dana" {
		t.Errorf("expected Dana, got %q", got)
	}
}
