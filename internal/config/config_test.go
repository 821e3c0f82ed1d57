package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Namespace != "daypulse:" {
		t.Errorf("expected default namespace, got %q", cfg.Namespace)
	}
	if cfg.Presenter != PresenterLog {
		t.Errorf("expected log presenter, got %q", cfg.Presenter)
	}
	if cfg.LocationTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.LocationTimeout)
	}
	if cfg.DBPath == "" {
		t.Error("expected a default db path")
	}
	if cfg.SyncInterval != 5*time.Second {
		t.Errorf("expected 5s sync interval, got %v", cfg.SyncInterval)
	}
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DAYPULSE_TIMEZONE", "Asia/Tokyo")
	t.Setenv("DAYPULSE_AD_WATCH_THRESHOLD", "5")
	t.Setenv("DAYPULSE_DB_PATH", "/tmp/x.db")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != "Asia/Tokyo" || cfg.AdWatchThreshold != 5 || cfg.DBPath != "/tmp/x.db" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DAYPULSE_NAMESPACE=test:\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("DAYPULSE_NAMESPACE") })
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Namespace != "test:" {
		t.Errorf("expected namespace from .env, got %q", cfg.Namespace)
	}
}

func TestValidate(t *testing.T) {
	base := Config{Presenter: PresenterLog, Namespace: "daypulse:"}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid: %v", err)
	}

	bad := base
	bad.Presenter = "carrier-pigeon"
	if bad.Validate() == nil {
		t.Error("expected unknown presenter error")
	}

	bad = base
	bad.Presenter = PresenterTelegram
	if bad.Validate() == nil {
		t.Error("expected telegram credentials error")
	}

	bad = base
	bad.Namespace = ""
	if bad.Validate() == nil {
		t.Error("expected namespace error")
	}

	bad = base
	bad.SyncInterval = -time.Second
	if bad.Validate() == nil {
		t.Error("expected sync interval error")
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
