package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSettingsStoreDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewSettingsStore(path)

	settings, err := store.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if !strings.HasPrefix(settings.UserID, "user_") {
		t.Errorf("UserID = %q, want user_ prefix", settings.UserID)
	}
	if settings.MaxIterations != defaultMaxIterations {
		t.Errorf("MaxIterations = %d, want %d", settings.MaxIterations, defaultMaxIterations)
	}

	// The generated identity is persisted immediately
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not written: %v", err)
	}

	again, err := NewSettingsStore(path).Get()
	if err != nil {
		t.Fatalf("Get() from fresh store error = %v", err)
	}
	if again.UserID != settings.UserID {
		t.Errorf("UserID changed across loads: %q != %q", again.UserID, settings.UserID)
	}
}

func TestSettingsStoreSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store := NewSettingsStore(path)

	want := Settings{UserID: "user_fixed", ShowDebateDetails: true, MaxIterations: 5}
	if err := store.Set(want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := NewSettingsStore(path).Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestSettingsStoreRepairsPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"show_debate_details":true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := NewSettingsStore(path).Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if settings.UserID == "" {
		t.Error("UserID not generated for partial file")
	}
	if settings.MaxIterations != defaultMaxIterations {
		t.Errorf("MaxIterations = %d, want %d", settings.MaxIterations, defaultMaxIterations)
	}
	if !settings.ShowDebateDetails {
		t.Error("ShowDebateDetails not preserved")
	}
}
