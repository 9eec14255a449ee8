package crypto

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestSystemKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvKey, "")

	k := NewKeyring()
	if _, err := k.GetKey(); !errors.Is(err, ErrNoKey) {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}

	if err := k.SetKey(""); err == nil {
		t.Fatal("expected error for empty password")
	}
	if err := k.SetKey("hunter2"); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	got, err := k.GetKey()
	if err != nil || got != "hunter2" {
		t.Fatalf("expected stored key, got %q %v", got, err)
	}

	t.Setenv(EnvKey, "from-env")
	if got, _ := k.GetKey(); got != "from-env" {
		t.Errorf("expected env override, got %q", got)
	}
	t.Setenv(EnvKey, "")

	if err := k.DeleteKey(); err != nil {
		t.Fatalf("DeleteKey failed: %v", err)
	}
	if err := k.DeleteKey(); !errors.Is(err, ErrNoKey) {
		t.Fatalf("expected ErrNoKey on second delete, got %v", err)
	}
}
