package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
	}
}

func TestKeyring_CredentialFromKeychain(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	if err := SaveKey("  keychain-key  "); err != nil {
		t.Fatalf("SaveKey failed: %v", err)
	}

	k := NewKeyring(false)
	key, err := k.Credential(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "keychain-key" {
		t.Fatalf("expected trimmed keychain key, got %q", key)
	}
	if k.Source() != SourceKeychain {
		t.Fatalf("expected keychain source, got %q", k.Source())
	}
}

func TestKeyring_EnvFallbackOnlyWhenAllowed(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	t.Setenv("API_KEY", "env-key")

	if _, err := NewKeyring(false).Credential(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential with env disabled, got %v", err)
	}

	key, err := NewKeyring(true).Credential(context.Background())
	if err != nil || key != "env-key" {
		t.Fatalf("expected env key, got key=%q err=%v", key, err)
	}
}

func TestKeyring_CredentialIsResolvedEachCall(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	k := NewKeyring(false)

	if err := SaveKey("first"); err != nil {
		t.Fatalf("SaveKey failed: %v", err)
	}
	if key, _ := k.Credential(context.Background()); key != "first" {
		t.Fatalf("expected first key, got %q", key)
	}
	if err := SaveKey("second"); err != nil {
		t.Fatalf("SaveKey failed: %v", err)
	}
	if key, _ := k.Credential(context.Background()); key != "second" {
		t.Fatalf("expected rotated key, got %q", key)
	}
}

func TestKeyring_HasUsableCredential(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	k := NewKeyring(false)

	ok, err := k.HasUsableCredential(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no credential, got ok=%v err=%v", ok, err)
	}

	keyring.MockInitWithError(errors.New("dbus unavailable"))
	ok, err = k.HasUsableCredential(context.Background())
	if ok || err == nil {
		t.Fatalf("expected backend error surfaced, got ok=%v err=%v", ok, err)
	}
}

func TestKeyring_OpenCredentialSelector_SubmittedKey(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	k := NewKeyring(false)
	k.Prompt = func(string) (string, error) {
		t.Fatalf("terminal prompt must not run when a key was submitted")
		return "", nil
	}

	ctx := WithSubmittedKey(context.Background(), " browser-key ")
	if err := k.OpenCredentialSelector(ctx); err != nil {
		t.Fatalf("OpenCredentialSelector failed: %v", err)
	}
	if !GetStatus() {
		t.Fatalf("expected key saved to keychain")
	}
	if key, _ := k.Credential(context.Background()); key != "browser-key" {
		t.Fatalf("expected browser key, got %q", key)
	}
}

func TestKeyring_OpenCredentialSelector_Prompt(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	k := NewKeyring(false)
	k.Prompt = func(string) (string, error) { return "prompt-key", nil }

	if err := k.OpenCredentialSelector(context.Background()); err != nil {
		t.Fatalf("OpenCredentialSelector failed: %v", err)
	}
	if key, _ := k.Credential(context.Background()); key != "prompt-key" {
		t.Fatalf("expected prompt key, got %q", key)
	}
}

func TestKeyring_OpenCredentialSelector_EmptyKey(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	k := NewKeyring(false)
	k.Prompt = func(string) (string, error) { return "   ", nil }

	if err := k.OpenCredentialSelector(context.Background()); err == nil {
		t.Fatalf("expected empty key to be rejected")
	}
}

func TestKeyring_SessionKeyWhenKeychainFails(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keychain"))
	clearEnv(t)
	k := NewKeyring(false)

	ctx := WithSubmittedKey(context.Background(), "session-key")
	if err := k.OpenCredentialSelector(ctx); err != nil {
		t.Fatalf("expected session fallback, got %v", err)
	}
	key, err := k.Credential(context.Background())
	if err != nil || key != "session-key" {
		t.Fatalf("expected session key, got key=%q err=%v", key, err)
	}
	if k.Source() != SourceSession {
		t.Fatalf("expected session source, got %q", k.Source())
	}

	k.Forget()
	if _, err := k.Credential(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential after Forget, got %v", err)
	}
}
