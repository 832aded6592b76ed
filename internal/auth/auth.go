package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/oukeidos/photomotion/internal/logger"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const (
	serviceName = "photomotion"
	account     = "gemini-api-key"
)

// Environment variables consulted, in order, when env lookup is allowed.
var envVars = []string{"GEMINI_API_KEY", "API_KEY"}

const (
	SourceSession  = "Session"
	SourceKeychain = "Keychain"
	SourceEnv      = "Environment Variable"
)

// ErrNoCredential is returned when no source holds a usable key.
var ErrNoCredential = errors.New("no API key selected; run `photomotion env setup` or select a key in the browser")

// GetKey retrieves the API key and the name of the source it came from.
// If allowEnv is false, environment variables are ignored.
func GetKey(allowEnv bool) (string, string) {
	key, err := keyring.Get(serviceName, account)
	if err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), SourceKeychain
	}
	if allowEnv {
		if key, ok := GetEnvKey(); ok {
			return key, SourceEnv
		}
	}
	return "", ""
}

// SaveKey saves the key to the OS keychain.
func SaveKey(key string) error {
	return keyring.Set(serviceName, account, strings.TrimSpace(key))
}

// DeleteKey removes the key from the OS keychain.
func DeleteKey() error {
	return keyring.Delete(serviceName, account)
}

// GetStatus reports whether the keychain holds a key.
func GetStatus() bool {
	key, err := keyring.Get(serviceName, account)
	return err == nil && strings.TrimSpace(key) != ""
}

// GetEnvKey retrieves the key from environment variables only.
func GetEnvKey() (string, bool) {
	for _, name := range envVars {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key, true
		}
	}
	return "", false
}

// PromptForAPIKey reads a key from the terminal without echo.
func PromptForAPIKey(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

type submittedKeyCtx struct{}

// WithSubmittedKey attaches a key entered in the browser to ctx.
// OpenCredentialSelector uses it instead of prompting on the terminal.
func WithSubmittedKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, submittedKeyCtx{}, strings.TrimSpace(key))
}

func SubmittedKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(submittedKeyCtx{}).(string)
	return key, ok
}

// Keyring resolves the credential on every call from the session key, the OS
// keychain and optionally the environment. Nothing is cached between calls.
type Keyring struct {
	AllowEnv bool
	// Prompt reads a key interactively. Defaults to PromptForAPIKey.
	Prompt func(label string) (string, error)

	mu         sync.RWMutex
	sessionKey string
}

func NewKeyring(allowEnv bool) *Keyring {
	return &Keyring{AllowEnv: allowEnv, Prompt: PromptForAPIKey}
}

// Credential returns the current key. Called at every remote-call boundary.
func (k *Keyring) Credential(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, _ := k.lookup()
	if key == "" {
		return "", ErrNoCredential
	}
	return key, nil
}

// Source names where the current key would come from, or "" if none.
func (k *Keyring) Source() string {
	_, source := k.lookup()
	return source
}

func (k *Keyring) lookup() (string, string) {
	k.mu.RLock()
	session := k.sessionKey
	k.mu.RUnlock()
	if session != "" {
		return session, SourceSession
	}
	return GetKey(k.AllowEnv)
}

// HasUsableCredential reports whether a key has been selected.
// Keychain backend failures are returned so callers can log them.
func (k *Keyring) HasUsableCredential(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k.mu.RLock()
	session := k.sessionKey
	k.mu.RUnlock()
	if session != "" {
		return true, nil
	}
	key, err := keyring.Get(serviceName, account)
	if err == nil && strings.TrimSpace(key) != "" {
		return true, nil
	}
	if k.AllowEnv {
		if _, ok := GetEnvKey(); ok {
			return true, nil
		}
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return false, fmt.Errorf("keychain lookup failed: %w", err)
	}
	return false, nil
}

// OpenCredentialSelector obtains a key from the browser submission on ctx or
// the terminal prompt and stores it. When the keychain is unavailable the key
// is kept for this process only.
func (k *Keyring) OpenCredentialSelector(ctx context.Context) error {
	key, ok := SubmittedKey(ctx)
	if !ok {
		prompt := k.Prompt
		if prompt == nil {
			prompt = PromptForAPIKey
		}
		var err error
		key, err = prompt("Gemini API Key (paid Google Cloud project): ")
		if err != nil {
			return fmt.Errorf("error reading API key: %w", err)
		}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key is required")
	}

	k.mu.Lock()
	k.sessionKey = key
	k.mu.Unlock()

	if err := SaveKey(key); err != nil {
		logger.Warn("Keychain unavailable; keeping API key for this session only", "error", err)
	}
	return nil
}

// Forget drops the session key. The keychain entry is untouched.
func (k *Keyring) Forget() {
	k.mu.Lock()
	k.sessionKey = ""
	k.mu.Unlock()
}
