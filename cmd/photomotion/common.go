package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/oukeidos/photomotion/internal/auth"
	"github.com/oukeidos/photomotion/internal/cleanup"
	"github.com/oukeidos/photomotion/internal/config"
	"github.com/oukeidos/photomotion/internal/files"
	"github.com/oukeidos/photomotion/internal/logger"
	"github.com/oukeidos/photomotion/internal/veo"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey

	// newVeoService builds the remote video service. Tests swap in a fake.
	newVeoService = func(client *http.Client) veo.Service {
		return &veo.GenaiService{HTTPClient: client}
	}
)

// commonOptions are flags shared by every command that talks to the API.
type commonOptions struct {
	envFile     string
	allowEnv    bool
	logFilePath string
	debug       bool
}

func addCommonFlags(cmd *cobra.Command, opts *commonOptions) {
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file with configuration (ignored when missing)")
	cmd.Flags().BoolVar(&opts.allowEnv, "allow-env", false, "Allow reading API key from environment variables")
	cmd.Flags().StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
}

// setupLogging initializes the global logger, optionally mirroring to a JSONL file.
func setupLogging(opts *commonOptions) error {
	logLevel := logger.LevelInfo
	if opts.debug {
		logLevel = logger.LevelDebug
	}
	var logFileW io.Writer
	if opts.logFilePath != "" {
		if err := files.RejectSymlinkPath(opts.logFilePath); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register("log file", f.Close)
		logFileW = f
	}
	logger.Init(logLevel, logFileW)
	return nil
}

// loadConfig reads the .env file and environment, then applies command-line
// overrides from opts.
func loadConfig(opts *commonOptions) (config.Config, error) {
	var envFiles []string
	if opts.envFile != "" {
		envFiles = append(envFiles, opts.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return config.Config{}, err
	}
	if opts.allowEnv {
		cfg.AllowEnv = true
	}
	return cfg, nil
}

// finalizeConfig clamps cfg, logs adjustments and validates it.
func finalizeConfig(cfg config.Config) (config.Config, error) {
	cfg, notes := cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config adjusted", "note", note)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newKeyring returns the credential source used by the session. Interactive
// prompting goes through promptForKey.
func newKeyring(allowEnv bool) *auth.Keyring {
	k := auth.NewKeyring(allowEnv)
	k.Prompt = promptForKey
	return k
}

// resolveAPIKey finds a key for one-shot commands that do not go through the
// session controller.
func resolveAPIKey(allowEnv bool) (string, string, error) {
	if key, source := getKey(false); key != "" {
		return key, source, nil
	}

	if allowEnv {
		if key, ok := getEnvKey(); ok {
			return key, auth.SourceEnv, nil
		}
	}

	if isTerminal(int(os.Stdin.Fd())) {
		key, err := promptForKey("Gemini API Key (press Enter to skip): ")
		if err != nil {
			return "", "", fmt.Errorf("error reading API key: %w", err)
		}
		if strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), "Terminal Prompt", nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", "", fmt.Errorf("no API key available (non-interactive shell); set keychain or use --allow-env")
	}
	if allowEnv {
		return "", "", fmt.Errorf("API key is required; not found in keychain or environment")
	}
	return "", "", fmt.Errorf("API key is required; not found in keychain (environment disabled by default; use --allow-env)")
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
