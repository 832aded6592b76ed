package main

import (
	"context"
	"fmt"
	"os"

	"github.com/oukeidos/photomotion/internal/apperrors"
	"github.com/oukeidos/photomotion/internal/gemini"
	"github.com/oukeidos/photomotion/internal/logger"
	"github.com/oukeidos/photomotion/internal/media"
	"github.com/oukeidos/photomotion/internal/server"
	"github.com/oukeidos/photomotion/internal/veo"
	"github.com/spf13/cobra"
)

type suggestClient interface {
	gemini.Suggester
	Close() error
}

var newSuggestClient = func(ctx context.Context, apiKey, model string) (suggestClient, error) {
	return gemini.NewClient(ctx, apiKey, model)
}

type suggestOptions struct {
	common commonOptions
	hint   string
	model  string
}

func newSuggestCmd() *cobra.Command {
	opts := suggestOptions{}
	cmd := &cobra.Command{
		Use:   "suggest <photo>",
		Short: "Suggest a motion prompt for a photo using Gemini",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(cmd, args[0], &opts)
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addCommonFlags(cmd, &opts.common)
	cmd.Flags().StringVar(&opts.hint, "hint", "", "Steer the suggestion, e.g. \"slow dolly in\"")
	cmd.Flags().StringVar(&opts.model, "model", "", "Gemini model name (overrides GEMINI_SUGGEST_MODEL)")
	return cmd
}

func runSuggest(cmd *cobra.Command, path string, opts *suggestOptions) error {
	if err := setupLogging(&opts.common); err != nil {
		return err
	}
	cfg, err := loadConfig(&opts.common)
	if err != nil {
		return err
	}
	if opts.model != "" {
		cfg.SuggestModel = opts.model
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open photo: %w", err)
	}
	defer f.Close()
	img, err := media.Stage(f, "")
	if err != nil {
		return err
	}
	if !media.IsImage(img.MIMEType) {
		return fmt.Errorf("unsupported file type %q: please choose an image", img.MIMEType)
	}
	data, err := img.Bytes()
	if err != nil {
		return err
	}

	key, source, err := resolveAPIKey(cfg.AllowEnv)
	if err != nil {
		return err
	}
	logger.Info("Using API Key", "source", source)

	ctx, stop := signalContext()
	defer stop()
	suggest := suggestWith(veo.StaticCredential(key), cfg.SuggestModel)
	text, err := suggest(ctx, gemini.SuggestRequest{Image: data, MIMEType: img.MIMEType, Hint: opts.hint})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

// suggestWith returns a suggestion func that opens a Gemini client per call
// with the credential current at that moment.
func suggestWith(creds veo.CredentialSource, model string) server.SuggestFunc {
	return func(ctx context.Context, req gemini.SuggestRequest) (string, error) {
		key, err := creds.Credential(ctx)
		if err != nil {
			return "", apperrors.Credential(err)
		}
		client, err := newSuggestClient(ctx, key, model)
		if err != nil {
			return "", fmt.Errorf("failed to create Gemini client: %w", err)
		}
		defer client.Close()
		return client.Suggest(ctx, req)
	}
}
