package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/oukeidos/photomotion/internal/cleanup"
	"github.com/oukeidos/photomotion/internal/httpclient"
	"github.com/oukeidos/photomotion/internal/logger"
	"github.com/oukeidos/photomotion/internal/media"
	"github.com/oukeidos/photomotion/internal/server"
	"github.com/oukeidos/photomotion/internal/session"
	"github.com/oukeidos/photomotion/internal/veo"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	common    commonOptions
	addr      string
	model     string
	noSuggest bool
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the browser app on a local address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &opts)
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addCommonFlags(cmd, &opts.common)
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides PHOTOMOTION_ADDR)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Veo model name (overrides VEO_MODEL)")
	cmd.Flags().BoolVar(&opts.noSuggest, "no-suggest", false, "Disable Gemini prompt suggestions")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	if err := setupLogging(&opts.common); err != nil {
		return err
	}
	cfg, err := loadConfig(&opts.common)
	if err != nil {
		return err
	}
	if strings.TrimSpace(opts.addr) != "" {
		cfg.Addr = opts.addr
	}
	if strings.TrimSpace(opts.model) != "" {
		cfg.Model = opts.model
	}
	cfg, err = finalizeConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	registry := media.NewRegistry()
	creds := newCredentials(cfg.AllowEnv)
	gen := veo.NewGenerator(newVeoService(httpclient.GetDefaultClient()), creds, registry, cfg.VeoConfig())
	metrics := server.NewMetrics()
	ctrl := session.NewController(creds, gen, session.Options{
		Registry:  registry,
		OnOutcome: outcomeRecorder(metrics, creds),
	})
	initial := ctrl.Init(ctx)
	logger.Info("Session ready", "state", initial.String(), "model", gen.Config().Model,
		"poll_interval", gen.Config().PollInterval, "key_source", creds.Source())

	srvOpts := server.Options{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Metrics:        metrics,
	}
	if !opts.noSuggest {
		srvOpts.Suggest = suggestWith(creds, cfg.SuggestModel)
	}
	cleanup.Register("session", func() error {
		ctrl.Reset()
		logger.Debug("Released in-memory media", "remaining", registry.Len())
		return nil
	})

	fmt.Fprintf(cmd.OutOrStdout(), "photomotion is running at %s\n", displayURL(cfg.Addr))
	return server.New(ctx, ctrl, registry, srvOpts).Run(ctx)
}

// outcomeRecorder feeds metrics and drops a session key the API rejected, so
// the next key entered in the browser replaces it.
func outcomeRecorder(metrics *server.Metrics, creds credentialStore) func(session.Outcome, time.Duration) {
	return func(outcome session.Outcome, elapsed time.Duration) {
		metrics.ObserveOutcome(outcome, elapsed)
		if outcome == session.OutcomeUnauthorized {
			creds.Forget()
		}
	}
}

// displayURL turns a listen address into a clickable local URL.
func displayURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
