package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/oukeidos/photomotion/internal/config"
	"github.com/oukeidos/photomotion/internal/files"
	"github.com/oukeidos/photomotion/internal/httpclient"
	"github.com/oukeidos/photomotion/internal/logger"
	"github.com/oukeidos/photomotion/internal/media"
	"github.com/oukeidos/photomotion/internal/metadata"
	"github.com/oukeidos/photomotion/internal/prompt"
	"github.com/oukeidos/photomotion/internal/session"
	"github.com/oukeidos/photomotion/internal/veo"
	"github.com/oukeidos/photomotion/internal/view"
	"github.com/spf13/cobra"
)

// credentialStore is what a session needs from the key store.
type credentialStore interface {
	session.Authorizer
	veo.CredentialSource
	Source() string
	Forget()
}

var (
	newCredentials = func(allowEnv bool) credentialStore {
		return newKeyring(allowEnv)
	}
	confirmGeneration = func(model string, usd float64, assumeYes bool) (bool, error) {
		return prompt.DefaultConfirmer().ConfirmGeneration(model, usd, assumeYes)
	}
	now = time.Now
)

type animateOptions struct {
	common       commonOptions
	outputDir    string
	prompt       string
	aspectRatio  string
	resolution   string
	model        string
	maxPolls     int
	pollInterval time.Duration
	yes          bool
}

func newAnimateCmd() *cobra.Command {
	opts := animateOptions{}
	cmd := &cobra.Command{
		Use:   "animate <photo>",
		Short: "Animate a photo and save the video",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				_ = cmd.Usage()
				return fmt.Errorf("a photo is required")
			}
			return runAnimate(cmd, args, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addAnimateFlags(cmd, &opts)
	return cmd
}

func addAnimateFlags(cmd *cobra.Command, opts *animateOptions) {
	addCommonFlags(cmd, &opts.common)
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", ".", "Directory to save the video in")
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "Describe the motion (empty for automatic animation)")
	cmd.Flags().StringVar(&opts.aspectRatio, "aspect-ratio", string(veo.AspectLandscape), "Aspect ratio (16:9 or 9:16)")
	cmd.Flags().StringVar(&opts.resolution, "resolution", string(veo.Resolution720p), "Resolution (720p or 1080p)")
	cmd.Flags().StringVar(&opts.model, "model", "", fmt.Sprintf("Veo model name, e.g. %s (overrides VEO_MODEL)", strings.Join(metadata.VeoModelIDs(), ", ")))
	cmd.Flags().IntVar(&opts.maxPolls, "max-polls", -1, "Give up after this many status checks (0 for unlimited; overrides VEO_MAX_POLLS)")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", 0, "Time between status checks (overrides VEO_POLL_INTERVAL)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Start generation without asking")
}

func runAnimate(cmd *cobra.Command, args []string, opts *animateOptions) error {
	if len(args) > 1 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: expected 1 argument but got %d. Did you forget quotes around the path?\n", len(args))
		fmt.Fprintf(cmd.ErrOrStderr(), "  Using photo: %s\n", args[0])
	}
	aspect, err := veo.ParseAspectRatio(opts.aspectRatio)
	if err != nil {
		return err
	}
	res, err := veo.ParseResolution(opts.resolution)
	if err != nil {
		return err
	}

	if err := setupLogging(&opts.common); err != nil {
		return err
	}
	cfg, err := loadConfig(&opts.common)
	if err != nil {
		return err
	}
	cfg = applyAnimateOverrides(cfg, opts)
	cfg, err = finalizeConfig(cfg)
	if err != nil {
		return err
	}

	model, known := metadata.LookupVeoModel(cfg.Model)
	if !known {
		logger.Warn("Model not in catalog; cost estimate unavailable", "model", cfg.Model)
	}
	if known && !model.SupportsResolution(string(res)) {
		return fmt.Errorf("model %s does not support %s", cfg.Model, res)
	}

	photo, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open photo: %w", err)
	}
	defer photo.Close()
	if info, err := photo.Stat(); err == nil && info.Size() > cfg.MaxUploadBytes() {
		return fmt.Errorf("photo exceeds %d MB", cfg.MaxUploadMB)
	}

	ctx, stop := signalContext()
	defer stop()

	registry := media.NewRegistry()
	creds := newCredentials(cfg.AllowEnv)
	gen := veo.NewGenerator(newVeoService(httpclient.GetDefaultClient()), creds, registry, cfg.VeoConfig())
	ctrl := session.NewController(creds, gen, session.Options{Registry: registry})

	if ctrl.Init(ctx) == session.StateUnauthorized {
		if !isTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("no API key available (non-interactive shell); run `photomotion env setup` or use --allow-env")
		}
		if err := ctrl.OpenAuth(ctx); err != nil {
			return err
		}
	}

	logger.Info("Using API Key", "source", creds.Source())

	if err := ctrl.StageImage(ctx, photo, ""); err != nil {
		return err
	}
	if err := ctrl.SetAspectRatio(aspect); err != nil {
		return err
	}
	if err := ctrl.SetResolution(res); err != nil {
		return err
	}
	ctrl.SetPrompt(opts.prompt)
	_ = view.RenderText(cmd.ErrOrStderr(), ctrl.Snapshot())

	ok, err := confirmGeneration(cfg.Model, model.EstimatedCost(), opts.yes)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
		return nil
	}

	unsubscribe := ctrl.Subscribe(progressPrinter(cmd))
	done, err := ctrl.Generate(ctx)
	if err != nil {
		unsubscribe()
		return err
	}
	<-done
	unsubscribe()

	snap := ctrl.Snapshot()
	if err := view.RenderText(cmd.OutOrStdout(), snap); err != nil {
		return err
	}
	switch snap.State {
	case session.StateSuccess:
		return saveResult(cmd, registry, snap.Result, opts.outputDir)
	case session.StateUnauthorized:
		return errors.New(snap.Error)
	default:
		if ctx.Err() != nil {
			logger.Warn("Generation canceled")
			return nil
		}
		return fmt.Errorf("generation failed: %s", snap.Error)
	}
}

func applyAnimateOverrides(cfg config.Config, opts *animateOptions) config.Config {
	if strings.TrimSpace(opts.model) != "" {
		cfg.Model = opts.model
	}
	if opts.maxPolls >= 0 {
		cfg.MaxPolls = opts.maxPolls
	}
	if opts.pollInterval > 0 {
		cfg.PollInterval = opts.pollInterval
	}
	return cfg
}

// progressPrinter prints each new loading message once.
func progressPrinter(cmd *cobra.Command) func(session.Snapshot) {
	var mu sync.Mutex
	last := ""
	return func(s session.Snapshot) {
		if s.State != session.StateGenerating || s.LoadingMessage == "" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if s.LoadingMessage == last {
			return
		}
		last = s.LoadingMessage
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", s.LoadingMessage)
	}
}

func saveResult(cmd *cobra.Command, registry *media.Registry, result *session.VideoResult, dir string) error {
	if result == nil {
		return fmt.Errorf("generation finished without a video")
	}
	blob, ok := registry.Get(result.VideoID)
	if !ok {
		return fmt.Errorf("video %s is no longer available", result.VideoID)
	}
	format, err := view.LookupFormat("mp4")
	if err != nil {
		return err
	}
	path, err := files.SaveExport(dir, view.DownloadFileName(now(), format.Extension), blob.Data)
	if err != nil {
		return fmt.Errorf("failed to save video: %w", err)
	}
	registry.Revoke(blob.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", path)
	return nil
}
