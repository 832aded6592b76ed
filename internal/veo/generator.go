package veo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oukeidos/photomotion/internal/apperrors"
	"github.com/oukeidos/photomotion/internal/httpclient"
	"github.com/oukeidos/photomotion/internal/logger"
	"github.com/oukeidos/photomotion/internal/media"
)

const (
	DefaultModel        = "veo-3.1-fast-generate-preview"
	DefaultPrompt       = "Animate this photo with natural, subtle movement to bring the scene to life."
	DefaultPollInterval = 10 * time.Second
	DefaultInitialMsg   = "Initializing cinematic engine..."
	DefaultVideoMIME    = "video/mp4"
)

var DefaultProgressMessages = []string{
	"Analyzing visual structure...",
	"Defining motion paths...",
	"Synthesizing temporal consistency...",
	"Rendering cinematic frames...",
	"Polishing visual artifacts...",
	"Finalizing export...",
}

type Config struct {
	Model            string
	DefaultPrompt    string
	PollInterval     time.Duration
	InitialMessage   string
	ProgressMessages []string
	// MaxPolls bounds the number of status checks. 0 means unlimited.
	MaxPolls int
}

func DefaultConfig() Config {
	return Config{
		Model:            DefaultModel,
		DefaultPrompt:    DefaultPrompt,
		PollInterval:     DefaultPollInterval,
		InitialMessage:   DefaultInitialMsg,
		ProgressMessages: append([]string(nil), DefaultProgressMessages...),
	}
}

// Normalize fills zero fields with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if strings.TrimSpace(c.Model) == "" {
		c.Model = def.Model
	}
	if strings.TrimSpace(c.DefaultPrompt) == "" {
		c.DefaultPrompt = def.DefaultPrompt
	}
	if c.PollInterval == 0 {
		c.PollInterval = def.PollInterval
	}
	if c.InitialMessage == "" {
		c.InitialMessage = def.InitialMessage
	}
	if len(c.ProgressMessages) == 0 {
		c.ProgressMessages = def.ProgressMessages
	}
}

func (c Config) Validate() error {
	if c.PollInterval < 0 {
		return fmt.Errorf("poll interval must be >= 0")
	}
	if c.MaxPolls < 0 {
		return fmt.Errorf("max polls must be >= 0")
	}
	return nil
}

// ProgressFunc receives human-readable status lines while a job runs.
type ProgressFunc func(message string)

// Generator runs the submit, poll and download sequence for one request at a time.
type Generator struct {
	service  Service
	creds    CredentialSource
	registry *media.Registry
	cfg      Config

	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
	log        *slog.Logger
	now        func() time.Time
}

type Option func(*Generator)

// WithHTTPClient sets the client used to download finished videos.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Generator) { g.httpClient = c }
}

// WithSleep replaces the wait between polls.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Generator) { g.sleep = fn }
}

func NewGenerator(service Service, creds CredentialSource, registry *media.Registry, cfg Config, opts ...Option) *Generator {
	cfg.Normalize()
	if registry == nil {
		registry = media.NewRegistry()
	}
	g := &Generator{
		service:  service,
		creds:    creds,
		registry: registry,
		cfg:      cfg,
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Component("veo")
	}
	return g
}

// Config returns the normalized settings.
func (g *Generator) Config() Config { return g.cfg }

// Generate submits req, waits for the remote job to finish and downloads the
// first produced video into the registry. onProgress may be nil.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest, onProgress ProgressFunc) (*VideoResource, error) {
	if onProgress == nil {
		onProgress = func(string) {}
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err)
	}
	image, err := req.decodeImage()
	if err != nil {
		return nil, apperrors.Validation(err)
	}

	onProgress(g.cfg.InitialMessage)

	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = g.cfg.DefaultPrompt
	}
	params := SubmitParams{
		Model:          g.cfg.Model,
		Prompt:         prompt,
		Image:          image,
		MIMEType:       req.MIMEType,
		NumberOfVideos: 1,
		Resolution:     req.Resolution,
		AspectRatio:    req.AspectRatio,
	}

	cred, err := g.credential(ctx)
	if err != nil {
		return nil, err
	}
	start := g.now()
	g.log.Info("Submitting video generation", "model", params.Model, "aspect_ratio", params.AspectRatio, "resolution", params.Resolution, "image_bytes", len(image))
	op, err := g.service.Submit(ctx, cred, params)
	if err != nil {
		return nil, apperrors.Submit(err)
	}
	if op == nil {
		return nil, apperrors.Submit(fmt.Errorf("service returned no operation"))
	}

	polls := 0
	for !op.Done {
		if g.cfg.MaxPolls > 0 && polls >= g.cfg.MaxPolls {
			return nil, apperrors.New(apperrors.KindTimeout, "",
				fmt.Errorf("operation %s still running after %d status checks", op.Name, polls))
		}
		onProgress(g.cfg.ProgressMessages[polls%len(g.cfg.ProgressMessages)])
		polls++
		if err := g.sleep(ctx, g.cfg.PollInterval); err != nil {
			return nil, err
		}
		cred, err = g.credential(ctx)
		if err != nil {
			return nil, err
		}
		next, err := g.service.Poll(ctx, cred, op)
		if err != nil {
			return nil, apperrors.Poll(err)
		}
		if next == nil {
			return nil, apperrors.Poll(fmt.Errorf("service returned no operation"))
		}
		op = next
		g.log.Debug("Polled operation", "operation", op.Name, "done", op.Done, "poll", polls)
	}

	video, ok := op.FirstVideo()
	if !ok {
		if op.ErrorMessage != "" {
			return nil, apperrors.New(apperrors.KindNoResult,
				"Failed to generate video: No download link provided by API",
				fmt.Errorf("%s", op.ErrorMessage))
		}
		return nil, apperrors.New(apperrors.KindNoResult, "", nil)
	}

	cred, err = g.credential(ctx)
	if err != nil {
		return nil, err
	}
	data, err := g.download(ctx, video.URI, cred)
	if err != nil {
		return nil, err
	}

	mimeType := video.MIMEType
	if mimeType == "" {
		mimeType = DefaultVideoMIME
	}
	blob := g.registry.Put(data, mimeType)
	g.log.Info("Video ready", "operation", op.Name, "bytes", len(data), "polls", polls, "elapsed", g.now().Sub(start).Round(time.Millisecond))
	return &VideoResource{
		ID:        blob.ID,
		URL:       blob.URL(),
		MIMEType:  mimeType,
		Size:      len(data),
		SourceURI: logger.RedactURL(video.URI),
		CreatedAt: blob.CreatedAt,
	}, nil
}

func (g *Generator) credential(ctx context.Context) (string, error) {
	if g.creds == nil {
		return "", apperrors.Credential(fmt.Errorf("no credential source configured"))
	}
	cred, err := g.creds.Credential(ctx)
	if err != nil {
		return "", apperrors.Credential(err)
	}
	if strings.TrimSpace(cred) == "" {
		return "", apperrors.Credential(fmt.Errorf("credential is empty"))
	}
	return cred, nil
}

func (g *Generator) download(ctx context.Context, uri, credential string) ([]byte, error) {
	target, err := withKey(uri, credential)
	if err != nil {
		return nil, apperrors.New(apperrors.KindDownload, "Failed to download video", err)
	}
	client := g.httpClient
	if client == nil {
		client = httpclient.GetDefaultClient()
	}
	data, _, err := httpclient.Get(ctx, client, target)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.New(apperrors.KindDownload, "Failed to download video", err)
	}
	return data, nil
}

// withKey appends the API key as the "key" query parameter.
func withKey(uri, credential string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid video URI: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported video URI scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("key", credential)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
