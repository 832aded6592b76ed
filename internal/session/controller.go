// Package session owns the single application state machine shared by the
// browser and terminal front ends.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oukeidos/photomotion/internal/apperrors"
	"github.com/oukeidos/photomotion/internal/logger"
	"github.com/oukeidos/photomotion/internal/media"
	"github.com/oukeidos/photomotion/internal/veo"
)

var (
	ErrBusy         = errors.New("a video is already being generated")
	ErrUnauthorized = errors.New("an API key must be selected first")
	ErrNotIdle      = errors.New("reset before starting a new generation")
)

// Authorizer answers whether a credential is available and lets the user pick one.
type Authorizer interface {
	HasUsableCredential(ctx context.Context) (bool, error)
	OpenCredentialSelector(ctx context.Context) error
}

// Generator runs one image-to-video job.
type Generator interface {
	Generate(ctx context.Context, req veo.GenerationRequest, onProgress veo.ProgressFunc) (*veo.VideoResource, error)
}

// Outcome labels how a generation ended.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeError        Outcome = "error"
	OutcomeUnauthorized Outcome = "unauthorized"
	// OutcomeAbandoned means the controller was reset before the job finished.
	OutcomeAbandoned Outcome = "abandoned"
)

type Options struct {
	// Registry, when set, has finished videos revoked on reset.
	Registry *media.Registry
	// OnOutcome is called once per finished job.
	OnOutcome func(outcome Outcome, elapsed time.Duration)
	Logger    *slog.Logger
}

type Controller struct {
	auth      Authorizer
	generator Generator
	opts      Options
	log       *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	state     AppState
	image     *media.StagedImage
	prompt    string
	aspect    veo.AspectRatio
	res       veo.Resolution
	loading   string
	result    *VideoResult
	errMsg    string
	token     string
	version   uint64
	observers map[int]func(Snapshot)
	nextObsID int

	notifyMu  sync.Mutex
	delivered uint64
}

func NewController(auth Authorizer, generator Generator, opts Options) *Controller {
	l := opts.Logger
	if l == nil {
		l = logger.Component("session")
	}
	return &Controller{
		auth:      auth,
		generator: generator,
		opts:      opts,
		log:       l,
		now:       time.Now,
		state:     StateUnauthorized,
		aspect:    veo.AspectLandscape,
		res:       veo.Resolution720p,
		observers: make(map[int]func(Snapshot)),
	}
}

// Init resolves the initial state from the authorizer. A failed lookup is
// treated as "no credential" and is not shown to the user.
func (c *Controller) Init(ctx context.Context) AppState {
	ok, err := c.auth.HasUsableCredential(ctx)
	if err != nil {
		c.log.Warn("Credential check failed", "error", err)
		ok = false
	}
	c.update(func() {
		if ok {
			c.state = StateIdle
		} else {
			c.state = StateUnauthorized
		}
		c.errMsg = ""
	})
	return c.Snapshot().State
}

// OpenAuth asks the authorizer for a credential. On success the controller
// moves to IDLE without verifying the credential.
func (c *Controller) OpenAuth(ctx context.Context) error {
	if err := c.auth.OpenCredentialSelector(ctx); err != nil {
		c.log.Error("Credential selection failed", "error", err)
		return err
	}
	c.update(func() {
		if c.state == StateUnauthorized {
			c.state = StateIdle
		}
		c.errMsg = ""
	})
	return nil
}

// StageImage reads r into memory as the photo to animate. A nil reader clears
// the staged image.
func (c *Controller) StageImage(ctx context.Context, r io.Reader, declaredType string) error {
	if r == nil {
		c.update(func() { c.image = nil })
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := media.Stage(r, declaredType)
	if err != nil {
		return apperrors.Validation(err)
	}
	if !media.IsImage(img.MIMEType) {
		return apperrors.Validation(fmt.Errorf("unsupported file type %q: please choose an image", img.MIMEType))
	}
	c.update(func() { c.image = img })
	c.log.Debug("Image staged", "mime", img.MIMEType, "bytes", img.Size)
	return nil
}

// StagedImage returns the staged photo, or nil.
func (c *Controller) StagedImage() *media.StagedImage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.image == nil {
		return nil
	}
	img := *c.image
	return &img
}

func (c *Controller) SetAspectRatio(a veo.AspectRatio) error {
	if !a.Valid() {
		return apperrors.Validation(fmt.Errorf("unsupported aspect ratio %q", a))
	}
	c.update(func() { c.aspect = a })
	return nil
}

func (c *Controller) SetResolution(r veo.Resolution) error {
	if !r.Valid() {
		return apperrors.Validation(fmt.Errorf("unsupported resolution %q", r))
	}
	c.update(func() { c.res = r })
	return nil
}

func (c *Controller) SetPrompt(p string) {
	c.update(func() { c.prompt = p })
}

// Generate starts a job from the staged fields. It returns a nil channel and
// nil error when no image is staged. Otherwise the returned channel is closed
// once the job has reached a terminal state or been abandoned.
func (c *Controller) Generate(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	switch c.state {
	case StateGenerating:
		c.mu.Unlock()
		return nil, ErrBusy
	case StateUnauthorized:
		c.mu.Unlock()
		return nil, ErrUnauthorized
	case StateIdle:
	default:
		c.mu.Unlock()
		return nil, ErrNotIdle
	}
	if c.image == nil {
		c.mu.Unlock()
		return nil, nil
	}
	req := veo.GenerationRequest{
		ImageBytes:  c.image.Data,
		MIMEType:    c.image.MIMEType,
		Prompt:      c.prompt,
		AspectRatio: c.aspect,
		Resolution:  c.res,
	}
	token := uuid.NewString()
	c.token = token
	c.state = StateGenerating
	c.errMsg = ""
	c.result = nil
	c.loading = StartingMessage
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(ctx, token, req)
	}()
	return done, nil
}

func (c *Controller) run(ctx context.Context, token string, req veo.GenerationRequest) {
	start := c.now()
	c.log.Info("Generation started", "aspect_ratio", req.AspectRatio, "resolution", req.Resolution, "custom_prompt", strings.TrimSpace(req.Prompt) != "")

	video, err := c.generator.Generate(ctx, req, func(msg string) {
		c.updateIfCurrent(token, func() { c.loading = msg })
	})

	outcome := OutcomeAbandoned
	applied := c.updateIfCurrent(token, func() {
		c.token = ""
		c.loading = ""
		if err == nil {
			prompt := req.Prompt
			if strings.TrimSpace(prompt) == "" {
				prompt = AutomaticPromptLabel
			}
			c.result = &VideoResult{
				VideoID:     video.ID,
				URL:         video.URL,
				MIMEType:    video.MIMEType,
				Size:        video.Size,
				Prompt:      prompt,
				Timestamp:   c.now(),
				Resolution:  req.Resolution,
				AspectRatio: req.AspectRatio,
			}
			c.state = StateSuccess
			outcome = OutcomeSuccess
			return
		}
		msg := apperrors.PublicMessage(err)
		if IsAuthFailure(msg) {
			c.state = StateUnauthorized
			c.errMsg = PaidKeyMessage
			outcome = OutcomeUnauthorized
			return
		}
		if msg == "" {
			msg = FallbackErrorMessage
		}
		c.state = StateError
		c.errMsg = msg
		outcome = OutcomeError
	})

	elapsed := c.now().Sub(start)
	switch {
	case !applied:
		c.log.Info("Discarded result of abandoned generation", "error", err)
		if err == nil && c.opts.Registry != nil {
			c.opts.Registry.Revoke(video.ID)
		}
	case err != nil:
		c.log.Error("Generation failed", "outcome", string(outcome), "error", err)
	default:
		c.log.Info("Generation finished", "video", video.ID, "elapsed", elapsed.Round(time.Millisecond))
	}
	if c.opts.OnOutcome != nil {
		c.opts.OnOutcome(outcome, elapsed)
	}
}

// Reset returns to IDLE and clears the image, result and error. It has no
// effect while UNAUTHORIZED. A job in flight keeps running remotely but its
// callbacks are ignored.
func (c *Controller) Reset() bool {
	var revoke string
	c.mu.Lock()
	if c.state == StateUnauthorized {
		c.mu.Unlock()
		return false
	}
	if c.result != nil {
		revoke = c.result.VideoID
	}
	c.state = StateIdle
	c.image = nil
	c.result = nil
	c.errMsg = ""
	c.loading = ""
	c.token = ""
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if revoke != "" && c.opts.Registry != nil {
		c.opts.Registry.Revoke(revoke)
	}
	c.notify(snap)
	return true
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function removes it.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Version:        c.version,
		State:          c.state,
		Prompt:         c.prompt,
		AspectRatio:    c.aspect,
		Resolution:     c.res,
		LoadingMessage: c.loading,
		Error:          c.errMsg,
	}
	if c.image != nil {
		s.Image = &ImageInfo{MIMEType: c.image.MIMEType, Size: c.image.Size}
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	return s
}

func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// updateIfCurrent applies fn only while token still identifies the running job.
func (c *Controller) updateIfCurrent(token string, fn func()) bool {
	c.mu.Lock()
	if c.token != token || c.state != StateGenerating {
		c.mu.Unlock()
		return false
	}
	fn()
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return true
}

func (c *Controller) notify(snap Snapshot) {
	c.mu.Lock()
	fns := make([]func(Snapshot), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	// A newer snapshot may already have been delivered by a concurrent change.
	if snap.Version <= c.delivered {
		return
	}
	c.delivered = snap.Version
	for _, fn := range fns {
		fn(snap)
	}
}
