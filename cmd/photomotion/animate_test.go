package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oukeidos/photomotion/internal/veo"
)

var testPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type fakeCredentials struct {
	usable    bool
	key       string
	forgotten bool
}

func (f *fakeCredentials) HasUsableCredential(context.Context) (bool, error) { return f.usable, nil }

func (f *fakeCredentials) OpenCredentialSelector(context.Context) error {
	f.usable = true
	return nil
}

func (f *fakeCredentials) Source() string { return "Fake" }

func (f *fakeCredentials) Forget() { f.forgotten = true }

func (f *fakeCredentials) Credential(context.Context) (string, error) {
	if !f.usable {
		return "", errors.New("no key")
	}
	return f.key, nil
}

type animateStubs struct {
	svc       *veo.FakeService
	creds     *fakeCredentials
	confirmed []string
}

func withAnimateStubs(t *testing.T, usable bool) *animateStubs {
	t.Helper()
	video := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("mp4-bytes"))
	}))
	t.Cleanup(video.Close)

	s := &animateStubs{
		svc: &veo.FakeService{
			Polls: []*veo.Operation{{
				Name:   "operations/test",
				Done:   true,
				Videos: []veo.GeneratedVideo{{URI: video.URL + "/v.mp4", MIMEType: "video/mp4"}},
			}},
		},
		creds: &fakeCredentials{usable: usable, key: "test-key"},
	}

	prevService, prevCreds, prevConfirm, prevNow, prevTerminal := newVeoService, newCredentials, confirmGeneration, now, isTerminal
	t.Cleanup(func() {
		newVeoService, newCredentials, confirmGeneration, now, isTerminal = prevService, prevCreds, prevConfirm, prevNow, prevTerminal
	})
	newVeoService = func(*http.Client) veo.Service { return s.svc }
	newCredentials = func(bool) credentialStore { return s.creds }
	confirmGeneration = func(model string, _ float64, assumeYes bool) (bool, error) {
		s.confirmed = append(s.confirmed, model)
		return assumeYes, nil
	}
	now = func() time.Time { return time.UnixMilli(1700000000123) }
	isTerminal = func(int) bool { return false }
	return s
}

func writePhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, testPNG, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnimate_SavesVideo(t *testing.T) {
	stubs := withAnimateStubs(t, true)
	outDir := t.TempDir()

	out, err := executeCommand(t, "animate", writePhoto(t), "-o", outDir, "-y",
		"--poll-interval", "1s", "--prompt", "leaves drift", "--aspect-ratio", "9:16", "--env-file", filepath.Join(outDir, "missing.env"))
	if err != nil {
		t.Fatalf("animate failed: %v\n%s", err, out)
	}

	want := filepath.Join(outDir, "animated-photo-1700000000123.mp4")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("video not saved at %s: %v\n%s", want, err, out)
	}
	if string(data) != "mp4-bytes" {
		t.Fatalf("saved %q", data)
	}
	if !strings.Contains(out, "Saved: "+want) || !strings.Contains(out, "Video ready") {
		t.Fatalf("unexpected output: %s", out)
	}
	if !strings.Contains(out, "Initializing cinematic engine...") {
		t.Fatalf("progress not printed: %s", out)
	}

	p := stubs.svc.SubmitParams[0]
	if p.Prompt != "leaves drift" || p.AspectRatio != veo.AspectPortrait || p.Resolution != veo.Resolution720p {
		t.Fatalf("unexpected submit params %+v", p)
	}
	if len(stubs.confirmed) != 1 {
		t.Fatalf("expected one confirmation, got %v", stubs.confirmed)
	}
}

func TestAnimate_RootShortcut(t *testing.T) {
	withAnimateStubs(t, true)
	outDir := t.TempDir()
	if out, err := executeCommand(t, writePhoto(t), "-o", outDir, "-y", "--poll-interval", "1s"); err != nil {
		t.Fatalf("root animate failed: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "animated-photo-1700000000123.mp4")); err != nil {
		t.Fatalf("video not saved: %v", err)
	}
}

func TestAnimate_Declined(t *testing.T) {
	stubs := withAnimateStubs(t, true)
	confirmGeneration = func(string, float64, bool) (bool, error) { return false, nil }

	out, err := executeCommand(t, "animate", writePhoto(t), "-o", t.TempDir())
	if err != nil {
		t.Fatalf("declined run should not fail: %v", err)
	}
	if !strings.Contains(out, "Aborted") {
		t.Fatalf("expected abort notice: %s", out)
	}
	if len(stubs.svc.SubmitParams) != 0 {
		t.Fatalf("nothing should be submitted")
	}
}

func TestAnimate_NoCredentialNonInteractive(t *testing.T) {
	stubs := withAnimateStubs(t, false)
	_, err := executeCommand(t, "animate", writePhoto(t), "-y")
	if err == nil || !strings.Contains(err.Error(), "non-interactive") {
		t.Fatalf("expected non-interactive credential error, got %v", err)
	}
	if len(stubs.svc.SubmitParams) != 0 {
		t.Fatalf("nothing should be submitted")
	}
}

func TestAnimate_AuthFailureReportsPaidKey(t *testing.T) {
	stubs := withAnimateStubs(t, true)
	stubs.svc.SubmitErr = errors.New("Requested entity was not found.")

	_, err := executeCommand(t, "animate", writePhoto(t), "-y", "-o", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "PAID Google Cloud") {
		t.Fatalf("expected paid key message, got %v", err)
	}
}

func TestAnimate_GenerationError(t *testing.T) {
	stubs := withAnimateStubs(t, true)
	stubs.svc.SubmitErr = errors.New("quota exhausted")

	out, err := executeCommand(t, "animate", writePhoto(t), "-y", "-o", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("expected generation error, got %v", err)
	}
	if !strings.Contains(out, "Generation failed") {
		t.Fatalf("error view not rendered: %s", out)
	}
}

func TestAnimate_RejectsBadInput(t *testing.T) {
	withAnimateStubs(t, true)
	cases := []struct {
		name string
		args []string
	}{
		{name: "aspect", args: []string{"animate", "photo.png", "--aspect-ratio", "4:3"}},
		{name: "resolution", args: []string{"animate", "photo.png", "--resolution", "4k"}},
		{name: "missing file", args: []string{"animate", filepath.Join(t.TempDir(), "nope.png"), "-y"}},
		{name: "unsupported resolution for model", args: []string{"animate", "photo.png", "--model", "veo-2.0-generate-001", "--resolution", "1080p"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := executeCommand(t, tc.args...); err == nil {
				t.Fatalf("expected error for %v", tc.args)
			}
		})
	}
}

func TestAnimate_NotAnImage(t *testing.T) {
	withAnimateStubs(t, true)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text, not a photo"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := executeCommand(t, "animate", path, "-y")
	if err == nil || !strings.Contains(err.Error(), "please choose an image") {
		t.Fatalf("expected image validation error, got %v", err)
	}
}
