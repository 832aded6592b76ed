package main

import (
	"strings"
	"testing"
)

func TestYesFlag_AcceptsLongAndShorthand(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{name: "root_shorthand", args: []string{"-y"}},
		{name: "root_long", args: []string{"--yes"}},
		{name: "animate_shorthand", args: []string{"animate", "-y"}},
		{name: "animate_long", args: []string{"animate", "--yes"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := executeCommand(t, tc.args...)
			if err == nil {
				t.Fatalf("expected command error from missing photo, got nil")
			}
			if strings.Contains(out, "unknown shorthand flag: 'y'") || strings.Contains(out, "unknown flag: --yes") {
				t.Fatalf("expected --yes/-y to be parsed, got output: %s", out)
			}
			if !strings.Contains(err.Error(), "a photo is required") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRoot_FlagsWithoutPhotoNamesFlags(t *testing.T) {
	_, err := executeCommand(t, "--resolution", "1080p", "-y")
	if err == nil {
		t.Fatalf("expected error without a photo")
	}
	for _, want := range []string{"a photo is required", "--resolution", "--yes"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestRoot_NoArgsShowsHelp(t *testing.T) {
	out, err := executeCommand(t)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "photomotion <photo> [flags]") {
		t.Fatalf("expected usage, got: %s", out)
	}
}

func TestRoot_Version(t *testing.T) {
	out, err := executeCommand(t, "--version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "photomotion ") {
		t.Fatalf("unexpected version output: %s", out)
	}
}

func TestListAndAbout(t *testing.T) {
	out, err := executeCommand(t, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"veo-3.1-fast-generate-preview", "gemini-2.5-flash", "Video Models:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q: %s", want, out)
		}
	}

	out, err = executeCommand(t, "about")
	if err != nil {
		t.Fatalf("about failed: %v", err)
	}
	if !strings.Contains(out, "github.com/oukeidos/photomotion") {
		t.Fatalf("unexpected about output: %s", out)
	}
}

func TestServe_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "0")
	_, err := executeCommand(t, "serve", "--env-file", "")
	if err == nil || !strings.Contains(err.Error(), "max upload") {
		t.Fatalf("expected config validation error, got %v", err)
	}
}

func TestLicensesAndDisclaimer(t *testing.T) {
	out, err := executeCommand(t, "licenses")
	if err != nil || !strings.Contains(out, "Third-Party Notices") {
		t.Fatalf("licenses = %v: %s", err, out)
	}
	out, err = executeCommand(t, "licenses", "--short")
	if err != nil || !strings.Contains(out, "github.com/spf13/cobra") || strings.Contains(out, "Third-Party Notices") {
		t.Fatalf("licenses --short = %v: %s", err, out)
	}
	out, err = executeCommand(t, "disclaimer")
	if err != nil || !strings.Contains(out, "AI model") {
		t.Fatalf("disclaimer = %v: %s", err, out)
	}
}
