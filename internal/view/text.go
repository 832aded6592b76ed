package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/oukeidos/photomotion/internal/session"
	"github.com/rivo/uniseg"
)

// MaxPromptDisplay is the number of grapheme clusters shown for a prompt.
const MaxPromptDisplay = 60

// Truncate shortens s to at most max grapheme clusters, appending "..." when cut.
func Truncate(s string, max int) string {
	if max <= 0 || uniseg.GraphemeClusterCount(s) <= max {
		return s
	}
	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	n := 0
	for n < max-1 && g.Next() {
		b.WriteString(g.Str())
		n++
	}
	b.WriteString("...")
	return b.String()
}

// RenderText writes a terminal rendition of the current screen.
func RenderText(w io.Writer, s session.Snapshot) error {
	var b strings.Builder
	switch s.State {
	case session.StateUnauthorized:
		b.WriteString("API key required\n")
		if s.Error != "" {
			fmt.Fprintf(&b, "  %s\n", s.Error)
		}
		b.WriteString("  Run `photomotion env setup` to select a key from a paid Google Cloud project.\n")
	case session.StateIdle, session.StateUploading:
		if s.Image != nil {
			fmt.Fprintf(&b, "Photo:        %s (%s)\n", s.Image.MIMEType, humanBytes(s.Image.Size))
		} else {
			b.WriteString("Photo:        (none)\n")
		}
		fmt.Fprintf(&b, "Aspect ratio: %s\n", s.AspectRatio)
		fmt.Fprintf(&b, "Resolution:   %s\n", s.Resolution)
		fmt.Fprintf(&b, "Prompt:       %s\n", promptLabel(s.Prompt))
	case session.StateGenerating:
		fmt.Fprintf(&b, "Generating... %s\n", s.LoadingMessage)
	case session.StateSuccess:
		b.WriteString("Video ready\n")
		if r := s.Result; r != nil {
			fmt.Fprintf(&b, "  Prompt:  %s\n", Truncate(r.Prompt, MaxPromptDisplay))
			fmt.Fprintf(&b, "  Format:  %s, %s, %s\n", r.AspectRatio, r.Resolution, humanBytes(r.Size))
			fmt.Fprintf(&b, "  Created: %s\n", r.Timestamp.Format("2006-01-02 15:04:05"))
		}
	case session.StateError:
		b.WriteString("Generation failed\n")
		fmt.Fprintf(&b, "  %s\n", s.Error)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func promptLabel(p string) string {
	if strings.TrimSpace(p) == "" {
		return "(automatic)"
	}
	return Truncate(p, MaxPromptDisplay)
}

func humanBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
