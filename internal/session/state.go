package session

import (
	"strings"
	"time"

	"github.com/oukeidos/photomotion/internal/veo"
)

type AppState int

const (
	StateUnauthorized AppState = iota
	StateIdle
	// StateUploading is reserved; no transition enters it.
	StateUploading
	StateGenerating
	StateSuccess
	StateError
)

func (s AppState) String() string {
	switch s {
	case StateUnauthorized:
		return "UNAUTHORIZED"
	case StateIdle:
		return "IDLE"
	case StateUploading:
		return "UPLOADING"
	case StateGenerating:
		return "GENERATING"
	case StateSuccess:
		return "SUCCESS"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (s AppState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	StartingMessage      = "Starting engine..."
	AutomaticPromptLabel = "Automatic Animation"
	PaidKeyMessage       = "Your current API key is not supported for video generation. Please select a key from a PAID Google Cloud Project."
	FallbackErrorMessage = "An unexpected error occurred during generation."
)

var authFailureMarkers = []string{
	"Requested entity was not found",
	"API keys are not supported",
	"UNAUTHENTICATED",
	"401",
}

// IsAuthFailure reports whether a generation error message looks like a
// credential problem. Matching is case-sensitive.
func IsAuthFailure(message string) bool {
	for _, m := range authFailureMarkers {
		if strings.Contains(message, m) {
			return true
		}
	}
	return false
}

// VideoResult is the outcome shown on the success screen.
type VideoResult struct {
	VideoID     string          `json:"videoId"`
	URL         string          `json:"url"`
	MIMEType    string          `json:"mimeType"`
	Size        int             `json:"size"`
	Prompt      string          `json:"prompt"`
	Timestamp   time.Time       `json:"timestamp"`
	Resolution  veo.Resolution  `json:"resolution"`
	AspectRatio veo.AspectRatio `json:"aspectRatio"`
}

// ImageInfo describes the staged photo without its payload.
type ImageInfo struct {
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	// Version increases with every state change.
	Version        uint64          `json:"version"`
	State          AppState        `json:"state"`
	Image          *ImageInfo      `json:"image,omitempty"`
	Prompt         string          `json:"prompt"`
	AspectRatio    veo.AspectRatio `json:"aspectRatio"`
	Resolution     veo.Resolution  `json:"resolution"`
	LoadingMessage string          `json:"loadingMessage,omitempty"`
	Result         *VideoResult    `json:"result,omitempty"`
	Error          string          `json:"error,omitempty"`
}
