package veo

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

func (a AspectRatio) Valid() bool {
	return a == AspectLandscape || a == AspectPortrait
}

func ParseAspectRatio(s string) (AspectRatio, error) {
	a := AspectRatio(strings.TrimSpace(s))
	if !a.Valid() {
		return "", fmt.Errorf("unsupported aspect ratio %q (supported: 16:9, 9:16)", s)
	}
	return a, nil
}

type Resolution string

const (
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
)

func (r Resolution) Valid() bool {
	return r == Resolution720p || r == Resolution1080p
}

func ParseResolution(s string) (Resolution, error) {
	r := Resolution(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unsupported resolution %q (supported: 720p, 1080p)", s)
	}
	return r, nil
}

// GenerationRequest describes one image-to-video job. It is passed by value and
// never modified after submission.
type GenerationRequest struct {
	// ImageBytes is the base64-encoded source photo.
	ImageBytes  string
	MIMEType    string
	Prompt      string
	AspectRatio AspectRatio
	Resolution  Resolution
}

func (r GenerationRequest) Validate() error {
	if r.ImageBytes == "" {
		return fmt.Errorf("image is required")
	}
	if r.MIMEType == "" {
		return fmt.Errorf("image MIME type is required")
	}
	if !r.AspectRatio.Valid() {
		return fmt.Errorf("unsupported aspect ratio %q", r.AspectRatio)
	}
	if !r.Resolution.Valid() {
		return fmt.Errorf("unsupported resolution %q", r.Resolution)
	}
	return nil
}

func (r GenerationRequest) decodeImage() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(r.ImageBytes)
	if err != nil {
		return nil, fmt.Errorf("image is not valid base64: %w", err)
	}
	return data, nil
}

// SubmitParams is what actually goes over the wire to the remote service.
type SubmitParams struct {
	Model          string
	Prompt         string
	Image          []byte
	MIMEType       string
	NumberOfVideos int
	Resolution     Resolution
	AspectRatio    AspectRatio
}

// GeneratedVideo is one result descriptor of a finished operation.
type GeneratedVideo struct {
	URI      string
	MIMEType string
}

// Operation is a handle to a remote long-running job.
type Operation struct {
	Name string
	Done bool
	// Videos is populated once Done is true.
	Videos []GeneratedVideo
	// ErrorMessage is the service-reported failure, if any.
	ErrorMessage string
}

// FirstVideo returns the first descriptor with a URI.
func (o *Operation) FirstVideo() (GeneratedVideo, bool) {
	if o == nil || len(o.Videos) == 0 || o.Videos[0].URI == "" {
		return GeneratedVideo{}, false
	}
	return o.Videos[0], true
}

// VideoResource is a downloaded clip addressable through a local URL.
type VideoResource struct {
	ID        string
	URL       string
	MIMEType  string
	Size      int
	SourceURI string
	CreatedAt time.Time
}
