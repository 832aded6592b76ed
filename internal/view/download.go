package view

import (
	"fmt"
	"strings"
	"time"
)

// ExportFormat is an entry of the download menu.
type ExportFormat struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	MIMEType  string `json:"mimeType"`
	Available bool   `json:"available"`
}

var ExportFormats = []ExportFormat{
	{Name: "MP4 video", Extension: "mp4", MIMEType: "video/mp4", Available: true},
	{Name: "Animated GIF", Extension: "gif", MIMEType: "image/gif", Available: false},
}

// LookupFormat finds an export format by extension.
func LookupFormat(ext string) (ExportFormat, error) {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	for _, f := range ExportFormats {
		if f.Extension == ext {
			if !f.Available {
				return f, fmt.Errorf("%s export is not available yet", f.Name)
			}
			return f, nil
		}
	}
	return ExportFormat{}, fmt.Errorf("unknown export format %q", ext)
}

// DownloadFileName returns animated-photo-<unix-ms>.<ext>.
func DownloadFileName(ts time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "mp4"
	}
	return fmt.Sprintf("animated-photo-%d.%s", ts.UnixMilli(), ext)
}
