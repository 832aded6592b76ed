package licenses

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed embedded/THIRD_PARTY_NOTICES.md
var noticesText string

//go:embed embedded/DISCLAIMER.md
var disclaimerText string

// Module is a third-party dependency shipped in the binary.
type Module struct {
	Path    string
	License string
}

// Modules lists the direct dependencies and their licenses.
var Modules = []Module{
	{Path: "github.com/gabriel-vasile/mimetype", License: "MIT"},
	{Path: "github.com/google/generative-ai-go", License: "Apache-2.0"},
	{Path: "github.com/google/uuid", License: "BSD-3-Clause"},
	{Path: "github.com/gorilla/handlers", License: "BSD-2-Clause"},
	{Path: "github.com/gorilla/mux", License: "BSD-3-Clause"},
	{Path: "github.com/gorilla/websocket", License: "BSD-2-Clause"},
	{Path: "github.com/joho/godotenv", License: "MIT"},
	{Path: "github.com/prometheus/client_golang", License: "Apache-2.0"},
	{Path: "github.com/rivo/uniseg", License: "MIT"},
	{Path: "github.com/spf13/cobra", License: "Apache-2.0"},
	{Path: "github.com/spf13/pflag", License: "BSD-3-Clause"},
	{Path: "github.com/zalando/go-keyring", License: "MIT"},
	{Path: "golang.org/x/sys", License: "BSD-3-Clause"},
	{Path: "golang.org/x/term", License: "BSD-3-Clause"},
	{Path: "google.golang.org/api", License: "BSD-3-Clause"},
	{Path: "google.golang.org/genai", License: "Apache-2.0"},
}

func NoticesText() string {
	return noticesText
}

func DisclaimerText() string {
	return disclaimerText
}

// Summary renders Modules as an aligned table.
func Summary() string {
	width := 0
	for _, m := range Modules {
		if len(m.Path) > width {
			width = len(m.Path)
		}
	}
	var b strings.Builder
	for _, m := range Modules {
		fmt.Fprintf(&b, "%-*s  %s\n", width, m.Path, m.License)
	}
	return b.String()
}
