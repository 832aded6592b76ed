package view

import (
	_ "embed"
)

//go:embed assets/index.html
var indexHTML []byte

// IndexHTML returns the single-page browser UI.
func IndexHTML() []byte {
	return indexHTML
}
