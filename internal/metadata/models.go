package metadata

import "strings"

type VeoModel struct {
	ID          string
	Label       string
	Resolutions []string
	// PricePerSecond is the list price in USD per generated second at 720p.
	PricePerSecond float64
	ClipSeconds    int
}

type GeminiModel struct {
	ID    string
	Label string
}

var VeoModels = []VeoModel{
	{
		ID:             "veo-3.1-fast-generate-preview",
		Label:          "Veo 3.1 Fast (preview)",
		Resolutions:    []string{"720p", "1080p"},
		PricePerSecond: 0.15,
		ClipSeconds:    8,
	},
	{
		ID:             "veo-3.1-generate-preview",
		Label:          "Veo 3.1 (preview)",
		Resolutions:    []string{"720p", "1080p"},
		PricePerSecond: 0.40,
		ClipSeconds:    8,
	},
	{
		ID:             "veo-2.0-generate-001",
		Label:          "Veo 2",
		Resolutions:    []string{"720p"},
		PricePerSecond: 0.35,
		ClipSeconds:    8,
	},
}

// GeminiModels are the text models offered for prompt suggestions.
var GeminiModels = []GeminiModel{
	{ID: "gemini-2.5-flash", Label: "Gemini 2.5 Flash"},
	{ID: "gemini-3-flash-preview", Label: "Gemini 3 Flash (preview)"},
}

func VeoModelIDs() []string {
	ids := make([]string, 0, len(VeoModels))
	for _, m := range VeoModels {
		ids = append(ids, m.ID)
	}
	return ids
}

// LookupVeoModel returns the catalog entry for id. Unknown ids are allowed
// upstream, so the second result only says whether the catalog knows it.
func LookupVeoModel(id string) (VeoModel, bool) {
	for _, m := range VeoModels {
		if m.ID == id {
			return m, true
		}
	}
	return VeoModel{ID: id, Label: id, Resolutions: []string{"720p", "1080p"}}, false
}

// SupportsResolution reports whether m can render res.
func (m VeoModel) SupportsResolution(res string) bool {
	for _, r := range m.Resolutions {
		if strings.EqualFold(r, res) {
			return true
		}
	}
	return false
}

// EstimatedCost is the list price of one clip in USD, or 0 when unknown.
func (m VeoModel) EstimatedCost() float64 {
	return m.PricePerSecond * float64(m.ClipSeconds)
}
