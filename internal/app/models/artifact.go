package models

import "strings"

// Artifact is an uploaded diploma file held for the duration of one issuance request
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IsImage reports whether the artifact can be displayed directly by wallets and marketplaces
func (a *Artifact) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(a.ContentType), "image/")
}

// NeedsPreview reports whether a rendered preview has to stand in as the display image.
// Documents (PDF and anything else that is not an image) get a preview and are exposed
// through animation_url instead.
func (a *Artifact) NeedsPreview() bool {
	return !a.IsImage()
}
