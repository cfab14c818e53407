package domain

import "time"

// Style is a closed set of visual styles a design can be generated in.
type Style string

const (
	StyleModern     Style = "modern"
	StyleVintage    Style = "vintage"
	StyleMinimalist Style = "minimalist"
	StyleLuxury     Style = "luxury"
	StylePlayful    Style = "playful"
	StyleArtistic   Style = "artistic"
)

// Styles lists every supported style in display order.
var Styles = []Style{
	StyleModern,
	StyleVintage,
	StyleMinimalist,
	StyleLuxury,
	StylePlayful,
	StyleArtistic,
}

// Valid reports whether s is one of the supported styles.
func (s Style) Valid() bool {
	for _, known := range Styles {
		if s == known {
			return true
		}
	}
	return false
}

// GenerationRequest is the caller-supplied input for one generation.
// Immutable once handed to the orchestrator.
type GenerationRequest struct {
	ReferenceImage string `json:"reference_image"` // base64, optionally a data URL
	Prompt         string `json:"prompt"`
	Style          Style  `json:"style,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	ImageCount     int    `json:"image_count,omitempty"`
}

// DesignMetadata holds measurements taken from the generated image.
type DesignMetadata struct {
	AspectRatio  string `json:"aspect_ratio"`
	ByteSize     int    `json:"byte_size"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	GenerationMs int64  `json:"generation_ms"`
}

// GeneratedDesign is the result record of one successful generation.
// Created exactly once per orchestration; owned by the repository after save.
type GeneratedDesign struct {
	ID                 string         `json:"id"`
	ImageData          string         `json:"image_data"` // base64
	Prompt             string         `json:"prompt"`
	EnhancedPrompt     string         `json:"enhanced_prompt"`
	Style              Style          `json:"style"`
	ReferenceImage     string         `json:"reference_image"`
	CreatedAt          time.Time      `json:"created_at"`
	OwnerArtifactID    string         `json:"owner_artifact_id"`
	OwnerArtifactTitle string         `json:"owner_artifact_title"`
	Metadata           DesignMetadata `json:"metadata"`
}

// DraftState is an unsubmitted, in-progress user input persisted so it
// survives a reload within its TTL. Valid only while the TTL holds and the
// owner artifact matches the caller's.
type DraftState struct {
	Screenshot      string    `json:"screenshot"`
	Prompt          string    `json:"prompt"`
	Style           Style     `json:"style"`
	AspectRatio     string    `json:"aspect_ratio"`
	OwnerArtifactID string    `json:"owner_artifact_id"`
	SavedAt         time.Time `json:"saved_at"`
}
