package generation

import (
	"strings"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
)

const promptPreamble = "Redesign the product shown in the reference image. " +
	"Keep the product's shape and proportions intact and apply the following design direction."

// styleDescriptions is the closed style table used when enhancing prompts.
// A style outside the table contributes no description line.
var styleDescriptions = map[domain.Style]string{
	domain.StyleModern:     "Style: modern — clean lines, bold contrast, contemporary color palette.",
	domain.StyleVintage:    "Style: vintage — aged textures, muted warm tones, classic typography.",
	domain.StyleMinimalist: "Style: minimalist — generous negative space, restrained palette, no ornament.",
	domain.StyleLuxury:     "Style: luxury — rich materials, gold accents, refined detailing.",
	domain.StylePlayful:    "Style: playful — vivid colors, rounded shapes, whimsical motifs.",
	domain.StyleArtistic:   "Style: artistic — painterly strokes, expressive composition, gallery feel.",
}

var designRequirements = []string{
	"Render the product itself, not a scene around it.",
	"Keep the output photorealistic and print-ready.",
	"Do not add text, watermarks, or logos.",
	"Preserve the viewing angle of the reference image.",
}

// EnhancePrompt deterministically builds the outbound prompt from the user's
// literal prompt and the selected style. Identical inputs always produce
// byte-identical output.
func EnhancePrompt(prompt string, style domain.Style) string {
	var b strings.Builder

	b.WriteString(promptPreamble)
	b.WriteString("\n\nDesign request: ")
	b.WriteString(prompt)

	if desc, ok := styleDescriptions[style]; ok {
		b.WriteString("\n")
		b.WriteString(desc)
	}

	b.WriteString("\n\nRequirements:")
	for _, req := range designRequirements {
		b.WriteString("\n- ")
		b.WriteString(req)
	}

	return b.String()
}
