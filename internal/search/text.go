package search

import (
	"strings"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
)

// SearchText flattens the searchable parts of a VA profile into one lowercased string.
func SearchText(va *models.VA) string {
	if va == nil {
		return ""
	}
	parts := []string{va.Name, va.Bio, va.Hero, va.Industry, va.VideoTranscription}
	parts = append(parts, va.Skills...)
	parts = append(parts, va.Certifications...)
	for _, l := range va.Languages {
		parts = append(parts, l.Language+" "+l.Proficiency)
	}
	for _, p := range va.Portfolio {
		parts = append(parts, p.Title+" "+p.Description)
	}
	if len(va.Specialties) > 0 {
		parts = append(parts, strings.Join(va.Specialties, " "))
	}
	parts = append(parts, va.Location.Display())

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.ToLower(strings.Join(kept, " "))
}
