package constants

import (
	"strings"
)

type LineType string

const (
	LineTypeLabor    LineType = "labor"
	LineTypeMaterial LineType = "material"
	LineTypeOther    LineType = "other"
)

var allLineTypes = []LineType{
	LineTypeLabor,
	LineTypeMaterial,
	LineTypeOther,
}

// Canonicalize maps loose labels (as typed by users or returned by the model) to a LineType.
func Canonicalize(input string) (LineType, bool) {
	if input == "" {
		return LineTypeOther, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]LineType{
		"labour":    LineTypeLabor,
		"service":   LineTypeLabor,
		"services":  LineTypeLabor,
		"work":      LineTypeLabor,
		"materials": LineTypeMaterial,
		"part":      LineTypeMaterial,
		"parts":     LineTypeMaterial,
		"supplies":  LineTypeMaterial,
		"fee":       LineTypeOther,
	}

	if lt, ok := synonyms[normalized]; ok {
		return lt, true
	}

	for _, lt := range allLineTypes {
		if normalized == string(lt) {
			return lt, true
		}
	}

	return LineTypeOther, false
}
