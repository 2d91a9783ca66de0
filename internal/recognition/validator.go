// Package recognition turns the OCR fragments of a frame into validated,
// deduplicated plate detections.
package recognition

import (
	"regexp"

	"lpr-service/internal/domain/anpr"
	"lpr-service/internal/utils"
)

var (
	mercosulPattern = regexp.MustCompile(`^[A-Z]{3}\d[A-Z]\d{2}$`)
	legacyPattern   = regexp.MustCompile(`^[A-Z]{3}\d{4}$`)
)

// Validate checks text against the Mercosul and legacy grammars, first as
// read and then with O/I/S corrected to 0/1/5. Car and motorcycle plates share
// the same grammar, so combination alone selects the *_MOTO categories.
func Validate(text string, combination bool) (string, anpr.Category, bool) {
	normalized := utils.NormalizePlate(text)

	for _, candidate := range []string{normalized, utils.CorrectOCRConfusions(normalized)} {
		switch {
		case mercosulPattern.MatchString(candidate):
			if combination {
				return candidate, anpr.CategoryMercosulMoto, true
			}
			return candidate, anpr.CategoryMercosulCar, true
		case legacyPattern.MatchString(candidate):
			if combination {
				return candidate, anpr.CategoryLegacyMoto, true
			}
			return candidate, anpr.CategoryLegacyCar, true
		}
	}

	return "", "", false
}
