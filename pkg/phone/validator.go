// Package phone validates and normalizes phone numbers for lead records.
package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ValidationResult contains the result of phone number validation
type ValidationResult struct {
	IsValid     bool   `json:"is_valid"`
	E164Format  string `json:"e164_format"`
	CountryCode string `json:"country_code"`
}

// Validate parses a raw phone number against a default region (ISO 3166-1
// alpha-2, e.g. "US") and reports validity plus the E.164 rendering.
func Validate(raw, defaultRegion string) (*ValidationResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("phone number is empty")
	}

	num, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil {
		return nil, fmt.Errorf("failed parsing phone number: %w", err)
	}

	result := &ValidationResult{
		IsValid:     phonenumbers.IsValidNumber(num),
		CountryCode: phonenumbers.GetRegionCodeForNumber(num),
	}
	if result.IsValid {
		result.E164Format = phonenumbers.Format(num, phonenumbers.E164)
	}

	return result, nil
}

// Normalize returns the E.164 form of a valid number, or an error when the
// number does not parse or is not dialable.
func Normalize(raw, defaultRegion string) (string, error) {
	result, err := Validate(raw, defaultRegion)
	if err != nil {
		return "", err
	}
	if !result.IsValid {
		return "", fmt.Errorf("invalid phone number: %s", raw)
	}
	return result.E164Format, nil
}
