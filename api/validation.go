package api

import (
	"fmt"
	"regexp"

	"golang.org/x/net/idna"

	"github.com/dnstrail/dnstrail/util"
)

// nolint:gochecknoglobals
var domainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)

// ValidateDomain normalizes the passed domain and returns its ASCII form.
// Internationalized names are accepted and converted via IDNA.
func ValidateDomain(domain string) (string, error) {
	normalized := util.NormalizeDomain(domain)
	if normalized == "" {
		return "", fmt.Errorf("domain is empty")
	}

	ascii, err := idna.Lookup.ToASCII(normalized)
	if err != nil {
		return "", fmt.Errorf("invalid domain '%s': %w", normalized, err)
	}

	if !domainRegex.MatchString(ascii) {
		return "", fmt.Errorf("invalid domain '%s'", normalized)
	}

	return ascii, nil
}
