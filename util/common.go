package util

import (
	"sort"
	"strings"

	"github.com/dnstrail/dnstrail/log"
)

// nolint:gochecknoglobals
var (
	// Version is set at build time via ldflags
	Version = "undefined"
	// BuildTime is set at build time via ldflags
	BuildTime = "undefined"
)

// NormalizeDomain brings a domain name into the canonical cache key form:
// lower case, surrounding whitespace removed, trailing dot stripped.
func NormalizeDomain(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// ExtractTLD returns the last label of a domain name ("example.com" -> "com").
func ExtractTLD(domain string) string {
	parts := strings.Split(NormalizeDomain(domain), ".")

	return parts[len(parts)-1]
}

// SortedKeys returns the keys of a string set in lexical order.
func SortedKeys(set map[string]struct{}) []string {
	result := make([]string, 0, len(set))
	for k := range set {
		result = append(result, k)
	}

	sort.Strings(result)

	return result
}

// LogOnError logs the message only if error is not nil
func LogOnError(message string, err error) {
	if err != nil {
		log.Log().Error(message, err)
	}
}

// FatalOnError logs the message only if error is not nil and exits the program execution
func FatalOnError(message string, err error) {
	if err != nil {
		log.Log().Fatal(message, err)
	}
}
