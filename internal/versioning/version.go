// Package versioning compares extension version strings.
package versioning

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
)

const versionPrefixConstant = "v"

// Compare returns -1, 0, or 1 when left is older than, equal to, or newer than right.
// Semantic versions compare by precedence; anything else falls back to segment comparison.
func Compare(left string, right string) int {
	leftVersion, leftError := parseSemver(left)
	rightVersion, rightError := parseSemver(right)
	if leftError == nil && rightError == nil {
		return leftVersion.Compare(rightVersion)
	}
	return compareSegments(normalize(left), normalize(right))
}

// IsNewer reports whether candidate is strictly newer than current.
func IsNewer(candidate string, current string) bool {
	trimmedCandidate := normalize(candidate)
	if len(trimmedCandidate) == 0 {
		return false
	}
	if len(normalize(current)) == 0 {
		return true
	}
	return Compare(trimmedCandidate, current) > 0
}

// Normalize strips surrounding whitespace and a leading "v".
func Normalize(version string) string {
	return normalize(version)
}

func normalize(version string) string {
	return strings.TrimPrefix(strings.TrimSpace(version), versionPrefixConstant)
}

func parseSemver(version string) (*semver.Version, error) {
	return semver.NewVersion(normalize(version))
}

func compareSegments(left string, right string) int {
	leftSegments := splitSegments(left)
	rightSegments := splitSegments(right)
	for index := 0; index < len(leftSegments) || index < len(rightSegments); index++ {
		if index >= len(leftSegments) {
			return -1
		}
		if index >= len(rightSegments) {
			return 1
		}
		if comparison := compareSegment(leftSegments[index], rightSegments[index]); comparison != 0 {
			return comparison
		}
	}
	return 0
}

// compareSegment orders numeric segments numerically and ranks them above words.
func compareSegment(left string, right string) int {
	leftNumber, leftNumeric := parseNumber(left)
	rightNumber, rightNumeric := parseNumber(right)
	switch {
	case leftNumeric && rightNumeric:
		switch {
		case leftNumber < rightNumber:
			return -1
		case leftNumber > rightNumber:
			return 1
		default:
			return 0
		}
	case leftNumeric:
		return 1
	case rightNumeric:
		return -1
	default:
		return strings.Compare(strings.ToLower(left), strings.ToLower(right))
	}
}

func parseNumber(segment string) (uint64, bool) {
	number, parseError := strconv.ParseUint(segment, 10, 64)
	return number, parseError == nil
}

func splitSegments(version string) []string {
	return strings.FieldsFunc(version, func(character rune) bool {
		return !unicode.IsLetter(character) && !unicode.IsDigit(character)
	})
}
