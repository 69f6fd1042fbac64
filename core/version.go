package core

import (
	"strings"
	"unicode"

	"golang.org/x/mod/semver"
)

// CompareVersions returns -1, 0 or +1 when a is older than, equal to or newer
// than b. Versions carrying a semver pre-release or build suffix are ordered
// by semver rules; everything else is ordered segment by segment, numerically
// where both segments are numbers, so that "0.10" is newer than "0.9".
func CompareVersions(a, b string) int {
	a, b = trimVersionPrefix(a), trimVersionPrefix(b)
	tagA, tagB := "v"+a, "v"+b
	if semver.IsValid(tagA) && semver.IsValid(tagB) && (hasSemverSuffix(tagA) || hasSemverSuffix(tagB)) {
		return semver.Compare(tagA, tagB)
	}
	return compareSegments(versionSegments(a), versionSegments(b))
}

func trimVersionPrefix(version string) string {
	version = strings.TrimSpace(version)
	if len(version) > 1 && (version[0] == 'v' || version[0] == 'V') && unicode.IsDigit(rune(version[1])) {
		return version[1:]
	}
	return version
}

func hasSemverSuffix(tag string) bool {
	return semver.Prerelease(tag) != "" || semver.Build(tag) != ""
}

func versionSegments(version string) []string {
	return strings.FieldsFunc(version, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func compareSegments(a, b []string) int {
	for x := 0; x < len(a) || x < len(b); x++ {
		left, right := segmentAt(a, x), segmentAt(b, x)
		if result := compareSegment(left, right); result != 0 {
			return result
		}
	}
	return 0
}

func segmentAt(segments []string, index int) string {
	if index < len(segments) {
		return segments[index]
	}
	return "0"
}

func compareSegment(left, right string) int {
	if isNumeric(left) && isNumeric(right) {
		left, right = trimLeadingZeros(left), trimLeadingZeros(right)
		if len(left) != len(right) {
			return sign(len(left) - len(right))
		}
	}
	return strings.Compare(left, right)
}

func isNumeric(segment string) bool {
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return segment != ""
}

func trimLeadingZeros(segment string) string {
	trimmed := strings.TrimLeft(segment, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

func sign(value int) int {
	switch {
	case value < 0:
		return -1
	case value > 0:
		return 1
	default:
		return 0
	}
}
