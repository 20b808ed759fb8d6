package ocr

import (
	"regexp"
	"strings"
)

// Option markers are printed as "(A)".."(E)" on the sheets, so detection
// anchors on the parenthesized form.
var optionMarker = regexp.MustCompile(`\(([A-E])\)`)

// DetectLetter extracts an option letter from raw recognized text. The
// parenthesized marker wins; a bare single letter is accepted as a
// fallback for recognizers that return only the character itself.
func DetectLetter(text string) string {
	if m := optionMarker.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	s := strings.ToUpper(strings.TrimSpace(text))
	if len(s) == 1 && s[0] >= 'A' && s[0] <= 'E' {
		return s
	}
	return ""
}
