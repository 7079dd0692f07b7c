package util

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidFileName is returned when nothing usable is left of a name.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName reduces name to a download-safe file name: letters,
// digits, dots, dashes and underscores. Runs of anything else collapse into
// one underscore. Traversal patterns are rejected outright.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	if b.Len() == 0 {
		return "", ErrInvalidFileName
	}
	return b.String(), nil
}
