// Package util holds the naming rules shared by the storage backends.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxFileNameRunes caps stored names; the extension is always kept.
const maxFileNameRunes = 120

// ErrInvalidFileName is returned for names that cannot be stored.
var ErrInvalidFileName = errors.New("invalid file name")

// NamespaceKey maps an owner id to a stable, path- and glob-safe directory name.
func NamespaceKey(owner string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(owner)))
	return hex.EncodeToString(sum[:])
}

// SafeFileName flattens an uploaded name into a single path segment. Traversal
// sequences are rejected; separators become '_' and control characters are dropped.
func SafeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsControl(r) || r == utf8.RuneError:
		default:
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	if s == "" || s == "." {
		return "", ErrInvalidFileName
	}
	return truncateName(s), nil
}

func truncateName(s string) string {
	if utf8.RuneCountInString(s) <= maxFileNameRunes {
		return s
	}
	ext := path.Ext(s)
	if utf8.RuneCountInString(ext) >= maxFileNameRunes/2 {
		ext = ""
	}
	base := []rune(strings.TrimSuffix(s, ext))
	return string(base[:maxFileNameRunes-utf8.RuneCountInString(ext)]) + ext
}
