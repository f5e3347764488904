package util

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNamespaceKey(t *testing.T) {
	got := NamespaceKey("google:12345")
	if got != NamespaceKey(" google:12345 ") {
		t.Fatalf("expected surrounding space to be ignored")
	}
	if got == NamespaceKey("google:12346") {
		t.Fatalf("expected distinct owners to get distinct keys")
	}
	if len(got) != 64 || strings.Trim(got, "0123456789abcdef") != "" {
		t.Fatalf("expected 64 hex characters, got %q", got)
	}
}

func TestSafeFileName(t *testing.T) {
	cases := map[string]string{
		"resume.pdf":        "resume.pdf",
		"  My CV.docx  ":    "My CV.docx",
		"a/b\\c.txt":        "a_b_c.txt",
		"tab\tname\x00.pdf": "tabname.pdf",
	}
	for in, want := range cases {
		got, err := SafeFileName(in)
		if err != nil {
			t.Fatalf("SafeFileName(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("SafeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSafeFileNameRejects(t *testing.T) {
	for _, in := range []string{"", "   ", ".", "../etc/passwd", "cv..pdf", "\x01\x02"} {
		if _, err := SafeFileName(in); !errors.Is(err, ErrInvalidFileName) {
			t.Fatalf("SafeFileName(%q): expected ErrInvalidFileName, got %v", in, err)
		}
	}
}

func TestSafeFileNameTruncatesKeepingExtension(t *testing.T) {
	got, err := SafeFileName(strings.Repeat("é", 300) + ".pdf")
	if err != nil {
		t.Fatalf("SafeFileName: %v", err)
	}
	if utf8.RuneCountInString(got) != maxFileNameRunes {
		t.Fatalf("expected %d runes, got %d", maxFileNameRunes, utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("expected extension kept, got %q", got)
	}
}
