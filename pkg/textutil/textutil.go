// Package textutil provides text utilities for message bodies: word-token
// counting and lossy UTF-8 cleanup.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// byteOrderMark is the UTF-8 encoded U+FEFF prefix some exporters emit.
const byteOrderMark = "\ufeff"

// CountTokens returns the number of maximal runs of word characters in text.
// Word characters are letters, digits and the underscore, so "it's" counts
// as two tokens. Empty text yields zero.
func CountTokens(text string) int {
	tokens := 0
	inWord := false

	for _, r := range text {
		word := isWordRune(r)
		if word && !inWord {
			tokens++
		}

		inWord = word
	}

	return tokens
}

func isWordRune(r rune) bool {
	if r < utf8.RuneSelf {
		return r == '_' ||
			('a' <= r && r <= 'z') ||
			('A' <= r && r <= 'Z') ||
			('0' <= r && r <= '9')
	}

	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Sanitize drops invalid UTF-8 sequences from s.
// Valid input is returned unchanged without allocating.
func Sanitize(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	return strings.ToValidUTF8(s, "")
}

// TrimBOM removes a leading UTF-8 byte order mark.
func TrimBOM(s string) string {
	return strings.TrimPrefix(s, byteOrderMark)
}
