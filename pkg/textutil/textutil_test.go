package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "single word", text: "hello", want: 1},
		{name: "repeated spaces", text: "a b  c", want: 3},
		{name: "apostrophe splits", text: "it's a test", want: 4},
		{name: "punctuation only", text: "... !!! ---", want: 0},
		{name: "underscore is a word char", text: "snake_case_name", want: 1},
		{name: "digits", text: "room 101, floor 3", want: 4},
		{name: "hyphen splits", text: "well-known", want: 2},
		{name: "cyrillic", text: "привет мир", want: 2},
		{name: "newlines and tabs", text: "one\ntwo\tthree\r\n", want: 3},
		{name: "leading and trailing separators", text: "  hi there  ", want: 2},
		{name: "email", text: "a@x.com", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, CountTokens(tt.text))
		})
	}
}

func TestCountTokens_LargeText(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 1<<20)

	assert.Equal(t, 1<<20, CountTokens(text))
}

func TestCountTokens_InvalidUTF8IsSeparator(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, CountTokens("ab\xffcd"))
}

func TestSanitize_ValidUnchanged(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "héllo", Sanitize("héllo"))
}

func TestSanitize_DropsInvalidBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abcd", Sanitize("ab\xff\xfecd"))
}

func TestTrimBOM(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "mail", TrimBOM("\ufeffmail"))
	assert.Equal(t, "mail", TrimBOM("mail"))
}
