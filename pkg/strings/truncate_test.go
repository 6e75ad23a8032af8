package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOneLine(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "short", input: "bad password", maxLen: 20, want: "bad password"},
		{name: "exact length", input: "hello", maxLen: 5, want: "hello"},
		{name: "truncated", input: "the server rejected the credentials", maxLen: 15, want: "the server r..."},
		{name: "line breaks", input: "line one\r\nline two\n\nthree", maxLen: 50, want: "line one line two three"},
		{name: "tabs and spaces", input: "  a\t\tb   c ", maxLen: 50, want: "a b c"},
		{name: "multibyte", input: "ошибка входа в систему", maxLen: 9, want: "ошибка..."},
		{name: "clamped", input: "abcdefgh", maxLen: 1, want: "a..."},
		{name: "empty", input: "", maxLen: 10, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OneLine(tt.input, tt.maxLen))
		})
	}
}
