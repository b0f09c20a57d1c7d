package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"prose around fence", "Sure! Here it is:\n```json\n[1,2]\n```\nEnjoy.", "[1,2]"},
		{"first block wins", "```json\n{\"first\":true}\n```\n```json\n{\"second\":true}\n```", `{"first":true}`},
		{"unterminated fence", "```json\n{\"a\":1}", "```json\n{\"a\":1}"},
		{"empty", "", ""},
		{"not json", "```text\nhello\n```", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkdown(tt.in))
		})
	}
}

func TestStripMarkdown_LeavesUnfencedWhitespace(t *testing.T) {
	in := "  {\"a\":1}\n"
	assert.Equal(t, in, StripMarkdown(in))
}
