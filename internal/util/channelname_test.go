package util

import "testing"

func TestSanitizeChannelName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// Basic normalization
		{"lowercase", "ALICE", "alice"},
		{"spaces to hyphens", "alice smith", "alice-smith"},
		{"underscores to hyphens", "alice_smith", "alice-smith"},
		{"already normalized", "alice-smith", "alice-smith"},

		// Unicode
		{"accented letters decompose", "José", "jose"},
		{"umlaut decomposes", "Jürgen", "jurgen"},
		{"fullwidth digits decompose", "ｕｓｅｒ４２", "user42"},
		{"cjk replaced", "田中taro", "taro"},

		// Special characters
		{"punctuation", "alice!smith?", "alice-smith"},
		{"dots", "a.b.c", "a-b-c"},
		{"emoji", "🔥alice🔥", "alice"},

		// Hyphen handling
		{"multiple hyphens", "a--b", "a-b"},
		{"multiple separators collapse", "a _ . b", "a-b"},
		{"leading hyphens", "--alice", "alice"},
		{"trailing hyphens", "alice--", "alice"},

		// Fallback
		{"empty string", "", "user"},
		{"only symbols", "!!!", "user"},
		{"only emoji", "🔥🔥🔥", "user"},
		{"only hyphens", "---", "user"},

		// Real-world shapes
		{"discord tag-ish", "Alice#1234", "alice-1234"},
		{"mixed case with digits", "Bob2027", "bob2027"},
		{"spaces uppercase punctuation", "Dr. Alice O'Brien", "dr-alice-o-brien"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeChannelName(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeChannelName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
