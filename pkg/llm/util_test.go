package llm

import (
	"testing"
)

func TestWordWrap(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{
			name:  "No wrap needed",
			input: "Hello World",
			width: 20,
			want:  "Hello World",
		},
		{
			name:  "Simple wrap",
			input: "Hello World",
			width: 5,
			want:  "Hello\nWorld",
		},
		{
			name:  "Long word preserved",
			input: "Hello Superextralongword World",
			width: 10,
			want:  "Hello\nSuperextralongword\nWorld",
		},
		{
			name:  "Paragraphs kept",
			input: "Day 1: Alfama\nTram 28 to the castle",
			width: 12,
			want:  "Day 1:\nAlfama\nTram 28 to\nthe castle",
		},
		{
			name:  "Counts runes",
			input: "café café",
			width: 9,
			want:  "café café",
		},
		{
			name:  "Zero width",
			input: "Hello World",
			width: 0,
			want:  "Hello World",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WordWrap(tt.input, tt.width); got != tt.want {
				t.Errorf("WordWrap() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateLines(t *testing.T) {
	in := "short\n\n" + "abcdefghij" + "\n   \nend"
	want := "short\nabcde...\nend"
	if got := TruncateLines(in, 5); got != want {
		t.Errorf("TruncateLines() = %q, want %q", got, want)
	}
}

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Markdown json block",
			input: "```json\n{\"key\": \"value\"}\n```",
			want:  `{"key": "value"}`,
		},
		{
			name:  "Generic fence",
			input: "```\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "Surrounding whitespace",
			input: "  \n```json {\"a\":1} ```  \n",
			want:  `{"a":1}`,
		},
		{
			name:  "No fence",
			input: ` {"a":1} `,
			want:  `{"a":1}`,
		},
		{
			name:  "Fence without closing",
			input: "```json\n{\"a\":1}",
			want:  `{"a":1}`,
		},
		{
			name:  "Prose before fence is left alone",
			input: "Here you go: ```json {} ```",
			want:  "Here you go: ```json {} ```",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanJSONBlock(tt.input)
			if got != tt.want {
				t.Errorf("CleanJSONBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}
