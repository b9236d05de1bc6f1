package llm

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// WordWrap breaks each paragraph of text into lines of at most width runes.
// Words longer than width get a line of their own. width <= 0 disables wrapping.
func WordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	paragraphs := strings.Split(text, "\n")
	for i, para := range paragraphs {
		var b strings.Builder
		col := 0
		for _, word := range strings.Fields(para) {
			n := utf8.RuneCountInString(word)
			switch {
			case col == 0:
			case col+1+n > width:
				b.WriteByte('\n')
				col = 0
			default:
				b.WriteByte(' ')
				col++
			}
			b.WriteString(word)
			col += n
		}
		paragraphs[i] = b.String()
	}
	return strings.Join(paragraphs, "\n")
}

// TruncateLines drops blank lines and cuts the rest at maxLen runes, marking cuts with "...".
func TruncateLines(text string, maxLen int) string {
	if text == "" || maxLen <= 0 {
		return text
	}
	lines := lo.FilterMap(strings.Split(text, "\n"), func(line string, _ int) (string, bool) {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			return "", false
		}
		if r := []rune(line); len(r) > maxLen {
			line = string(r[:maxLen]) + "..."
		}
		return line, true
	})
	return strings.Join(lines, "\n")
}

// CleanJSONBlock removes a markdown fence ("```" or "```json") wrapping the whole reply.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	body, fenced := strings.CutPrefix(text, "```")
	if !fenced {
		return text
	}
	body = strings.TrimPrefix(body, "json")
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
