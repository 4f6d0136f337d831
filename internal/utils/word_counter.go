package utils

import (
	"strings"
	"unicode"
)

// CountWords counts the words in a markdown string, ignoring markdown
// punctuation so formatting does not inflate the count.
func CountWords(markdown string) int {
	return len(strings.Fields(cleanMarkdown(markdown)))
}

// cleanMarkdown strips the markdown syntax that would otherwise be counted
// as words or glue separate words together.
func cleanMarkdown(markdown string) string {
	text := removeCodeBlocks(markdown)

	replacer := strings.NewReplacer(
		"`", "",
		"**", "",
		"*", "",
		"__", "",
		"_", "",
		"~~", "",
		"#", "",
		">", "",
		"---", "",
	)
	text = replacer.Replace(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		// Numbered list markers ("1. ", "12. ")
		if dot := strings.Index(line, ". "); dot > 0 && allDigits(line[:dot]) {
			line = line[dot+2:]
		}
		lines[i] = line
	}
	return strings.Join(lines, " ")
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// removeCodeBlocks drops fenced ```...``` blocks entirely; code is not prose.
func removeCodeBlocks(text string) string {
	for {
		start := strings.Index(text, "```")
		if start == -1 {
			break
		}
		end := strings.Index(text[start+3:], "```")
		if end == -1 {
			break
		}
		text = text[:start] + text[start+end+6:]
	}
	return text
}
