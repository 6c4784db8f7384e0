package index

import (
	"strings"
	"unicode/utf8"

	"github.com/meghashyamc/docsearch/db"
)

// minWordLength is the shortest title or description word that gets indexed.
const minWordLength = 3

// documentTokens lists every token the builder indexes for a document.
// Subject and tags are indexed whole and without the length filter.
func documentTokens(document db.Document) []string {
	tokens := wordTokens(document.Title)
	tokens = append(tokens, wordTokens(document.Description)...)

	if document.Subject != "" {
		tokens = append(tokens, document.Subject)
	}
	tokens = append(tokens, document.Tags...)

	return tokens
}

func wordTokens(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(text) {
		if utf8.RuneCountInString(word) < minWordLength {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}
