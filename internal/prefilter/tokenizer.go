package prefilter

import (
	"strings"
	"unicode"
)

// Built-in union of common English and Russian function words. Tokens in this
// set never count as stop-marker candidates.
var stopwords = map[string]bool{
	// English
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "his": true,
	"has": true, "have": true, "had": true, "this": true, "that": true,
	"with": true, "from": true, "they": true, "will": true, "would": true,
	"there": true, "their": true, "what": true, "about": true, "which": true,
	"when": true, "were": true, "been": true, "more": true, "into": true,
	"after": true, "over": true, "than": true, "its": true, "who": true,
	"how": true, "why": true, "where": true, "also": true, "just": true,
	"said": true, "says": true, "new": true, "now": true, "may": true,
	"could": true, "amid": true, "via": true,
	// Russian
	"это": true, "как": true, "что": true, "или": true, "его": true,
	"она": true, "оно": true, "они": true, "мы": true, "вы": true,
	"так": true, "все": true, "всё": true, "уже": true, "еще": true,
	"ещё": true, "был": true, "была": true, "было": true, "были": true,
	"для": true, "при": true, "про": true, "под": true, "над": true,
	"из": true, "по": true, "на": true, "не": true, "но": true,
	"ли": true, "же": true, "бы": true, "от": true, "до": true,
	"без": true, "со": true, "за": true, "том": true, "тем": true,
	"чем": true, "если": true, "когда": true, "после": true, "перед": true,
	"между": true, "только": true, "также": true, "может": true, "быть": true,
}

// Tokenize lowercases a title, strips punctuation, and drops short tokens and
// stopwords. The result is deterministic for a given input.
func Tokenize(title string) []string {
	lowered := strings.ToLower(title)

	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 2 {
			continue
		}
		if stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// IsStopword reports whether the token belongs to the built-in function-word set.
func IsStopword(token string) bool {
	return stopwords[strings.ToLower(token)]
}
