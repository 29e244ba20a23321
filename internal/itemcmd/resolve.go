package itemcmd

import (
	"strings"

	"github.com/capitalize-ai/event-assistant/internal/textnorm"
)

var resolveStopwords = map[string]bool{
	"de": true, "do": true, "da": true, "dos": true, "das": true,
	"com": true, "sem": true, "para": true, "pra": true, "uma": true,
	"uns": true, "umas": true, "mais": true, "menos": true,
}

// Resolve finds the index of the item in names that best matches name, or -1.
// Tiers are tried in order: folded exact match, folded substring in either
// direction, then keyword overlap. Within a tier the first entry wins, except
// that keyword overlap prefers the entry sharing the most keywords.
func Resolve(name string, names []string) int {
	needle := textnorm.Clean(name)
	if needle == "" || len(names) == 0 {
		return -1
	}

	folded := make([]string, len(names))
	for i, n := range names {
		folded[i] = textnorm.Clean(n)
	}

	for i, f := range folded {
		if f == needle {
			return i
		}
	}

	for i, f := range folded {
		if f == "" {
			continue
		}
		if strings.Contains(f, needle) || strings.Contains(needle, f) {
			return i
		}
	}

	want := keywords(needle)
	if len(want) == 0 {
		return -1
	}
	best, bestScore := -1, 0
	for i, f := range folded {
		score := 0
		for kw := range keywords(f) {
			if want[kw] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// keywords returns the significant stems of folded text: tokens of three or
// more letters, stopwords removed, trailing plural "s" dropped.
func keywords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range textnorm.Words(s) {
		if len(tok) < 3 || resolveStopwords[tok] {
			continue
		}
		out[stem(tok)] = true
	}
	return out
}

func stem(tok string) string {
	switch {
	case strings.HasSuffix(tok, "oes"):
		return strings.TrimSuffix(tok, "oes") + "ao"
	case strings.HasSuffix(tok, "aes"):
		return strings.TrimSuffix(tok, "aes") + "ao"
	case strings.HasSuffix(tok, "is") && len(tok) > 4:
		return strings.TrimSuffix(tok, "is") + "l"
	case strings.HasSuffix(tok, "s") && len(tok) > 3:
		return strings.TrimSuffix(tok, "s")
	}
	return tok
}
