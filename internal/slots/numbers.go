package slots

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/capitalize-ai/event-assistant/internal/textnorm"
)

var numberWords = map[string]int{
	"zero": 0, "um": 1, "uma": 1, "dois": 2, "duas": 2, "tres": 3,
	"quatro": 4, "cinco": 5, "seis": 6, "sete": 7, "oito": 8, "nove": 9,
	"dez": 10, "onze": 11, "doze": 12, "treze": 13, "catorze": 14,
	"quatorze": 14, "quinze": 15, "dezesseis": 16, "dezessete": 17,
	"dezoito": 18, "dezenove": 19, "vinte": 20, "trinta": 30,
	"quarenta": 40, "cinquenta": 50, "sessenta": 60, "setenta": 70,
	"oitenta": 80, "noventa": 90, "cem": 100, "cento": 100,
	"duzentos": 200, "duzentas": 200, "trezentos": 300, "trezentas": 300,
	"quatrocentos": 400, "quinhentos": 500, "seiscentos": 600,
	"setecentos": 700, "oitocentos": 800, "novecentos": 900,
}

// NumberPattern matches a digit run or a written Portuguese number phrase
// ("vinte e cinco"). It is meant to be embedded in larger expressions over
// textnorm.Clean output.
var NumberPattern = buildNumberPattern()

var numberRe = regexp.MustCompile(`^` + NumberPattern + `$`)

func buildNumberPattern() string {
	words := make([]string, 0, len(numberWords)+1)
	for w := range numberWords {
		words = append(words, w)
	}
	words = append(words, "mil")
	// Longest first so "dezesseis" wins over "dez".
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	word := `(?:` + strings.Join(words, "|") + `)`
	return `(?:\d+|` + word + `(?:\s+(?:e\s+)?` + word + `)*)`
}

// ParseNumber converts digits or written number words to an integer.
func ParseNumber(s string) (int, bool) {
	s = strings.TrimSpace(textnorm.Fold(s))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if !numberRe.MatchString(s) {
		return 0, false
	}

	total, current, seen := 0, 0, false
	for _, tok := range strings.Fields(s) {
		switch {
		case tok == "e":
			continue
		case tok == "mil":
			if current == 0 {
				current = 1
			}
			total += current * 1000
			current = 0
			seen = true
		default:
			v, ok := numberWords[tok]
			if !ok {
				return 0, false
			}
			current += v
			seen = true
		}
	}
	if !seen {
		return 0, false
	}
	return total + current, true
}

// ParseQuantity parses a decimal quantity that may use a comma separator
// ("1,5") or a written number.
func ParseQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
		return f, true
	}
	n, ok := ParseNumber(s)
	return float64(n), ok
}
