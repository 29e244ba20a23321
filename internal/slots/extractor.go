// Package slots extracts event type, headcount, date and confirmation intent
// from free Portuguese text with deterministic rules.
package slots

import (
	"regexp"
	"strings"
	"time"

	"github.com/capitalize-ai/event-assistant/internal/dates"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/textnorm"
)

// Result holds the slots found in one utterance merged with prior values.
type Result struct {
	Type           string `json:"type,omitempty"`
	Headcount      int    `json:"headcount,omitempty"`
	Date           string `json:"date,omitempty"`
	IsConfirmation bool   `json:"is_confirmation"`

	// Found lists the slot names matched in this text, as opposed to carried
	// over from prior values.
	Found []string `json:"found,omitempty"`
}

// HasCore reports whether type and headcount are both known.
func (r Result) HasCore() bool {
	return r.Type != "" && r.Headcount > 0
}

// FoundSlot reports whether slot was matched in the current text.
func (r Result) FoundSlot(slot string) bool {
	for _, s := range r.Found {
		if s == slot {
			return true
		}
	}
	return false
}

// Data returns the result as collected data.
func (r Result) Data() model.CollectedData {
	return model.CollectedData{EventType: r.Type, Headcount: r.Headcount, Date: r.Date}
}

type eventType struct {
	pattern   *regexp.Regexp
	canonical string
}

// Ordered: specific phrases before the generic "festa".
var eventTypes = []eventType{
	{regexp.MustCompile(`\bfesta junina\b|\bsao joao\b|\barraial\b`), "festa junina"},
	{regexp.MustCompile(`\bcha de bebe\b`), "chá de bebê"},
	{regexp.MustCompile(`\bcha de panela\b`), "chá de panela"},
	{regexp.MustCompile(`\bcha revelacao\b`), "chá revelação"},
	{regexp.MustCompile(`\bhappy hour\b`), "happy hour"},
	{regexp.MustCompile(`\bcafe da manha\b|\bbrunch\b`), "café da manhã"},
	{regexp.MustCompile(`\bchurras(?:co|quinho|cada)?\b`), "churrasco"},
	{regexp.MustCompile(`\bpiquenique\b|\bpicnic\b|\bpique-nique\b`), "piquenique"},
	{regexp.MustCompile(`\bjantar(?:zinho)?\b|\bjanta\b`), "jantar"},
	{regexp.MustCompile(`\balmoco\b`), "almoço"},
	{regexp.MustCompile(`\bpizza(?:da|s)?\b`), "pizza"},
	{regexp.MustCompile(`\bfeijoada\b`), "feijoada"},
	{regexp.MustCompile(`\baniversario\b|\bniver\b`), "aniversário"},
	{regexp.MustCompile(`\bconfraternizacao\b|\bconfra\b`), "confraternização"},
	{regexp.MustCompile(`\bcoquetel\b`), "coquetel"},
	{regexp.MustCompile(`\blanche(?:zinho)?\b`), "lanche"},
	{regexp.MustCompile(`\breuniao\b`), "reunião"},
	{regexp.MustCompile(`\bcasamento\b`), "casamento"},
	{regexp.MustCompile(`\bformatura\b`), "formatura"},
	{regexp.MustCompile(`\bceia de natal\b|\bnatal\b`), "natal"},
	{regexp.MustCompile(`\breveillon\b|\bano novo\b`), "réveillon"},
	{regexp.MustCompile(`\bfesta\b|\bfestinha\b`), "festa"},
}

const peopleNouns = `(?:pessoas?|convidados?|adultos?|amigos?|participantes?|criancas?|pax|gente)`

var (
	headcountNoun  = regexp.MustCompile(`\b(` + NumberPattern + `)\s+` + peopleNouns + `\b`)
	headcountFor   = regexp.MustCompile(`\b(?:para|pra)\s+(` + NumberPattern + `)\b`)
	headcountWe    = regexp.MustCompile(`\b(?:somos|seremos|serao|sao|vao ser|vem|virao)\s+(` + NumberPattern + `)\b`)
	headcountAlone = regexp.MustCompile(`^(` + NumberPattern + `)(?:\s+` + peopleNouns + `)?$`)
	monthFollows   = regexp.MustCompile(`^\s+de\s+(?:janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)\b`)
)

var confirmationPhrases = []string{
	"manda ver", "pode ser", "ta bom", "tudo certo", "pode gerar", "pode mandar",
	"ok", "okay", "sim", "beleza", "blz", "perfeito", "bora", "fechado", "pode",
	"confirmo", "confirma", "confirmado", "confirmar", "isso", "certo", "claro",
	"show", "top", "massa", "combinado", "positivo", "otimo", "excelente", "yes",
	"vamos", "gostei", "s",
}

var negationWords = []string{"nao", "nem", "nunca", "negativo", "jamais", "n"}

var confirmationRe = func() *regexp.Regexp {
	quoted := make([]string, len(confirmationPhrases))
	for i, p := range confirmationPhrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?:^|\s)(?:` + strings.Join(quoted, "|") + `)(?:\s|$)`)
}()

// Extractor is the rule-based slot parser. Now resolves relative and
// year-less dates; it defaults to the wall clock.
type Extractor struct {
	Now func() time.Time
}

// NewExtractor creates an extractor using the wall clock.
func NewExtractor() *Extractor {
	return &Extractor{Now: time.Now}
}

// Extract parses text, falling back to prior values for slots not found.
// It performs no I/O.
func (e *Extractor) Extract(text string, prior model.CollectedData) Result {
	clean := textnorm.Clean(text)
	res := Result{}

	if t := MatchEventType(clean); t != "" {
		res.Type = t
		res.Found = append(res.Found, model.SlotEventType)
	} else {
		res.Type = prior.EventType
	}

	if n := MatchHeadcount(clean); n > 0 {
		res.Headcount = n
		res.Found = append(res.Found, model.SlotHeadcount)
	} else if prior.Headcount > 0 {
		res.Headcount = prior.Headcount
	}

	if d, ok := dates.ParseISO(clean, e.now()); ok {
		res.Date = d
		res.Found = append(res.Found, model.SlotDate)
	} else {
		res.Date = prior.Date
	}

	res.IsConfirmation = IsConfirmation(clean)
	return res
}

func (e *Extractor) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// MatchEventType returns the canonical event type named in text, if any.
func MatchEventType(text string) string {
	clean := textnorm.Clean(text)
	for _, et := range eventTypes {
		if et.pattern.MatchString(clean) {
			return et.canonical
		}
	}
	return ""
}

// MatchHeadcount returns the positive headcount stated in text, or 0.
func MatchHeadcount(text string) int {
	clean := textnorm.Clean(text)

	if m := headcountNoun.FindStringSubmatch(clean); m != nil {
		if n, ok := ParseNumber(m[1]); ok && n > 0 {
			return n
		}
	}
	for _, re := range []*regexp.Regexp{headcountFor, headcountWe} {
		for _, loc := range re.FindAllStringSubmatchIndex(clean, -1) {
			if followedByDate(clean, loc[3]) {
				continue
			}
			word := clean[loc[2]:loc[3]]
			if word == "um" || word == "uma" {
				continue
			}
			if n, ok := ParseNumber(word); ok && n > 0 {
				return n
			}
		}
	}
	if m := headcountAlone.FindStringSubmatch(clean); m != nil {
		if n, ok := ParseNumber(m[1]); ok && n > 0 {
			return n
		}
	}
	return 0
}

// followedByDate reports whether the number ending at end is the day of a
// date ("para 12/12", "para 12 de dezembro").
func followedByDate(s string, end int) bool {
	if end >= len(s) {
		return false
	}
	if monthFollows.MatchString(s[end:]) {
		return true
	}
	switch s[end] {
	case '/', '-', '.', ',', ':':
		return end+1 < len(s) && s[end+1] >= '0' && s[end+1] <= '9'
	}
	return false
}

// IsConfirmation reports whether text is an affirmative answer. Any negation
// word disqualifies the utterance.
func IsConfirmation(text string) bool {
	clean := textnorm.Clean(text)
	if clean == "" {
		return false
	}
	// Punctuation kept by Clean (",", ".") would otherwise glue to a token.
	words := strings.Fields(strings.NewReplacer(",", " ", ".", " ", ":", " ").Replace(clean))
	for _, w := range words {
		for _, neg := range negationWords {
			if w == neg {
				return false
			}
		}
	}
	return confirmationRe.MatchString(strings.Join(words, " "))
}
