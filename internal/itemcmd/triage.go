package itemcmd

import (
	"regexp"
	"strings"

	"github.com/capitalize-ai/event-assistant/internal/textnorm"
)

// Confidence is the pre-triage tier of an utterance.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Triage is the result of PreTriage.
type Triage struct {
	IsEditCommand      bool       `json:"is_edit_command"`
	Confidence         Confidence `json:"confidence"`
	SuggestedOperation Operation  `json:"suggested_operation,omitempty"`
}

// Only High allows skipping the LLM.
func (t Triage) High() bool {
	return t.IsEditCommand && t.Confidence == ConfidenceHigh
}

type family struct {
	op Operation
	re *regexp.Regexp
}

// "sem" is left out of the imperative list: "sem problemas" is not an edit.
// Infinitives count too, since courtesy stripping turns "pode tirar" into
// "tirar".
var imperatives = []family{
	{OpRemove, regexp.MustCompile(`^(?:tira|tire|tirar|remove|remova|remover|exclui|exclua|excluir|apaga|apague|apagar|retira|retire|retirar|nao quero)\b`)},
	{OpAdd, regexp.MustCompile(`^` + addVerbs + `\b`)},
	{OpMultiply, regexp.MustCompile(`^(?:` + doubleVerbs + `|` + tripleVerbs + `|` + multiplyVerbs + `)\b`)},
	{OpUpdate, regexp.MustCompile(`^(?:muda|mude|mudar|altera|altere|alterar|aumenta|aumente|aumentar|diminui|diminua|diminuir|troca|troque|trocar|ajusta|ajuste|ajustar|reduz|reduza|reduzir|mais|menos)\b`)},
}

var keywordFamilies = []family{
	{OpRemove, regexp.MustCompile(`\b(?:tirar|tira|remover|remove|excluir|apagar|retirar|sem)\b`)},
	{OpAdd, regexp.MustCompile(`\b(?:adicionar|adiciona|acrescentar|colocar|coloca|incluir|botar|faltou|falta)\b`)},
	{OpMultiply, regexp.MustCompile(`\b(?:dobrar|dobro|dobra|triplicar|triplo|multiplicar|metade)\b`)},
	{OpUpdate, regexp.MustCompile(`\b(?:mudar|alterar|aumentar|diminuir|reduzir|trocar|ajustar|mais|menos|quantidade)\b`)},
}

var (
	digitRe     = regexp.MustCompile(`\d`)
	itemNounRe  = regexp.MustCompile(`\b(?:carnes?|picanha|costela|linguicas?|frango|pao|paes|farofa|vinagrete|queijo|cervejas?|refrigerantes?|refri|sucos?|aguas?|gelo|carvao|salgados?|doces?|bolo|pizzas?|copos?|pratos?|guardanapos?|descartaveis|sobremesas?|bebidas?)\b`)
	listMention = regexp.MustCompile(`\b(?:lista|item|itens)\b`)
)

// PreTriage classifies how likely text is an item edit. It is more permissive
// than Parse: High requires a statement starting with an imperative verb or an
// "X para N" pattern, Medium an edit keyword plus a number or a known item
// noun, Low a mention of the list.
func PreTriage(text string) Triage {
	s := normalize(text)
	if s == "" {
		return Triage{Confidence: ConfidenceNone}
	}

	// A question ("da pra tirar 2 do total?") is never high.
	if !strings.HasSuffix(strings.TrimSpace(text), "?") {
		for _, f := range imperatives {
			if f.re.MatchString(s) {
				return Triage{IsEditCommand: true, Confidence: ConfidenceHigh, SuggestedOperation: f.op}
			}
		}
		if m := updateBareRe.FindStringSubmatch(s); m != nil && itemNounRe.MatchString(m[1]) {
			return Triage{IsEditCommand: true, Confidence: ConfidenceHigh, SuggestedOperation: OpUpdate}
		}
	}

	for _, f := range keywordFamilies {
		if !f.re.MatchString(s) {
			continue
		}
		if digitRe.MatchString(s) || itemNounRe.MatchString(s) {
			return Triage{IsEditCommand: true, Confidence: ConfidenceMedium, SuggestedOperation: f.op}
		}
		if listMention.MatchString(s) {
			return Triage{IsEditCommand: true, Confidence: ConfidenceLow, SuggestedOperation: f.op}
		}
	}

	if listMention.MatchString(textnorm.Clean(text)) {
		return Triage{IsEditCommand: true, Confidence: ConfidenceLow}
	}
	return Triage{Confidence: ConfidenceNone}
}
