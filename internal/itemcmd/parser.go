package itemcmd

import (
	"regexp"
	"strings"

	"github.com/capitalize-ai/event-assistant/internal/slots"
	"github.com/capitalize-ai/event-assistant/internal/textnorm"
)

const (
	units = `(kg|quilos?|kilos?|g|gramas?|l|litros?|ml|un|unidades?|pacotes?|latas?|garrafas?|caixas?|fardos?|sacos?|duzias?|porcoes?)`
)

const (
	removeVerbs   = `(?:tira|tire|tirar|remove|remova|remover|exclui|exclua|excluir|apaga|apague|apagar|retira|retire|retirar|nao quero(?:\s+mais)?|sem)`
	addVerbs      = `(?:adiciona|adicione|adicionar|acrescenta|acrescente|coloca|coloque|colocar|inclui|inclua|incluir|poe|ponha|bota|bote|botar)`
	updateVerbs   = `(?:muda|mude|mudar|altera|altere|alterar|aumenta|aumente|aumentar|diminui|diminua|diminuir|troca|troque|ajusta|ajuste|deixa|deixe|reduz|reduza)`
	doubleVerbs   = `(?:dobra|dobre|dobrar|duplica|duplique|duplicar)`
	tripleVerbs   = `(?:triplica|triplique|triplicar)`
	multiplyVerbs = `(?:multiplica|multiplique|multiplicar)`
	halveVerbs    = `(?:corta|corte|reduz|reduza|diminui|diminua)`

	// assentWords may lead an edit ("ok, tira a cerveja") and are dropped.
	assentWords = `(?:ok|okay|sim|beleza|blz|perfeito|otimo|show|certo|ta bom|tudo bem|entao|agora|ah)`
)

// q captures a decimal or written quantity.
var q = `(\d+(?:[.,]\d+)?|` + slots.NumberPattern + `)`

var (
	removeRe      = regexp.MustCompile(`^` + removeVerbs + `\s+(.+)$`)
	addRe         = regexp.MustCompile(`^` + addVerbs + `\s+(?:mais\s+)?(?:` + q + `\s*` + units + `?\s+(?:de\s+)?)?(.+)$`)
	updateRe      = regexp.MustCompile(`^` + updateVerbs + `\s+(.+?)\s+(?:para|pra|pro)\s+` + q + `\s*` + units + `?$`)
	updateBareRe  = regexp.MustCompile(`^(.+?)\s+(?:para|pra|pro)\s+` + q + `\s*` + units + `?$`)
	doubleRe      = regexp.MustCompile(`^` + doubleVerbs + `\s+(.+)$`)
	tripleRe      = regexp.MustCompile(`^` + tripleVerbs + `\s+(.+)$`)
	multiplyRe    = regexp.MustCompile(`^` + multiplyVerbs + `\s+(.+?)\s+por\s+` + q + `$`)
	halveRe       = regexp.MustCompile(`^` + halveVerbs + `\s+(.+?)\s+(?:pela|pra|para a|a)\s+metade$`)
	deltaRe       = regexp.MustCompile(`^(mais|menos)\s+` + q + `\s*` + units + `?\s+(?:de\s+)?(.+)$`)
	deltaVerbRe   = regexp.MustCompile(`^(aumenta|aumente|diminui|diminua|reduz|reduza)\s+` + q + `\s*` + units + `?\s+(?:de\s+)?(.+)$`)
	courtesyRe    = regexp.MustCompile(`^(?:por favor|favor|pode|poderia|voce pode|da pra|quero que|e|` + assentWords + `)[,\s]+`)
	articleRe     = regexp.MustCompile(`^(?:o|a|os|as|um|uma|uns|umas|de|do|da|dos|das|quantidade|qtd|qtde)\s+`)
	objectTailRe  = regexp.MustCompile(`\s+(?:da lista|na lista|por favor|tambem|ai)$`)
	allObjectsRe  = regexp.MustCompile(`^(?:tudo|todos|todas|tudo isso|toda a lista|a lista toda|lista toda|lista inteira|tudo da lista|todos os itens|todas as coisas)$`)
	quantifierRe  = regexp.MustCompile(`^(?:todos os|todas as|todo o|toda a)\s+`)
)

// categorySynonyms maps folded words to the canonical category name.
var categorySynonyms = map[string]string{
	"bebida":            "bebidas",
	"bebidas":           "bebidas",
	"drinks":            "bebidas",
	"carnes":            "carnes",
	"acompanhamento":    "acompanhamentos",
	"acompanhamentos":   "acompanhamentos",
	"sobremesa":         "sobremesas",
	"sobremesas":        "sobremesas",
	"doces":             "sobremesas",
	"descartavel":       "descartaveis",
	"descartaveis":      "descartaveis",
	"petiscos":          "petiscos",
	"salgados":          "petiscos",
	"aperitivos":        "petiscos",
	"tira-gostos":       "petiscos",
	"frios":             "frios",
	"pratos principais": "pratos",
}

// CategoryFor returns the canonical category for a folded phrase, if any.
func CategoryFor(phrase string) (string, bool) {
	c, ok := categorySynonyms[textnorm.Fold(strings.TrimSpace(phrase))]
	return c, ok
}

// Parse matches text against the ordered edit pattern families and returns
// the first command found, or nil.
func Parse(text string) *Command {
	s := normalize(text)
	if s == "" {
		return nil
	}

	if m := removeRe.FindStringSubmatch(s); m != nil {
		return withTarget(&Command{Operation: OpRemove, RawInput: text}, m[1])
	}

	if m := addRe.FindStringSubmatch(s); m != nil {
		// "coloca a cerveja pra 30" sets an absolute quantity.
		if u := updateBareRe.FindStringSubmatch(m[3]); u != nil && m[1] == "" {
			return absoluteUpdate(text, u[1], u[2], u[3])
		}
		cmd := &Command{Operation: OpAdd, Target: TargetSpecific, RawInput: text}
		if m[1] != "" {
			if v, ok := slots.ParseQuantity(m[1]); ok && v > 0 {
				cmd.Quantity = float(v)
			}
		}
		cmd.Unit = canonicalUnit(m[2])
		cmd.ItemName = cleanObject(m[3])
		if cmd.ItemName == "" {
			return nil
		}
		return cmd
	}

	if m := updateRe.FindStringSubmatch(s); m != nil {
		return absoluteUpdate(text, m[1], m[2], m[3])
	}
	if m := updateBareRe.FindStringSubmatch(s); m != nil {
		return absoluteUpdate(text, m[1], m[2], m[3])
	}

	if m := doubleRe.FindStringSubmatch(s); m != nil {
		return withTarget(&Command{Operation: OpMultiply, Multiplier: float(2), RawInput: text}, m[1])
	}
	if m := tripleRe.FindStringSubmatch(s); m != nil {
		return withTarget(&Command{Operation: OpMultiply, Multiplier: float(3), RawInput: text}, m[1])
	}
	if m := multiplyRe.FindStringSubmatch(s); m != nil {
		v, ok := slots.ParseQuantity(m[2])
		if !ok || v <= 0 {
			return nil
		}
		return withTarget(&Command{Operation: OpMultiply, Multiplier: float(v), RawInput: text}, m[1])
	}
	if m := halveRe.FindStringSubmatch(s); m != nil {
		return withTarget(&Command{Operation: OpMultiply, Multiplier: float(0.5), RawInput: text}, m[1])
	}

	if m := deltaRe.FindStringSubmatch(s); m != nil {
		return deltaUpdate(text, m[1] == "menos", m[2], m[3], m[4])
	}
	if m := deltaVerbRe.FindStringSubmatch(s); m != nil {
		negative := strings.HasPrefix(m[1], "dimin") || strings.HasPrefix(m[1], "reduz")
		return deltaUpdate(text, negative, m[2], m[3], m[4])
	}

	return nil
}

func absoluteUpdate(raw, object, amount, unit string) *Command {
	v, ok := slots.ParseQuantity(amount)
	if !ok || v < 0 {
		return nil
	}
	cmd := &Command{Operation: OpUpdate, Quantity: float(v), Unit: canonicalUnit(unit), RawInput: raw}
	return withTarget(cmd, object)
}

func deltaUpdate(raw string, negative bool, amount, unit, object string) *Command {
	v, ok := slots.ParseQuantity(amount)
	if !ok || v <= 0 {
		return nil
	}
	if negative {
		v = -v
	}
	cmd := &Command{Operation: OpUpdate, QuantityDelta: float(v), Unit: canonicalUnit(unit), RawInput: raw}
	return withTarget(cmd, object)
}

// withTarget classifies the object phrase as all, a category or a specific item.
func withTarget(cmd *Command, object string) *Command {
	obj := cleanObject(object)
	if obj == "" {
		return nil
	}
	if allObjectsRe.MatchString(obj) {
		cmd.Target = TargetAll
		return cmd
	}
	if cat, ok := CategoryFor(quantifierRe.ReplaceAllString(obj, "")); ok {
		cmd.Target = TargetCategory
		cmd.Category = cat
		return cmd
	}
	cmd.Target = TargetSpecific
	cmd.ItemName = obj
	return cmd
}

func normalize(text string) string {
	s := textnorm.Clean(text)
	s = strings.TrimRight(s, " .,:")
	for {
		next := courtesyRe.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	return s
}

func cleanObject(object string) string {
	s := strings.TrimSpace(strings.Trim(object, " .,:"))
	s = objectTailRe.ReplaceAllString(s, "")
	for {
		next := articleRe.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

func canonicalUnit(u string) string {
	switch {
	case u == "":
		return ""
	case u == "kg" || strings.HasPrefix(u, "quilo") || strings.HasPrefix(u, "kilo"):
		return "kg"
	case u == "g" || strings.HasPrefix(u, "grama"):
		return "g"
	case u == "l" || strings.HasPrefix(u, "litro"):
		return "l"
	case u == "ml":
		return "ml"
	case u == "un" || strings.HasPrefix(u, "unidade"):
		return "un"
	case strings.HasPrefix(u, "porc"):
		return "porções"
	default:
		return u
	}
}
