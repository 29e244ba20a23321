package orchestrator

import (
	"regexp"

	"github.com/capitalize-ai/event-assistant/internal/textnorm"
)

// Patterns run on textnorm.Clean output.
var (
	greetingRe   = regexp.MustCompile(`^(?:oi+|ola|opa|eai|e ai|hey|hello|salve|bom dia|boa tarde|boa noite)\b`)
	helpRe       = regexp.MustCompile(`\b(?:ajuda|help|socorro|como funciona|como voce funciona|o que (?:voce|vc) faz)\b`)
	regenerateRe = regexp.MustCompile(`\b(?:outra lista|nova lista|lista nova|(?:refaz|refazer|gera|gerar|monta|montar|faz|fazer)(?: a| uma)? (?:lista )?(?:de novo|novamente|outra))\b`)
	noAlcoholRe  = regexp.MustCompile(`\bsem (?:alcool|bebidas? alcoolicas?|alcoolicos?|cerveja|bebida)\b|\bninguem bebe\b|\bnao (?:vai ter|quero) (?:alcool|bebida alcoolica)\b`)
	peopleRe     = regexp.MustCompile(`\b(?:pessoas?|convidados?|adultos?|criancas?|participantes?|gente)\b`)
	forceRe      = regexp.MustCompile(`\b(?:gera|gerar|gere|monta|montar|monte|cria|criar|crie) (?:a |uma )?lista\b`)
)

func isGreeting(text string) bool { return greetingRe.MatchString(textnorm.Clean(text)) }

func isHelp(text string) bool { return helpRe.MatchString(textnorm.Clean(text)) }

func wantsRegenerate(text string) bool { return regenerateRe.MatchString(textnorm.Clean(text)) }

func mentionsPeople(text string) bool { return peopleRe.MatchString(textnorm.Clean(text)) }

func excludesAlcohol(text string) bool { return noAlcoholRe.MatchString(textnorm.Clean(text)) }

// asksToGenerate reports an explicit request to build the list now.
func asksToGenerate(text string) bool {
	clean := textnorm.Clean(text)
	return forceRe.MatchString(clean) && !regenerateRe.MatchString(clean)
}
