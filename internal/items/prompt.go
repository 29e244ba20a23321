package items

import (
	"fmt"
	"strings"
)

const systemPrompt = `Você é um planejador de eventos brasileiro experiente e monta listas de compras realistas.

Regras:
1. Escolha itens típicos do tipo de evento e da ocasião no Brasil. Nada de listas genéricas: um churrasco pede carnes, carvão, farofa e pão de alho; um aniversário infantil pede salgadinhos, bolo e docinhos.
2. Dimensione as quantidades para um encontro de 4 a 5 horas:
   - refeição principal: 400 a 500 g de proteína por pessoa;
   - coquetel ou festa com finger food: 12 a 15 salgados por pessoa;
   - bebidas não alcoólicas: 600 ml a 1 litro por pessoa;
   - gelo: cerca de 500 g por pessoa quando houver bebida gelada.
3. O valor estimado é o TOTAL do item em reais (quantidade vezes preço unitário), não o preço unitário.
4. Prioridade A para o essencial, B para o importante e C para o opcional.
5. Responda APENAS com um array JSON, sem texto antes ou depois, no formato:
[{"name": "Picanha", "quantity": 4.5, "unit": "kg", "estimated_value": 360.0, "category": "carnes", "priority": "A"}]`

const noAlcoholRule = "6. NÃO inclua bebidas alcoólicas (cerveja, vinho, destilados, drinks)."

// BuildPrompt returns the system and user prompts for req.
func BuildPrompt(req Request) (system, user string) {
	system = systemPrompt
	if req.ExcludeAlcohol {
		system += "\n" + noAlcoholRule
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Monte a lista de compras para: %s.\n", req.EventType)
	fmt.Fprintf(&b, "Número de pessoas: %d.\n", max(req.Headcount, 1))
	if req.Occasion != "" {
		fmt.Fprintf(&b, "Ocasião: %s.\n", req.Occasion)
	}
	if req.Menu != "" {
		fmt.Fprintf(&b, "Cardápio desejado: %s.\n", req.Menu)
	}
	if req.ExcludeAlcohol {
		b.WriteString("Sem bebidas alcoólicas.\n")
	}
	return system, b.String()
}
