package items

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/textnorm"
)

type baseItem struct {
	name      string
	perPerson float64
	unit      string
	price     float64 // per unit
	category  string
	priority  model.Priority
	alcoholic bool
}

var churrascoBase = []baseItem{
	{"Carne bovina", 0.3, "kg", 60, "carnes", model.PriorityA, false},
	{"Linguiça", 0.1, "kg", 25, "carnes", model.PriorityA, false},
	{"Frango", 0.1, "kg", 20, "carnes", model.PriorityB, false},
	{"Pão de alho", 2, "un", 1.5, "acompanhamentos", model.PriorityB, false},
	{"Farofa", 0.05, "kg", 20, "acompanhamentos", model.PriorityC, false},
	{"Carvão", 0.5, "kg", 8, model.DefaultCategory, model.PriorityA, false},
	{"Refrigerante", 0.6, "l", 5, "bebidas", model.PriorityB, false},
	{"Cerveja", 4, "un", 4, "bebidas", model.PriorityB, true},
	{"Gelo", 0.5, "kg", 3, "bebidas", model.PriorityB, false},
}

var genericBase = []baseItem{
	{"Salgados", 12, "un", 0.8, "petiscos", model.PriorityA, false},
	{"Prato principal", 0.4, "kg", 45, "pratos", model.PriorityA, false},
	{"Refrigerante", 0.6, "l", 5, "bebidas", model.PriorityB, false},
	{"Água", 0.5, "l", 2, "bebidas", model.PriorityB, false},
	{"Doces", 4, "un", 1, "sobremesas", model.PriorityC, false},
	{"Descartáveis", 3, "un", 0.5, "descartáveis", model.PriorityC, false},
}

// Fallback builds the fixed item set for req scaled by headcount. It is
// deterministic apart from the ids returned by newID and always returns at
// least one item.
func Fallback(req Request, newID func() string) []model.Item {
	if newID == nil {
		newID = uuid.NewString
	}
	headcount := req.Headcount
	if headcount <= 0 {
		headcount = 1
	}

	base := genericBase
	if strings.Contains(textnorm.Fold(req.EventType), "churras") {
		base = churrascoBase
	}

	out := make([]model.Item, 0, len(base))
	for _, b := range base {
		if b.alcoholic && req.ExcludeAlcohol {
			continue
		}
		qty := scale(b.perPerson*float64(headcount), b.unit)
		out = append(out, model.Item{
			ID:             newID(),
			Name:           b.name,
			Quantity:       qty,
			Unit:           b.unit,
			EstimatedValue: math.Round(qty*b.price*100) / 100,
			Category:       b.category,
			Priority:       b.priority,
		})
	}
	return out
}

// scale rounds continuous units up to one decimal and counted units up to a
// whole number.
func scale(q float64, unit string) float64 {
	if unit == "un" {
		return math.Ceil(q - 1e-9)
	}
	return math.Ceil(q*10-1e-9) / 10
}
