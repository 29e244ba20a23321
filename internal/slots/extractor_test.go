package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/event-assistant/internal/model"
)

func newTestExtractor() *Extractor {
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	return &Extractor{Now: func() time.Time { return now }}
}

func TestExtract_TypeAndHeadcount(t *testing.T) {
	res := newTestExtractor().Extract("Churrasco para 20 pessoas", model.CollectedData{})

	assert.Equal(t, "churrasco", res.Type)
	assert.Equal(t, 20, res.Headcount)
	assert.Empty(t, res.Date)
	assert.False(t, res.IsConfirmation)
	assert.ElementsMatch(t, []string{model.SlotEventType, model.SlotHeadcount}, res.Found)
}

func TestExtract_NegationIsNotConfirmation(t *testing.T) {
	res := newTestExtractor().Extract("não quero", model.CollectedData{})
	assert.False(t, res.IsConfirmation)
}

func TestExtract_FallsBackToPrior(t *testing.T) {
	prior := model.CollectedData{EventType: "feijoada", Headcount: 12, Date: "2026-11-01"}
	res := newTestExtractor().Extract("beleza", prior)

	assert.Equal(t, "feijoada", res.Type)
	assert.Equal(t, 12, res.Headcount)
	assert.Equal(t, "2026-11-01", res.Date)
	assert.True(t, res.IsConfirmation)
	assert.Empty(t, res.Found)
}

func TestExtract_FullSentence(t *testing.T) {
	res := newTestExtractor().Extract("churrasco para 20 pessoas sábado", model.CollectedData{})

	assert.Equal(t, "churrasco", res.Type)
	assert.Equal(t, 20, res.Headcount)
	assert.Equal(t, "2026-10-17", res.Date)
}

func TestMatchEventType(t *testing.T) {
	tests := map[string]string{
		"vou fazer um CHURRAS":            "churrasco",
		"Aniversário da minha filha":      "aniversário",
		"festa de aniversario":            "aniversário",
		"uma festinha":                    "festa",
		"piquenique no parque":            "piquenique",
		"noite da pizza":                  "pizza",
		"Festa Junina da escola":          "festa junina",
		"chá de bebê":                     "chá de bebê",
		"quero organizar algo com amigos": "",
	}
	for input, want := range tests {
		assert.Equal(t, want, MatchEventType(input), input)
	}
}

func TestMatchHeadcount(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"20 pessoas", 20},
		{"vinte pessoas", 20},
		{"vinte e cinco convidados", 25},
		{"somos 8", 8},
		{"jantar pra 6", 6},
		{"30", 30},
		{"trinta", 30},
		{"cento e vinte pessoas", 120},
		{"para 12/12", 0},
		{"para 12 de dezembro", 0},
		{"para um churrasco", 0},
		{"0 pessoas", 0},
		{"churrasco", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchHeadcount(tt.input), tt.input)
	}
}

func TestIsConfirmation(t *testing.T) {
	yes := []string{"ok", "Sim!", "beleza", "perfeito", "bora", "pode ser", "OK, pode gerar", "tá bom"}
	no := []string{"não quero", "nao", "assim não", "sim, mas não agora", "churrasco", "", "isso não"}

	for _, s := range yes {
		assert.True(t, IsConfirmation(s), s)
	}
	for _, s := range no {
		assert.False(t, IsConfirmation(s), s)
	}
}

func TestParseNumber(t *testing.T) {
	tests := map[string]int{
		"7":              7,
		"quinze":         15,
		"dezesseis":      16,
		"vinte e dois":   22,
		"cem":            100,
		"duzentos e dez": 210,
		"mil":            1000,
		"dois mil":       2000,
	}
	for input, want := range tests {
		got, ok := ParseNumber(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}

	_, ok := ParseNumber("muitos")
	assert.False(t, ok)
}

func TestParseQuantity(t *testing.T) {
	q, ok := ParseQuantity("1,5")
	assert.True(t, ok)
	assert.Equal(t, 1.5, q)

	q, ok = ParseQuantity("três")
	assert.True(t, ok)
	assert.Equal(t, 3.0, q)

	_, ok = ParseQuantity("abc")
	assert.False(t, ok)
}
