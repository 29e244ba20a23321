package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "aniversario", Fold("Aniversário"))
	assert.Equal(t, "nao quero linguica", Fold("NÃO quero LINGUIÇA"))
	assert.Equal(t, "pao de alho", Fold("pão de alho"))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "churrasco para 20 pessoas sabado", Clean("Churrasco para 20 pessoas sábado!"))
	assert.Equal(t, "dia 12/12/2026", Clean("  dia   12/12/2026 ?"))
}

func TestContainsWord(t *testing.T) {
	assert.True(t, ContainsWord("Sim, pode!", "sim"))
	assert.False(t, ContainsWord("assim não", "sim"))
}
