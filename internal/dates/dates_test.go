package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday.
var fixedNow = time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"iso", "dia 2026-12-05", "2026-12-05", true},
		{"numeric", "vai ser 12/12/2026", "2026-12-12", true},
		{"numeric two digit year", "12-12-26", "2026-12-12", true},
		{"partial future", "no dia 20/11", "2026-11-20", true},
		{"partial rolls over", "dia 10/01", "2027-01-10", true},
		{"verbose", "12 de dezembro", "2026-12-12", true},
		{"verbose with year", "5 de março de 2027", "2027-03-05", true},
		{"tomorrow", "amanhã", "2026-10-15", true},
		{"day after tomorrow", "depois de amanhã", "2026-10-16", true},
		{"today", "hoje à noite", "2026-10-14", true},
		{"weekday", "churrasco sábado", "2026-10-17", true},
		{"same weekday is next week", "quarta-feira", "2026-10-21", true},
		{"invalid day", "31/02/2027", "", false},
		{"nothing", "churrasco para 20 pessoas", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseISO(tt.input, fixedNow)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatBR(t *testing.T) {
	assert.Equal(t, "12/12/2026", FormatBR("2026-12-12"))
	assert.Equal(t, "garbage", FormatBR("garbage"))
}

func TestValidateFutureDate(t *testing.T) {
	v := &Validator{Now: func() time.Time { return fixedNow }, MinLeadDays: 2}

	t.Run("past date is rejected with suggestion", func(t *testing.T) {
		res := v.ValidateFutureDate("10/10/2026")
		assert.False(t, res.Valid)
		assert.Equal(t, "2027-10-10", res.SuggestedDate)
		assert.Contains(t, res.Message, "já passou")
	})

	t.Run("near date warns but is valid", func(t *testing.T) {
		res := v.ValidateFutureDate("amanhã")
		require.True(t, res.Valid)
		assert.Equal(t, WarningTooClose, res.Warning)
		assert.Equal(t, "2026-10-15", res.Date)
	})

	t.Run("far date is valid", func(t *testing.T) {
		res := v.ValidateFutureDate("2026-12-20")
		assert.True(t, res.Valid)
		assert.Empty(t, res.Warning)
	})

	t.Run("unparseable", func(t *testing.T) {
		res := v.ValidateFutureDate("algum dia")
		assert.False(t, res.Valid)
		assert.Empty(t, res.Date)
	})
}
