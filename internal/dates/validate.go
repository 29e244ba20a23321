package dates

import (
	"fmt"
	"math"
	"time"
)

// WarningTooClose flags a valid date that leaves little time to prepare.
const WarningTooClose = "too_close"

// Validation is the outcome of ValidateFutureDate.
type Validation struct {
	Valid         bool   `json:"valid"`
	Date          string `json:"date,omitempty"`
	Message       string `json:"message"`
	Warning       string `json:"warning,omitempty"`
	SuggestedDate string `json:"suggested_date,omitempty"`
}

// Validator checks that event dates are in the future.
type Validator struct {
	Now         func() time.Time
	MinLeadDays int
}

// NewValidator creates a validator using the wall clock.
func NewValidator(minLeadDays int) *Validator {
	return &Validator{Now: time.Now, MinLeadDays: minLeadDays}
}

// ValidateFutureDate rejects past dates with a suggestion and warns about
// dates closer than MinLeadDays.
func (v *Validator) ValidateFutureDate(text string) Validation {
	now := v.now()
	today := truncate(now)

	d, ok := Parse(text, now)
	if !ok {
		return Validation{
			Valid:   false,
			Message: "Não consegui entender a data. Pode mandar no formato dd/mm/aaaa?",
		}
	}

	iso := d.Format(ISOLayout)
	if d.Before(today) {
		suggested := d
		for !suggested.After(today) {
			suggested = suggested.AddDate(1, 0, 0)
		}
		return Validation{
			Valid:         false,
			Date:          iso,
			Message:       fmt.Sprintf("A data %s já passou. Você quis dizer %s?", FormatBR(iso), suggested.Format("02/01/2006")),
			SuggestedDate: suggested.Format(ISOLayout),
		}
	}

	days := int(math.Round(d.Sub(today).Hours() / 24))
	if days < v.MinLeadDays {
		return Validation{
			Valid:   true,
			Date:    iso,
			Message: fmt.Sprintf("Anotado: %s. Está bem perto, então vale correr com as compras!", FormatBR(iso)),
			Warning: WarningTooClose,
		}
	}

	return Validation{
		Valid:   true,
		Date:    iso,
		Message: fmt.Sprintf("Data confirmada: %s.", FormatBR(iso)),
	}
}

func (v *Validator) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}
