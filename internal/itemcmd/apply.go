package itemcmd

import (
	"errors"
	"math"
	"strings"

	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/textnorm"
)

var (
	ErrItemNotFound    = errors.New("itemcmd: no item matches the command")
	ErrNothingToChange = errors.New("itemcmd: command does not change the list")
)

// Outcome describes what Apply did.
type Outcome struct {
	Operation Operation `json:"operation"`
	Affected  []string  `json:"affected"`
	Added     bool      `json:"added,omitempty"`
}

// Apply executes cmd against items and returns the new list. The input slice
// is not modified. Estimated values scale with quantity. newID supplies ids
// for added items.
func Apply(items []model.Item, cmd *Command, newID func() string) ([]model.Item, Outcome, error) {
	if cmd == nil {
		return nil, Outcome{}, ErrNothingToChange
	}
	out := make([]model.Item, len(items))
	copy(out, items)
	res := Outcome{Operation: cmd.Operation}

	if cmd.Operation == OpAdd {
		return add(out, cmd, newID, res)
	}

	targets, err := selectTargets(out, cmd)
	if err != nil {
		return nil, res, err
	}

	switch cmd.Operation {
	case OpRemove:
		drop := make(map[int]bool, len(targets))
		for _, i := range targets {
			drop[i] = true
			res.Affected = append(res.Affected, out[i].Name)
		}
		kept := out[:0]
		for i, it := range out {
			if !drop[i] {
				kept = append(kept, it)
			}
		}
		return kept, res, nil

	case OpUpdate:
		if cmd.Quantity == nil && cmd.QuantityDelta == nil {
			return nil, res, ErrNothingToChange
		}
		changed := false
		for _, i := range targets {
			it := &out[i]
			qty := it.Quantity
			if cmd.Quantity != nil {
				qty = *cmd.Quantity
				if cmd.Unit != "" && cmd.Target == TargetSpecific {
					it.Unit = cmd.Unit
				}
			} else {
				qty += *cmd.QuantityDelta
			}
			if setQuantity(it, math.Max(qty, 0)) {
				changed = true
			}
			res.Affected = append(res.Affected, it.Name)
		}
		if !changed {
			return nil, res, ErrNothingToChange
		}
		return out, res, nil

	case OpMultiply:
		if cmd.Multiplier == nil || *cmd.Multiplier <= 0 || *cmd.Multiplier == 1 {
			return nil, res, ErrNothingToChange
		}
		for _, i := range targets {
			it := &out[i]
			setQuantity(it, it.Quantity*(*cmd.Multiplier))
			res.Affected = append(res.Affected, it.Name)
		}
		return out, res, nil
	}
	return nil, res, ErrNothingToChange
}

func add(out []model.Item, cmd *Command, newID func() string, res Outcome) ([]model.Item, Outcome, error) {
	if strings.TrimSpace(cmd.ItemName) == "" {
		return nil, res, ErrNothingToChange
	}
	qty := 1.0
	if cmd.Quantity != nil && *cmd.Quantity > 0 {
		qty = *cmd.Quantity
	}

	names := make([]string, len(out))
	for i, it := range out {
		names[i] = it.Name
	}
	if i := Resolve(cmd.ItemName, names); i >= 0 {
		setQuantity(&out[i], out[i].Quantity+qty)
		res.Affected = append(res.Affected, out[i].Name)
		return out, res, nil
	}

	item := model.Item{
		ID:       newID(),
		Name:     displayName(cmd.ItemName),
		Quantity: qty,
		Unit:     cmd.Unit,
		Category: model.DefaultCategory,
		Priority: model.PriorityB,
	}
	if item.Unit == "" {
		item.Unit = model.DefaultUnit
	}
	if cat, ok := CategoryFor(cmd.ItemName); ok {
		item.Category = cat
	}
	if len(out) > 0 {
		item.EventID = out[0].EventID
	}
	res.Affected = append(res.Affected, item.Name)
	res.Added = true
	return append(out, item), res, nil
}

func selectTargets(items []model.Item, cmd *Command) ([]int, error) {
	var idx []int
	switch cmd.Target {
	case TargetAll:
		for i := range items {
			idx = append(idx, i)
		}
	case TargetCategory:
		want := textnorm.Fold(cmd.Category)
		for i, it := range items {
			if textnorm.Fold(it.Category) == want {
				idx = append(idx, i)
			}
		}
	default:
		names := make([]string, len(items))
		for i, it := range items {
			names[i] = it.Name
		}
		if i := Resolve(cmd.ItemName, names); i >= 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, ErrItemNotFound
	}
	return idx, nil
}

// setQuantity changes the quantity of it, scaling the estimated value by the
// same ratio, and reports whether anything changed.
func setQuantity(it *model.Item, qty float64) bool {
	qty = roundQuantity(qty, it.Unit)
	if qty == it.Quantity {
		return false
	}
	if it.Quantity > 0 {
		it.EstimatedValue = math.Round(it.EstimatedValue*qty/it.Quantity*100) / 100
	}
	it.Quantity = qty
	return true
}

func roundQuantity(q float64, unit string) float64 {
	if q <= 0 {
		return 0
	}
	switch textnorm.Fold(unit) {
	case "kg", "g", "l", "ml":
		return math.Round(q*100) / 100
	}
	return math.Ceil(q - 1e-9)
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
