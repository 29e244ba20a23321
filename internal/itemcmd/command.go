// Package itemcmd turns short Portuguese edit requests ("tira a cerveja",
// "dobra a carne") into structured shopping-list edits and applies them.
package itemcmd

// Operation is the kind of edit requested.
type Operation string

const (
	OpAdd      Operation = "add"
	OpRemove   Operation = "remove"
	OpUpdate   Operation = "update"
	OpMultiply Operation = "multiply"
)

// Target is the scope an edit applies to.
type Target string

const (
	TargetSpecific Target = "specific"
	TargetCategory Target = "category"
	TargetAll      Target = "all"
)

// Command is a structured edit produced and consumed within a single turn.
type Command struct {
	Operation     Operation `json:"operation"`
	Target        Target    `json:"target"`
	ItemName      string    `json:"item_name,omitempty"`
	Category      string    `json:"category,omitempty"`
	Quantity      *float64  `json:"quantity,omitempty"`
	QuantityDelta *float64  `json:"quantity_delta,omitempty"`
	Multiplier    *float64  `json:"multiplier,omitempty"`
	Unit          string    `json:"unit,omitempty"`
	RawInput      string    `json:"raw_input"`
}

func float(v float64) *float64 {
	return &v
}
