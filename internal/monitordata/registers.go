package monitordata

import (
	"errors"
	"fmt"
	"regexp"
)

// RegisterID is a raw diagnostic register code such as "D57".
type RegisterID string

// DefaultLeadingRegister receives a bare leading integer in MONITORDATA (command X position).
const DefaultLeadingRegister RegisterID = "D174"

var registerIDPattern = regexp.MustCompile(`^D\d+$`)

var (
	// ErrEmptyDictionary is returned when no registers are declared.
	ErrEmptyDictionary = errors.New("monitordata: empty register dictionary")
	// ErrInvalidRegisterID is returned for ids that are not register codes.
	ErrInvalidRegisterID = errors.New("monitordata: invalid register id")
	// ErrDuplicateRegister is returned when an id or label is declared twice.
	ErrDuplicateRegister = errors.New("monitordata: duplicate register")
)

// Register maps a register code to its display label.
type Register struct {
	ID    RegisterID `yaml:"id" json:"id"`
	Label string     `yaml:"label" json:"label"`
}

// Dictionary is an immutable, ordered register table.
type Dictionary struct {
	registers []Register
	index     map[RegisterID]int
	byLabel   map[string]RegisterID
	leading   RegisterID
}

// NewDictionary validates registers and builds a dictionary.
// An empty leading id falls back to DefaultLeadingRegister.
func NewDictionary(registers []Register, leading RegisterID) (*Dictionary, error) {
	if len(registers) == 0 {
		return nil, ErrEmptyDictionary
	}
	if leading == "" {
		leading = DefaultLeadingRegister
	}
	d := &Dictionary{
		registers: make([]Register, 0, len(registers)),
		index:     make(map[RegisterID]int, len(registers)),
		byLabel:   make(map[string]RegisterID, len(registers)),
		leading:   leading,
	}
	for _, reg := range registers {
		if !registerIDPattern.MatchString(string(reg.ID)) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRegisterID, reg.ID)
		}
		if reg.Label == "" {
			reg.Label = string(reg.ID)
		}
		if _, ok := d.index[reg.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRegister, reg.ID)
		}
		if _, ok := d.byLabel[reg.Label]; ok {
			return nil, fmt.Errorf("%w: label %q", ErrDuplicateRegister, reg.Label)
		}
		d.index[reg.ID] = len(d.registers)
		d.byLabel[reg.Label] = reg.ID
		d.registers = append(d.registers, reg)
	}
	if _, ok := d.index[leading]; !ok {
		return nil, fmt.Errorf("%w: leading register %s not declared", ErrInvalidRegisterID, leading)
	}
	return d, nil
}

// DefaultDictionary returns the stacker-crane register set.
func DefaultDictionary() *Dictionary {
	d, err := NewDictionary(defaultRegisters(), DefaultLeadingRegister)
	if err != nil {
		panic(err)
	}
	return d
}

func defaultRegisters() []Register {
	return []Register{
		{ID: "D57", Label: "X_Distance_mm (D57)"},
		{ID: "D130", Label: "Start_Bank (D130)"},
		{ID: "D131", Label: "Start_Pos_mm (D131)"},
		{ID: "D133", Label: "Start_Level_mm (D133)"},
		{ID: "D134", Label: "End_Bank (D134)"},
		{ID: "D135", Label: "End_Position_mm (D135)"},
		{ID: "D137", Label: "End_Level_mm (D137)"},
		{ID: "D138", Label: "Pallet_ID (D138)"},
		{ID: "D140", Label: "Present_Bay_Arm1 (D140)"},
		{ID: "D145", Label: "Present_Level (D145)"},
		{ID: "D146", Label: "Status_Arm1 (D146)"},
		{ID: "D147", Label: "Status (D147)"},
		{ID: "D148", Label: "Command Machine (D148)"},
		{ID: "D174", Label: "Command_X_Pos (D174)"},
	}
}

// LabelFor returns the label for a register id.
func (d *Dictionary) LabelFor(id RegisterID) (string, bool) {
	if d == nil {
		return "", false
	}
	i, ok := d.index[id]
	if !ok {
		return "", false
	}
	return d.registers[i].Label, true
}

// IDForLabel resolves a display label back to its register id.
func (d *Dictionary) IDForLabel(label string) (RegisterID, bool) {
	if d == nil {
		return "", false
	}
	id, ok := d.byLabel[label]
	return id, ok
}

// Index returns the column position of a register.
func (d *Dictionary) Index(id RegisterID) (int, bool) {
	if d == nil {
		return 0, false
	}
	i, ok := d.index[id]
	return i, ok
}

// Known reports whether the id is declared.
func (d *Dictionary) Known(id RegisterID) bool {
	_, ok := d.Index(id)
	return ok
}

// Len returns the number of registers.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.registers)
}

// Leading returns the register that receives a bare leading integer.
func (d *Dictionary) Leading() RegisterID {
	if d == nil {
		return DefaultLeadingRegister
	}
	return d.leading
}

// Registers returns a copy of the declared registers in order.
func (d *Dictionary) Registers() []Register {
	if d == nil {
		return nil
	}
	out := make([]Register, len(d.registers))
	copy(out, d.registers)
	return out
}

// IDs returns register ids in declaration order.
func (d *Dictionary) IDs() []RegisterID {
	if d == nil {
		return nil
	}
	out := make([]RegisterID, len(d.registers))
	for i, reg := range d.registers {
		out[i] = reg.ID
	}
	return out
}

// Labels returns register labels in declaration order.
func (d *Dictionary) Labels() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.registers))
	for i, reg := range d.registers {
		out[i] = reg.Label
	}
	return out
}
