package monitordata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultDictionary(t *testing.T) {
	t.Parallel()

	dict := DefaultDictionary()
	require.Equal(t, 14, dict.Len())
	require.Equal(t, DefaultLeadingRegister, dict.Leading())

	label, ok := dict.LabelFor("D138")
	require.True(t, ok)
	require.Equal(t, "Pallet_ID (D138)", label)

	_, ok = dict.LabelFor("D999")
	require.False(t, ok)

	id, ok := dict.IDForLabel("Present_Level (D145)")
	require.True(t, ok)
	require.Equal(t, RegisterID("D145"), id)

	require.Len(t, dict.Labels(), dict.Len())
	require.Equal(t, RegisterID("D57"), dict.IDs()[0])
}

func TestNewDictionaryValidation(t *testing.T) {
	t.Parallel()

	_, err := NewDictionary(nil, "")
	require.ErrorIs(t, err, ErrEmptyDictionary)

	_, err = NewDictionary([]Register{{ID: "X1"}}, "")
	require.ErrorIs(t, err, ErrInvalidRegisterID)

	_, err = NewDictionary([]Register{{ID: "D1"}, {ID: "D1"}}, "D1")
	require.ErrorIs(t, err, ErrDuplicateRegister)

	_, err = NewDictionary([]Register{{ID: "D1", Label: "a"}, {ID: "D2", Label: "a"}}, "D1")
	require.ErrorIs(t, err, ErrDuplicateRegister)

	// leading register must be declared
	_, err = NewDictionary([]Register{{ID: "D1"}}, "")
	require.ErrorIs(t, err, ErrInvalidRegisterID)

	dict, err := NewDictionary([]Register{{ID: "D1"}}, "D1")
	require.NoError(t, err)
	label, _ := dict.LabelFor("D1")
	require.Equal(t, "D1", label)
}

func TestRegistersReturnsCopy(t *testing.T) {
	t.Parallel()

	dict := DefaultDictionary()
	regs := dict.Registers()
	regs[0].Label = "mutated"

	label, _ := dict.LabelFor(regs[0].ID)
	require.NotEqual(t, "mutated", label)
}
