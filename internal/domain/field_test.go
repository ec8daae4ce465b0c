package domain

import (
	"errors"
	"testing"
)

// TestFieldFromValues_Conventions tests the sentinel and mask conventions.
func TestFieldFromValues_Conventions(t *testing.T) {
	f, err := FieldFromValues([]int{2, 2}, []float64{1, DefaultMissingValue, 3, 4}, nil, nil)
	if err != nil {
		t.Fatalf("FieldFromValues: %v", err)
	}
	if !f.Missing.IsSentinel() {
		t.Fatalf("expected sentinel convention, got %v", f.Missing)
	}
	if n := f.CountMissing(); n != 1 {
		t.Errorf("CountMissing: expected 1, got %d", n)
	}

	m, err := FieldFromValues([]int{4}, []float64{1, 2, 3, 4}, []bool{false, true, true, false}, nil)
	if err != nil {
		t.Fatalf("FieldFromValues masked: %v", err)
	}
	if !m.Missing.IsMasked() || m.CountMissing() != 2 {
		t.Errorf("expected 2 masked cells, got %d (%v)", m.CountMissing(), m.Missing)
	}
	if m.Missing.String() != "masked" {
		t.Errorf("String: got %q", m.Missing.String())
	}
}

func TestFieldFromValues_Errors(t *testing.T) {
	s := -1.0
	_, err := FieldFromValues([]int{1}, []float64{0}, []bool{false}, &s)
	var conflict *ConflictingConfigError
	if !errors.As(err, &conflict) {
		t.Errorf("mask and sentinel: expected ConflictingConfigError, got %v", err)
	}

	var usage *UsageError
	for name, shape := range map[string][]int{"empty": {}, "zero": {0, 2}, "size": {3}} {
		_, err := FieldFromValues(shape, []float64{1, 2}, nil, nil)
		if !errors.As(err, &usage) {
			t.Errorf("%s: expected UsageError, got %v", name, err)
		}
	}
}

// TestField_As tests conversions between missing-value conventions.
func TestField_As(t *testing.T) {
	s := -1.0
	f, err := FieldFromValues([]int{3}, []float64{5, -1, 7}, nil, &s)
	if err != nil {
		t.Fatal(err)
	}

	m := f.As(Masked())
	want := []bool{false, true, false}
	for i := range want {
		if m.Mask[i] != want[i] {
			t.Errorf("mask[%d]: expected %v, got %v", i, want[i], m.Mask[i])
		}
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate masked: %v", err)
	}

	back := m.As(Sentinel(99))
	if back.Data.Elements[1] != 99 || back.Data.Elements[0] != 5 {
		t.Errorf("As(Sentinel(99)): got %v", back.Data.Elements)
	}
	if v, ok := back.Missing.Value(); !ok || v != 99 {
		t.Errorf("Missing.Value: got %v %v", v, ok)
	}

	// Conversions copy the data.
	back.Data.Elements[0] = 0
	if f.Data.Elements[0] != 5 {
		t.Errorf("conversion modified the source field")
	}
}

func TestField_ValidateAndClone(t *testing.T) {
	if err := (Field{}).Validate(); err == nil {
		t.Error("expected error for empty field")
	}
	f := Field{Data: NewArray(2), Mask: []bool{false}, Missing: Masked()}
	if err := f.Validate(); err == nil {
		t.Error("expected error for short mask")
	}
	f = Field{Data: NewArray(1), Mask: []bool{true}, Missing: Sentinel(0)}
	var conflict *ConflictingConfigError
	if err := f.Validate(); !errors.As(err, &conflict) {
		t.Errorf("sentinel with mask: expected ConflictingConfigError, got %v", err)
	}

	m, err := NewMaskedField(NewArray(2), []bool{true, false})
	if err != nil {
		t.Fatal(err)
	}
	c := m.Clone()
	c.Mask[0] = false
	if !m.Mask[0] {
		t.Error("Clone shares the mask")
	}
	if _, err := NewMaskedField(NewArray(2), []bool{true}); err == nil {
		t.Error("expected error for mask length mismatch")
	}
}

func TestSameShape(t *testing.T) {
	if !SameShape([]int{2, 3}, []int{2, 3}) {
		t.Error("equal shapes reported different")
	}
	if SameShape([]int{2, 3}, []int{3, 2}) || SameShape([]int{2}, []int{2, 1}) {
		t.Error("different shapes reported equal")
	}
}
