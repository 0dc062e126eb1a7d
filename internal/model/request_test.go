package model

import (
	"encoding/json"
	"testing"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
		ok   bool
	}{
		{"10", 10, true},
		{" 2.5 ", 2.5, true},
		{"-1", -1, true},
		{"", 0, false},
		{"ten", 0, false},
		{"NaN", 0, false},
		{"nan", 0, false},
		{"Inf", 0, false},
		{"-Infinity", 0, false},
		{"1e400", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseQuantity(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseQuantity(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseQuantity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQuantityDecodesNumbersAndStrings(t *testing.T) {
	var r Request
	if err := json.Unmarshal([]byte(`{"quantity":"12"}`), &r); err != nil || r.Quantity != 12 {
		t.Errorf("string quantity: %v, %v", r.Quantity, err)
	}
	if err := json.Unmarshal([]byte(`{"quantity":3.5}`), &r); err != nil || r.Quantity != 3.5 {
		t.Errorf("number quantity: %v, %v", r.Quantity, err)
	}
	if err := json.Unmarshal([]byte(`{"quantity":"NaN"}`), &r); err == nil {
		t.Error("NaN string accepted")
	}
}
