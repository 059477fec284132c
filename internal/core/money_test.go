package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"0", 0, true},
		{"1", 100, true},
		{"1.2", 120, true},
		{"1.23", 123, true},
		{"-45.60", -4560, true},
		{"  7.05 ", 705, true},
		{"1006.32", 100632, true},
		{"1.234", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"1,23", 0, false},
		{"99999999999999", 0, false},
	}
	for _, tc := range cases {
		m, err := ParseAmount(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if !tc.ok {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q: expected ErrInvalidAmount, got %v", tc.in, err)
			}
			continue
		}
		if m.Cents != tc.cents {
			t.Fatalf("%q: cents=%d want %d", tc.in, m.Cents, tc.cents)
		}
	}
}

func TestParseUserAmount(t *testing.T) {
	m, err := ParseUserAmount("1 234,50")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if m.Cents != 123450 {
		t.Fatalf("cents=%d", m.Cents)
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		-5000:  "-50.00",
		123456: "1234.56",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("%d: got %s want %s", cents, got, want)
		}
	}
}

func TestMoneyDisplay(t *testing.T) {
	got := Money{Cents: 1234}.Display()
	if !strings.Contains(got, "€") || !strings.Contains(got, "12") {
		t.Fatalf("unexpected display %q", got)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: -250}
	if a.Abs().Cents != 250 || a.Neg().Cents != 250 || a.Add(Money{Cents: 50}).Cents != -200 {
		t.Fatalf("arithmetic mismatch")
	}
	if a.Euros() != -2.5 {
		t.Fatalf("euros=%v", a.Euros())
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{Money{Cents: -1999}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":-19.99}` {
		t.Fatalf("json=%s", b)
	}
	var out struct {
		A Money `json:"a"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.A.Cents != -1999 {
		t.Fatalf("cents=%d", out.A.Cents)
	}
}
