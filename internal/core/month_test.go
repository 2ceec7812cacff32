package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseMonthYear(t *testing.T) {
	cases := []struct {
		in   string
		want MonthYear
		ok   bool
	}{
		{"2025-07", MonthYear{2025, time.July}, true},
		{"1999-12", MonthYear{1999, time.December}, true},
		{"2025-7", MonthYear{}, false},
		{"2025-13", MonthYear{}, false},
		{"2025/07", MonthYear{}, false},
		{"", MonthYear{}, false},
	}
	for _, tc := range cases {
		got, err := ParseMonthYear(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q expected ErrInvalidMonth, got %v", tc.in, err)
		}
	}
}

func TestMonthYearPrevNext(t *testing.T) {
	cases := []struct {
		name string
		in   MonthYear
		prev MonthYear
		next MonthYear
	}{
		{"mid year", MonthYear{2025, time.July}, MonthYear{2025, time.June}, MonthYear{2025, time.August}},
		{"january wraps back", MonthYear{2025, time.January}, MonthYear{2024, time.December}, MonthYear{2025, time.February}},
		{"december wraps forward", MonthYear{2025, time.December}, MonthYear{2025, time.November}, MonthYear{2026, time.January}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Prev(); got != tt.prev {
				t.Errorf("Prev() = %v, want %v", got, tt.prev)
			}
			if got := tt.in.Next(); got != tt.next {
				t.Errorf("Next() = %v, want %v", got, tt.next)
			}
		})
	}
}

func TestMonthYearString(t *testing.T) {
	m := MonthYear{2025, time.March}
	if got := m.String(); got != "2025-03" {
		t.Fatalf("String() = %q, want 2025-03", got)
	}
}

func TestMonthYearJSON(t *testing.T) {
	type payload struct {
		Month MonthYear `json:"month"`
	}
	out, err := json.Marshal(payload{Month: MonthYear{2025, time.September}})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"month":"2025-09"}` {
		t.Fatalf("marshal = %s", out)
	}

	var in payload
	if err := json.Unmarshal([]byte(`{"month":"2024-01"}`), &in); err != nil {
		t.Fatal(err)
	}
	if in.Month != (MonthYear{2024, time.January}) {
		t.Fatalf("unmarshal = %v", in.Month)
	}
	if err := json.Unmarshal([]byte(`{"month":"nope"}`), &in); err == nil {
		t.Fatal("expected unmarshal error for malformed month")
	}
}

func TestMonthYearValidate(t *testing.T) {
	if err := (MonthYear{2025, time.May}).Validate(); err != nil {
		t.Fatalf("valid month rejected: %v", err)
	}
	for _, bad := range []MonthYear{{}, {2025, 0}, {2025, 13}, {0, time.May}} {
		if err := bad.Validate(); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%v expected ErrInvalidMonth, got %v", bad, err)
		}
	}
}
