package core

import (
	"fmt"
	"time"
)

// MonthYear identifies a ledger month. Its string form "YYYY-MM" is the
// second half of a balance sheet's document key and is what the API
// exchanges with collaborators.
type MonthYear struct {
	Year  int
	Month time.Month
}

// MonthYearOf derives the ledger month from a date. Month keys always come
// from the entry or payment date, never from processing time.
func MonthYearOf(t time.Time) MonthYear {
	return MonthYear{Year: t.Year(), Month: t.Month()}
}

// ParseMonthYear parses the "YYYY-MM" wire form.
func ParseMonthYear(s string) (MonthYear, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthYear{}, fmt.Errorf("parse month %q: %w", s, ErrInvalidMonth)
	}
	return MonthYearOf(t), nil
}

func (m MonthYear) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m MonthYear) Validate() error {
	if m.Year < 1 || m.Month < time.January || m.Month > time.December {
		return ErrInvalidMonth
	}
	return nil
}

func (m MonthYear) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Prev returns the preceding month, used for the continuity lookup when a
// balance sheet row is first created.
func (m MonthYear) Prev() MonthYear {
	if m.Month == time.January {
		return MonthYear{Year: m.Year - 1, Month: time.December}
	}
	return MonthYear{Year: m.Year, Month: m.Month - 1}
}

// Next returns the following month.
func (m MonthYear) Next() MonthYear {
	if m.Month == time.December {
		return MonthYear{Year: m.Year + 1, Month: time.January}
	}
	return MonthYear{Year: m.Year, Month: m.Month + 1}
}

// MarshalText implements encoding.TextMarshaler so MonthYear serializes as
// "YYYY-MM" in JSON payloads.
func (m MonthYear) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MonthYear) UnmarshalText(data []byte) error {
	parsed, err := ParseMonthYear(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
