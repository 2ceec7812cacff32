package core

import (
	"errors"
	"strings"
	"time"
)

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentApproved  PaymentStatus = "approved"
	PaymentRejected  PaymentStatus = "rejected"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"

	PaymentIncome  PaymentKind = "income"
	PaymentExpense PaymentKind = "expense"
)

type (
	PaymentStatus string

	// PaymentKind is the ledger side a payment posts to once settled.
	PaymentKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Apartment is a stable identity; all monetary state lives in
	// BalanceSheet rows keyed by apartment and month.
	Apartment struct {
		ID      string
		Name    string
		Members []string // ordered, first member is the default obligation payer
	}

	Category struct {
		ID      string
		Name    string
		NoSplit bool

		// Recurring-obligation config.
		IsPaymentEvent bool
		MonthlyAmount  Money
		DayOfMonth     int
		AutoGenerate   bool
	}

	// LedgerEntry is a shared expense fronted by one apartment and owed,
	// in flat per-head shares, by a set of apartments.
	// PerApartmentShare * len(OwedByApartments) need not equal Amount:
	// asymmetric splits are permitted by construction.
	LedgerEntry struct {
		ID                string
		Amount            Money
		Date              Date
		CategoryID        string
		PaidByApartment   string
		OwedByApartments  []string
		PerApartmentShare Money
		PaidByApartments  []string // subset of OwedByApartments that already settled
	}

	PaymentRecord struct {
		ID          string
		PayerID     string
		PayeeID     string
		ApartmentID string
		CategoryID  string // set for generated obligations
		Kind        PaymentKind
		Amount      Money
		Status      PaymentStatus
		MonthYear   MonthYear
		ExpenseID   string // optional link to a settled LedgerEntry
		Reason      string
		CreatedAt   time.Time
	}

	// BalanceSheet is the persisted monthly aggregate per apartment.
	// ClosingBalance == OpeningBalance + TotalIncome - TotalExpenses holds
	// after every write.
	BalanceSheet struct {
		ApartmentID    string
		MonthYear      MonthYear
		OpeningBalance Money
		TotalIncome    Money
		TotalExpenses  Money
		ClosingBalance Money
		Version        int64
	}
)

var (
	// ErrNotFound is returned when a record a call targets does not exist.
	ErrNotFound = errors.New("not found")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrEmptyApartment   = errors.New("empty apartment id")
	ErrNoOwedApartments = errors.New("no owed apartments")
	ErrInvalidStatus    = errors.New("invalid payment status")
	ErrInvalidKind      = errors.New("invalid payment kind")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s PaymentStatus) Validate() error {
	switch s {
	case PaymentPending, PaymentApproved, PaymentRejected, PaymentPaid, PaymentFailed, PaymentCancelled:
		return nil
	default:
		return ErrInvalidStatus
	}
}

// Settled reports whether the status represents a completed settlement.
func (s PaymentStatus) Settled() bool {
	return s == PaymentApproved || s == PaymentPaid
}

func (k PaymentKind) Validate() error {
	switch k {
	case PaymentIncome, PaymentExpense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// ID returns the deterministic document id exposed in API payloads.
func (b BalanceSheet) ID() string {
	return b.ApartmentID + "_" + b.MonthYear.String()
}

func (e LedgerEntry) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.PaidByApartment) == "" {
		return ErrEmptyApartment
	}
	if len(e.OwedByApartments) == 0 {
		return ErrNoOwedApartments
	}
	if e.PerApartmentShare.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p PaymentRecord) Validate() error {
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(p.ApartmentID) == "" {
		return ErrEmptyApartment
	}
	if err := p.Kind.Validate(); err != nil {
		return err
	}
	if err := p.Status.Validate(); err != nil {
		return err
	}
	return p.MonthYear.Validate()
}
