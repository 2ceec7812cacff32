package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
)

var (
	// ErrNotFound is returned when the entry, payment or category a call
	// targets does not exist. Fatal to that call.
	ErrNotFound = core.ErrNotFound

	// ErrUnknownState is returned when an operation timed out mid-write.
	// The ledger may or may not have been updated; callers must treat it
	// as "must be reconciled", not as a plain failure.
	ErrUnknownState = errors.New("ledger state unknown, reconciliation required")
)

// Store is the persistence contract the engine drives. The *Ledgered
// methods persist the source record and apply the given month deltas to
// the balance sheets inside one transaction, so a failed apply never
// leaves an orphaned entry behind.
type Store interface {
	GetEntry(ctx context.Context, id string) (core.LedgerEntry, error)
	CreateEntryLedgered(ctx context.Context, entry core.LedgerEntry, applies []core.MonthDeltas) error
	UpdateEntryLedgered(ctx context.Context, entry core.LedgerEntry, applies []core.MonthDeltas) error
	DeleteEntryLedgered(ctx context.Context, id string, applies []core.MonthDeltas) error

	GetPayment(ctx context.Context, id string) (core.PaymentRecord, error)
	CreatePaymentLedgered(ctx context.Context, p core.PaymentRecord, applies []core.MonthDeltas) error
	UpdatePaymentLedgered(ctx context.Context, p core.PaymentRecord, applies []core.MonthDeltas) error
	DeletePaymentLedgered(ctx context.Context, id string, applies []core.MonthDeltas) error

	// CreateObligation inserts a generated obligation unless one already
	// exists for the same (apartment, category, month); it reports
	// whether a record was created.
	CreateObligation(ctx context.Context, p core.PaymentRecord) (bool, error)

	GetCategory(ctx context.Context, id string) (core.Category, error)
	ListPaymentEventCategories(ctx context.Context) ([]core.Category, error)
	ListApartments(ctx context.Context) ([]core.Apartment, error)
	ListBalanceSheets(ctx context.Context, apartmentID string, month core.MonthYear) ([]core.BalanceSheet, error)
}

// EventPublisher notifies out-of-process collaborators that balance sheets
// changed. Publish failures are logged and never fail the ledger
// operation; by the time an event goes out the books are already
// consistent.
type EventPublisher interface {
	PublishLedgerUpdate(ctx context.Context, kind, recordID string, months []string) error
}

// Config tunes the engine.
type Config struct {
	// OpTimeout bounds every mutating ledger operation. Zero disables
	// the bound.
	OpTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{OpTimeout: 10 * time.Second}
}

// Engine is the single entry point for all ledger mutations and balance
// sheet reads. API-route collaborators call it in-process.
type Engine struct {
	store     Store
	registry  *Registry
	publisher EventPublisher
	config    Config
}

// NewEngine constructs an engine. publisher may be nil when event
// publishing is disabled.
func NewEngine(store Store, registry *Registry, publisher EventPublisher, config Config) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Engine{
		store:     store,
		registry:  registry,
		publisher: publisher,
		config:    config,
	}
}

// CreateExpense validates and persists a new shared-expense entry together
// with its balance-sheet deltas in one atomic unit.
func (e *Engine) CreateExpense(ctx context.Context, entry core.LedgerEntry) (core.LedgerEntry, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := entry.Validate(); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("validate expense: %w", err)
	}

	month, deltas, err := e.entryDeltas(ctx, entry)
	if err != nil {
		return core.LedgerEntry{}, err
	}

	applies := []core.MonthDeltas{}
	if len(deltas) > 0 {
		applies = append(applies, core.MonthDeltas{Month: month, Deltas: deltas})
	}

	if err := e.store.CreateEntryLedgered(ctx, entry, applies); err != nil {
		return core.LedgerEntry{}, e.writeErr(ctx, "create expense", err)
	}

	slog.InfoContext(ctx, "Expense posted to ledger",
		"entry_id", entry.ID,
		"month", month.String(),
		"apartments", len(deltas),
		"amount_cents", entry.Amount.Cents)

	e.publish(ctx, "expense.created", entry.ID, applies)
	return entry, nil
}

// ExpenseUpdate carries the mutable fields of an entry. Nil fields stay
// unchanged.
type ExpenseUpdate struct {
	Amount            *core.Money
	Date              *core.Date
	CategoryID        *string
	PaidByApartment   *string
	OwedByApartments  *[]string
	PerApartmentShare *core.Money
	PaidByApartments  *[]string
}

func (u ExpenseUpdate) applyTo(entry core.LedgerEntry) core.LedgerEntry {
	if u.Amount != nil {
		entry.Amount = *u.Amount
	}
	if u.Date != nil {
		entry.Date = *u.Date
	}
	if u.CategoryID != nil {
		entry.CategoryID = *u.CategoryID
	}
	if u.PaidByApartment != nil {
		entry.PaidByApartment = *u.PaidByApartment
	}
	if u.OwedByApartments != nil {
		entry.OwedByApartments = *u.OwedByApartments
	}
	if u.PerApartmentShare != nil {
		entry.PerApartmentShare = *u.PerApartmentShare
	}
	if u.PaidByApartments != nil {
		entry.PaidByApartments = *u.PaidByApartments
	}
	return entry
}

// UpdateExpense reconciles an edit: deltas are recomputed from the full
// before and after entry states, so changes to the owing or settled sets
// are captured without incremental patching. A same-month edit merges the
// negated old deltas with the new ones into a single apply; a cross-month
// move posts to both months, still within one storage transaction.
func (e *Engine) UpdateExpense(ctx context.Context, id string, update ExpenseUpdate) error {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	oldEntry, err := e.store.GetEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("load expense %s: %w", id, err)
	}

	newEntry := update.applyTo(oldEntry)
	if err := newEntry.Validate(); err != nil {
		return fmt.Errorf("validate expense: %w", err)
	}

	oldMonth, oldDeltas, err := e.entryDeltas(ctx, oldEntry)
	if err != nil {
		return err
	}
	newMonth, newDeltas, err := e.entryDeltas(ctx, newEntry)
	if err != nil {
		return err
	}

	applies := reconcile(oldMonth, oldDeltas, newMonth, newDeltas)
	if err := e.store.UpdateEntryLedgered(ctx, newEntry, applies); err != nil {
		return e.writeErr(ctx, "update expense", err)
	}

	slog.InfoContext(ctx, "Expense update reconciled",
		"entry_id", id,
		"old_month", oldMonth.String(),
		"new_month", newMonth.String(),
		"applies", len(applies))

	e.publish(ctx, "expense.updated", id, applies)
	return nil
}

// DeleteExpense reverses the entry's ledger effect by applying its negated
// deltas to its own month, then removes the entry, atomically.
func (e *Engine) DeleteExpense(ctx context.Context, id string) error {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	entry, err := e.store.GetEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("load expense %s: %w", id, err)
	}

	month, deltas, err := e.entryDeltas(ctx, entry)
	if err != nil {
		return err
	}

	applies := []core.MonthDeltas{}
	if len(deltas) > 0 {
		applies = append(applies, core.MonthDeltas{Month: month, Deltas: deltas.Negate()})
	}

	if err := e.store.DeleteEntryLedgered(ctx, id, applies); err != nil {
		return e.writeErr(ctx, "delete expense", err)
	}

	slog.InfoContext(ctx, "Expense removed from ledger",
		"entry_id", id,
		"month", month.String())

	e.publish(ctx, "expense.deleted", id, applies)
	return nil
}

// CreatePayment persists a payment record. If the record is already in a
// settled status the settlement linker posts its effect immediately.
func (e *Engine) CreatePayment(ctx context.Context, p core.PaymentRecord) (core.PaymentRecord, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := p.Validate(); err != nil {
		return core.PaymentRecord{}, fmt.Errorf("validate payment: %w", err)
	}

	applies := settlementApplies(nil, &p)
	if err := e.store.CreatePaymentLedgered(ctx, p, applies); err != nil {
		return core.PaymentRecord{}, e.writeErr(ctx, "create payment", err)
	}

	slog.InfoContext(ctx, "Payment recorded",
		"payment_id", p.ID,
		"apartment", p.ApartmentID,
		"status", string(p.Status),
		"settled", p.Status.Settled())

	e.publish(ctx, "payment.created", p.ID, applies)
	return p, nil
}

// PaymentUpdate carries the mutable fields of a payment record. Nil fields
// stay unchanged.
type PaymentUpdate struct {
	Status    *core.PaymentStatus
	Amount    *core.Money
	Kind      *core.PaymentKind
	MonthYear *core.MonthYear
	ExpenseID *string
	Reason    *string
}

func (u PaymentUpdate) applyTo(p core.PaymentRecord) core.PaymentRecord {
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Amount != nil {
		p.Amount = *u.Amount
	}
	if u.Kind != nil {
		p.Kind = *u.Kind
	}
	if u.MonthYear != nil {
		p.MonthYear = *u.MonthYear
	}
	if u.ExpenseID != nil {
		p.ExpenseID = *u.ExpenseID
	}
	if u.Reason != nil {
		p.Reason = *u.Reason
	}
	return p
}

// UpdatePayment persists the updated record and lets the settlement
// linker translate the status transition into balance-sheet deltas:
// becoming settled posts the payment, leaving a settled status reverses
// it, and amount or month changes on a settled record repost accordingly.
func (e *Engine) UpdatePayment(ctx context.Context, id string, update PaymentUpdate) error {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	old, err := e.store.GetPayment(ctx, id)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", id, err)
	}

	updated := update.applyTo(old)
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("validate payment: %w", err)
	}

	applies := settlementApplies(&old, &updated)
	if err := e.store.UpdatePaymentLedgered(ctx, updated, applies); err != nil {
		return e.writeErr(ctx, "update payment", err)
	}

	slog.InfoContext(ctx, "Payment update reconciled",
		"payment_id", id,
		"old_status", string(old.Status),
		"new_status", string(updated.Status),
		"applies", len(applies))

	e.publish(ctx, "payment.updated", id, applies)
	return nil
}

// DeletePayment removes the record; a settled payment's ledger effect is
// reversed in the same transaction.
func (e *Engine) DeletePayment(ctx context.Context, id string) error {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	old, err := e.store.GetPayment(ctx, id)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", id, err)
	}

	applies := settlementApplies(&old, nil)
	if err := e.store.DeletePaymentLedgered(ctx, id, applies); err != nil {
		return e.writeErr(ctx, "delete payment", err)
	}

	slog.InfoContext(ctx, "Payment removed",
		"payment_id", id,
		"was_settled", old.Status.Settled())

	e.publish(ctx, "payment.deleted", id, applies)
	return nil
}

// GetBalanceSheets returns balance sheet rows, optionally filtered by
// apartment and month. Empty apartmentID or zero month mean "all".
func (e *Engine) GetBalanceSheets(ctx context.Context, apartmentID string, month core.MonthYear) ([]core.BalanceSheet, error) {
	return e.store.ListBalanceSheets(ctx, apartmentID, month)
}

// entryDeltas resolves the entry's strategy and computes its deltas. A
// missing category configuration degrades to the standard rule with a
// warning rather than failing the operation.
func (e *Engine) entryDeltas(ctx context.Context, entry core.LedgerEntry) (core.MonthYear, core.DeltaSet, error) {
	var cat core.Category
	if entry.CategoryID != "" {
		loaded, err := e.store.GetCategory(ctx, entry.CategoryID)
		switch {
		case errors.Is(err, ErrNotFound):
			slog.WarnContext(ctx, "Category not found, using standard split",
				"category_id", entry.CategoryID,
				"entry_id", entry.ID)
		case err != nil:
			return core.MonthYear{}, nil, fmt.Errorf("load category %s: %w", entry.CategoryID, err)
		default:
			cat = loaded
		}
	}

	strategy := e.registry.Resolve(entry, cat)
	month, deltas := strategy.Compute(entry, cat)
	return month, deltas, nil
}

func (e *Engine) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.OpTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.OpTimeout)
}

// writeErr classifies a failed ledgered write. A deadline hit mid-write
// means the commit may or may not have landed, which callers must treat
// as unknown state rather than a clean failure.
func (e *Engine) writeErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		slog.ErrorContext(ctx, "Ledger operation timed out mid-write",
			"op", op, "error", err)
		return fmt.Errorf("%s: %w", op, ErrUnknownState)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (e *Engine) publish(ctx context.Context, kind, recordID string, applies []core.MonthDeltas) {
	if e.publisher == nil || len(applies) == 0 {
		return
	}
	months := make([]string, 0, len(applies))
	for _, a := range applies {
		months = append(months, a.Month.String())
	}
	if err := e.publisher.PublishLedgerUpdate(ctx, kind, recordID, months); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind, "record_id", recordID, "error", err)
		// The books are already consistent, the event is best-effort.
	}
}
