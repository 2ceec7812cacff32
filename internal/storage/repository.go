// Package storage persists ledger entries, payment records, categories,
// apartments and balance sheets in SQLite. Every *Ledgered method writes
// the source record and its balance-sheet deltas in a single transaction,
// so the books can never drift from the records that produced them.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"

	_ "modernc.org/sqlite"
)

// Options tunes repository behavior.
type Options struct {
	// StrictContinuity makes a failed previous-month lookup abort the
	// transaction. When false the opening balance degrades to 0 with a
	// warning, trading consistency for availability.
	StrictContinuity bool
}

// DefaultOptions favors consistency.
func DefaultOptions() Options {
	return Options{StrictContinuity: true}
}

type Repository struct {
	db   *sql.DB
	opts Options
}

func NewRepository(dbPath string, opts Options) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// A single writer connection sidesteps SQLITE_BUSY on concurrent
	// ledger transactions; SQLite serializes them for us.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, opts: opts}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// inTx runs fn inside a transaction with the usual rollback-on-error
// shape.
func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func marshalIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal id list: %w", err)
	}
	return string(b), nil
}

func unmarshalIDs(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal id list: %w", err)
	}
	return ids, nil
}

// GetEntry loads one ledger entry.
func (r *Repository) GetEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, amount_cents, entry_date, COALESCE(category_id, ''),
		       paid_by_apartment, owed_by_apartments,
		       per_apartment_share_cents, paid_by_apartments
		FROM ledger_entries WHERE id = ?`, id)
	return scanEntry(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.LedgerEntry, error) {
	var (
		e         core.LedgerEntry
		dateStr   string
		owedJSON  string
		paidJSON  string
		shareCent int64
	)
	err := row.Scan(&e.ID, &e.Amount.Cents, &dateStr, &e.CategoryID,
		&e.PaidByApartment, &owedJSON, &shareCent, &paidJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, fmt.Errorf("ledger entry: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("scan ledger entry: %w", err)
	}

	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("parse entry date %q: %w", dateStr, err)
	}
	e.Date = core.Date{Time: t}
	e.PerApartmentShare = core.Money{Cents: shareCent}
	if e.OwedByApartments, err = unmarshalIDs(owedJSON); err != nil {
		return core.LedgerEntry{}, err
	}
	if e.PaidByApartments, err = unmarshalIDs(paidJSON); err != nil {
		return core.LedgerEntry{}, err
	}
	return e, nil
}

func insertEntryTx(ctx context.Context, tx *sql.Tx, e core.LedgerEntry) error {
	owed, err := marshalIDs(e.OwedByApartments)
	if err != nil {
		return err
	}
	paid, err := marshalIDs(e.PaidByApartments)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries
			(id, amount_cents, entry_date, category_id, paid_by_apartment,
			 owed_by_apartments, per_apartment_share_cents, paid_by_apartments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Amount.Cents, e.Date.Format("2006-01-02"),
		nullIfEmpty(e.CategoryID), e.PaidByApartment,
		owed, e.PerApartmentShare.Cents, paid)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// CreateEntryLedgered persists the entry and applies its deltas atomically.
func (r *Repository) CreateEntryLedgered(ctx context.Context, e core.LedgerEntry, applies []core.MonthDeltas) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertEntryTx(ctx, tx, e); err != nil {
			return err
		}
		return r.applyAllTx(ctx, tx, applies)
	})
}

// UpdateEntryLedgered overwrites the entry and posts the reconciliation
// deltas, all in one transaction even when the edit moves months.
func (r *Repository) UpdateEntryLedgered(ctx context.Context, e core.LedgerEntry, applies []core.MonthDeltas) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		owed, err := marshalIDs(e.OwedByApartments)
		if err != nil {
			return err
		}
		paid, err := marshalIDs(e.PaidByApartments)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE ledger_entries SET
				amount_cents = ?, entry_date = ?, category_id = ?,
				paid_by_apartment = ?, owed_by_apartments = ?,
				per_apartment_share_cents = ?, paid_by_apartments = ?
			WHERE id = ?`,
			e.Amount.Cents, e.Date.Format("2006-01-02"),
			nullIfEmpty(e.CategoryID), e.PaidByApartment,
			owed, e.PerApartmentShare.Cents, paid, e.ID)
		if err != nil {
			return fmt.Errorf("update ledger entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("ledger entry %s: %w", e.ID, core.ErrNotFound)
		}
		return r.applyAllTx(ctx, tx, applies)
	})
}

// DeleteEntryLedgered removes the entry and reverses its ledger effect
// atomically.
func (r *Repository) DeleteEntryLedgered(ctx context.Context, id string, applies []core.MonthDeltas) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete ledger entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("ledger entry %s: %w", id, core.ErrNotFound)
		}
		return r.applyAllTx(ctx, tx, applies)
	})
}

// GetPayment loads one payment record.
func (r *Repository) GetPayment(ctx context.Context, id string) (core.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, payer_id, payee_id, apartment_id, COALESCE(category_id, ''),
		       kind, amount_cents, status, month_year, expense_id, reason, created_at
		FROM payments WHERE id = ?`, id)

	var (
		p        core.PaymentRecord
		monthStr string
		created  string
	)
	err := row.Scan(&p.ID, &p.PayerID, &p.PayeeID, &p.ApartmentID, &p.CategoryID,
		&p.Kind, &p.Amount.Cents, &p.Status, &monthStr, &p.ExpenseID, &p.Reason, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentRecord{}, fmt.Errorf("payment: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.PaymentRecord{}, fmt.Errorf("scan payment: %w", err)
	}
	if p.MonthYear, err = core.ParseMonthYear(monthStr); err != nil {
		return core.PaymentRecord{}, err
	}
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		p.CreatedAt = t
	}
	return p, nil
}

func insertPaymentTx(ctx context.Context, tx *sql.Tx, p core.PaymentRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments
			(id, payer_id, payee_id, apartment_id, category_id, kind,
			 amount_cents, status, month_year, expense_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PayerID, p.PayeeID, p.ApartmentID, nullIfEmpty(p.CategoryID),
		string(p.Kind), p.Amount.Cents, string(p.Status), p.MonthYear.String(),
		p.ExpenseID, p.Reason, p.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// CreatePaymentLedgered persists the payment and, when it is already
// settled, posts its delta in the same transaction.
func (r *Repository) CreatePaymentLedgered(ctx context.Context, p core.PaymentRecord, applies []core.MonthDeltas) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertPaymentTx(ctx, tx, p); err != nil {
			return err
		}
		return r.applyAllTx(ctx, tx, applies)
	})
}

// UpdatePaymentLedgered overwrites the payment and posts the settlement
// transition deltas atomically.
func (r *Repository) UpdatePaymentLedgered(ctx context.Context, p core.PaymentRecord, applies []core.MonthDeltas) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE payments SET
				payer_id = ?, payee_id = ?, apartment_id = ?, category_id = ?,
				kind = ?, amount_cents = ?, status = ?, month_year = ?,
				expense_id = ?, reason = ?
			WHERE id = ?`,
			p.PayerID, p.PayeeID, p.ApartmentID, nullIfEmpty(p.CategoryID),
			string(p.Kind), p.Amount.Cents, string(p.Status), p.MonthYear.String(),
			p.ExpenseID, p.Reason, p.ID)
		if err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("payment %s: %w", p.ID, core.ErrNotFound)
		}
		return r.applyAllTx(ctx, tx, applies)
	})
}

// DeletePaymentLedgered removes the payment and reverses its settled
// effect atomically.
func (r *Repository) DeletePaymentLedgered(ctx context.Context, id string, applies []core.MonthDeltas) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("payment %s: %w", id, core.ErrNotFound)
		}
		return r.applyAllTx(ctx, tx, applies)
	})
}

// CreateObligation inserts a generated obligation. The partial unique
// index on (apartment_id, category_id, month_year) makes reruns no-ops;
// a conflicting insert reports created=false instead of an error.
func (r *Repository) CreateObligation(ctx context.Context, p core.PaymentRecord) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO payments
			(id, payer_id, payee_id, apartment_id, category_id, kind,
			 amount_cents, status, month_year, expense_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		p.ID, p.PayerID, p.PayeeID, p.ApartmentID, nullIfEmpty(p.CategoryID),
		string(p.Kind), p.Amount.Cents, string(p.Status), p.MonthYear.String(),
		p.ExpenseID, p.Reason, p.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("insert obligation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("obligation rows affected: %w", err)
	}
	return n > 0, nil
}

// GetCategory loads one category.
func (r *Repository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, no_split, is_payment_event, monthly_amount_cents,
		       day_of_month, auto_generate
		FROM categories WHERE id = ?`, id)
	var c core.Category
	err := row.Scan(&c.ID, &c.Name, &c.NoSplit, &c.IsPaymentEvent,
		&c.MonthlyAmount.Cents, &c.DayOfMonth, &c.AutoGenerate)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	return c, nil
}

// UpsertCategory creates or replaces a category configuration.
func (r *Repository) UpsertCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories
			(id, name, no_split, is_payment_event, monthly_amount_cents,
			 day_of_month, auto_generate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			no_split = excluded.no_split,
			is_payment_event = excluded.is_payment_event,
			monthly_amount_cents = excluded.monthly_amount_cents,
			day_of_month = excluded.day_of_month,
			auto_generate = excluded.auto_generate`,
		c.ID, c.Name, c.NoSplit, c.IsPaymentEvent,
		c.MonthlyAmount.Cents, c.DayOfMonth, c.AutoGenerate)
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

// ListPaymentEventCategories returns the categories eligible for
// recurring obligation generation.
func (r *Repository) ListPaymentEventCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, no_split, is_payment_event, monthly_amount_cents,
		       day_of_month, auto_generate
		FROM categories WHERE is_payment_event = 1
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list payment-event categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.NoSplit, &c.IsPaymentEvent,
			&c.MonthlyAmount.Cents, &c.DayOfMonth, &c.AutoGenerate); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertApartment creates or renames an apartment and replaces its member
// list, preserving member order.
func (r *Repository) UpsertApartment(ctx context.Context, a core.Apartment) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO apartments (id, name) VALUES (?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
			a.ID, a.Name)
		if err != nil {
			return fmt.Errorf("upsert apartment: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM apartment_members WHERE apartment_id = ?`, a.ID); err != nil {
			return fmt.Errorf("clear apartment members: %w", err)
		}
		for i, member := range a.Members {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO apartment_members (apartment_id, user_id, position)
				VALUES (?, ?, ?)`, a.ID, member, i); err != nil {
				return fmt.Errorf("insert apartment member: %w", err)
			}
		}
		return nil
	})
}

// ListApartments returns all apartments with their members in order.
func (r *Repository) ListApartments(ctx context.Context) ([]core.Apartment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM apartments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list apartments: %w", err)
	}
	defer rows.Close()

	var out []core.Apartment
	for rows.Next() {
		var a core.Apartment
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan apartment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		members, err := r.listMembers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Members = members
	}
	return out, nil
}

func (r *Repository) listMembers(ctx context.Context, apartmentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM apartment_members
		WHERE apartment_id = ? ORDER BY position`, apartmentID)
	if err != nil {
		return nil, fmt.Errorf("list members for %s: %w", apartmentID, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
