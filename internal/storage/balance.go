package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
)

// applyAllTx posts every month's deltas within the caller's transaction.
func (r *Repository) applyAllTx(ctx context.Context, tx *sql.Tx, applies []core.MonthDeltas) error {
	for _, a := range applies {
		if err := r.applyDeltasTx(ctx, tx, a.Month, a.Deltas); err != nil {
			return err
		}
	}
	return nil
}

// applyDeltasTx applies one month's per-apartment deltas. The enclosing
// transaction re-reads then writes, which serializes concurrent updates on
// the same (apartment, month) key; the version column increments per write
// for optimistic readers.
//
// Existing rows keep their opening balance and have their closing balance
// recomputed from the canonical totals, never adjusted incrementally, so
// rounding or replay drift cannot accumulate. New rows pull their opening
// balance from the previous month's closing balance (continuity); an
// unreadable previous month either fails the transaction or, in lenient
// mode, degrades to an opening balance of 0 with a warning.
func (r *Repository) applyDeltasTx(ctx context.Context, tx *sql.Tx, month core.MonthYear, deltas core.DeltaSet) error {
	for apt, d := range deltas {
		if d.IsZero() {
			continue
		}

		var opening, income, expense int64
		err := tx.QueryRowContext(ctx, `
			SELECT opening_cents, income_cents, expense_cents
			FROM balance_sheets
			WHERE apartment_id = ? AND month_year = ?`,
			apt, month.String()).Scan(&opening, &income, &expense)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			opening, err = r.openingFromPrevTx(ctx, tx, apt, month)
			if err != nil {
				return err
			}
			income = d.IncomeCents
			expense = d.ExpenseCents
			closing := opening + income - expense
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO balance_sheets
					(apartment_id, month_year, opening_cents, income_cents,
					 expense_cents, closing_cents, version)
				VALUES (?, ?, ?, ?, ?, ?, 1)`,
				apt, month.String(), opening, income, expense, closing); err != nil {
				return fmt.Errorf("insert balance sheet %s/%s: %w", apt, month.String(), err)
			}

		case err != nil:
			return fmt.Errorf("read balance sheet %s/%s: %w", apt, month.String(), err)

		default:
			income += d.IncomeCents
			expense += d.ExpenseCents
			closing := opening + income - expense
			if _, err := tx.ExecContext(ctx, `
				UPDATE balance_sheets SET
					income_cents = ?, expense_cents = ?, closing_cents = ?,
					version = version + 1
				WHERE apartment_id = ? AND month_year = ?`,
				income, expense, closing, apt, month.String()); err != nil {
				return fmt.Errorf("update balance sheet %s/%s: %w", apt, month.String(), err)
			}
		}
	}
	return nil
}

// openingFromPrevTx resolves the opening balance for a month's first write
// from the previous month's closing balance. A missing previous month is
// normal (opening 0); a failed read honors the StrictContinuity option.
func (r *Repository) openingFromPrevTx(ctx context.Context, tx *sql.Tx, apartmentID string, month core.MonthYear) (int64, error) {
	var closing int64
	err := tx.QueryRowContext(ctx, `
		SELECT closing_cents FROM balance_sheets
		WHERE apartment_id = ? AND month_year = ?`,
		apartmentID, month.Prev().String()).Scan(&closing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		if r.opts.StrictContinuity {
			return 0, fmt.Errorf("continuity lookup %s/%s: %w", apartmentID, month.Prev().String(), err)
		}
		slog.WarnContext(ctx, "Continuity lookup failed, opening balance degraded to 0",
			"apartment", apartmentID,
			"month", month.String(),
			"error", err)
		return 0, nil
	default:
		return closing, nil
	}
}

// GetBalanceSheet reads one row.
func (r *Repository) GetBalanceSheet(ctx context.Context, apartmentID string, month core.MonthYear) (core.BalanceSheet, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT apartment_id, month_year, opening_cents, income_cents,
		       expense_cents, closing_cents, version
		FROM balance_sheets
		WHERE apartment_id = ? AND month_year = ?`,
		apartmentID, month.String())
	b, err := scanBalanceSheet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BalanceSheet{}, fmt.Errorf("balance sheet: %w", core.ErrNotFound)
	}
	return b, err
}

// ListBalanceSheets returns rows filtered by apartment and/or month; an
// empty apartmentID or zero month means no filter on that dimension.
func (r *Repository) ListBalanceSheets(ctx context.Context, apartmentID string, month core.MonthYear) ([]core.BalanceSheet, error) {
	query := `
		SELECT apartment_id, month_year, opening_cents, income_cents,
		       expense_cents, closing_cents, version
		FROM balance_sheets WHERE 1=1`
	args := []any{}
	if apartmentID != "" {
		query += ` AND apartment_id = ?`
		args = append(args, apartmentID)
	}
	if !month.IsZero() {
		query += ` AND month_year = ?`
		args = append(args, month.String())
	}
	query += ` ORDER BY apartment_id, month_year`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list balance sheets: %w", err)
	}
	defer rows.Close()

	var out []core.BalanceSheet
	for rows.Next() {
		b, err := scanBalanceSheet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBalanceSheet(row rowScanner) (core.BalanceSheet, error) {
	var (
		b        core.BalanceSheet
		monthStr string
	)
	err := row.Scan(&b.ApartmentID, &monthStr, &b.OpeningBalance.Cents,
		&b.TotalIncome.Cents, &b.TotalExpenses.Cents, &b.ClosingBalance.Cents,
		&b.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.BalanceSheet{}, err
		}
		return core.BalanceSheet{}, fmt.Errorf("scan balance sheet: %w", err)
	}
	if b.MonthYear, err = core.ParseMonthYear(monthStr); err != nil {
		return core.BalanceSheet{}, err
	}
	return b, nil
}
