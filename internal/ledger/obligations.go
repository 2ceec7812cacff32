package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/deepak-sekarbabu-coder/apargo-sub000/internal/core"
)

// obligationConcurrency bounds how many categories generate in parallel.
const obligationConcurrency = 4

// GenerateObligationsForMonth produces one pending payment record per
// apartment for every auto-generating payment-event category, idempotently:
// the (apartment, category, month) uniqueness constraint in the store makes
// a rerun a no-op. Categories are processed independently, so a failure in
// one never blocks the others.
func (e *Engine) GenerateObligationsForMonth(ctx context.Context, month core.MonthYear) ([]core.PaymentRecord, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	if err := month.Validate(); err != nil {
		return nil, fmt.Errorf("generate obligations: %w", err)
	}

	categories, err := e.store.ListPaymentEventCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payment-event categories: %w", err)
	}
	apartments, err := e.store.ListApartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list apartments: %w", err)
	}

	slog.InfoContext(ctx, "Generating recurring obligations",
		"month", month.String(),
		"categories", len(categories),
		"apartments", len(apartments))

	var (
		mu      sync.Mutex
		created []core.PaymentRecord
	)

	g := new(errgroup.Group)
	g.SetLimit(obligationConcurrency)
	for _, cat := range categories {
		cat := cat
		g.Go(func() error {
			records, err := e.generateForCategory(ctx, cat, apartments, month)
			if err != nil {
				// Independent per category: log and keep going.
				slog.ErrorContext(ctx, "Obligation generation failed for category",
					"category_id", cat.ID,
					"category", cat.Name,
					"month", month.String(),
					"error", err)
				return nil
			}
			mu.Lock()
			created = append(created, records...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "Recurring obligation generation complete",
		"month", month.String(),
		"created", len(created))

	for _, rec := range created {
		e.publish(ctx, "obligation.generated", rec.ID, []core.MonthDeltas{{Month: month}})
	}
	return created, nil
}

func (e *Engine) generateForCategory(ctx context.Context, cat core.Category, apartments []core.Apartment, month core.MonthYear) ([]core.PaymentRecord, error) {
	if !cat.AutoGenerate {
		return nil, nil
	}
	if cat.MonthlyAmount.Cents <= 0 {
		slog.WarnContext(ctx, "Skipping category with non-positive monthly amount",
			"category_id", cat.ID,
			"category", cat.Name,
			"monthly_amount_cents", cat.MonthlyAmount.Cents)
		return nil, nil
	}

	var created []core.PaymentRecord
	for _, apt := range apartments {
		if len(apt.Members) == 0 {
			slog.WarnContext(ctx, "Skipping apartment with no members",
				"apartment", apt.ID,
				"category_id", cat.ID)
			continue
		}

		rec := core.PaymentRecord{
			ID:          uuid.NewString(),
			PayerID:     apt.Members[0],
			ApartmentID: apt.ID,
			CategoryID:  cat.ID,
			Kind:        core.PaymentIncome,
			Amount:      cat.MonthlyAmount,
			Status:      core.PaymentPending,
			MonthYear:   month,
			Reason:      fmt.Sprintf("%s for %s", cat.Name, month.String()),
			CreatedAt:   time.Now().UTC(),
		}

		ok, err := e.store.CreateObligation(ctx, rec)
		if err != nil {
			return created, fmt.Errorf("create obligation for apartment %s: %w", apt.ID, err)
		}
		if !ok {
			slog.DebugContext(ctx, "Obligation already exists",
				"apartment", apt.ID,
				"category_id", cat.ID,
				"month", month.String())
			continue
		}
		created = append(created, rec)
	}
	return created, nil
}
