// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expensia/internal/amqp"
	"expensia/internal/core"
	"expensia/internal/storage"
)

// GroupedPage is one page of transactions grouped by calendar day.
type GroupedPage struct {
	Groups      []core.DayGroup `json:"data"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

// TransactionService orchestrates income and expense operations across
// SQLite and AMQP.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewTransactionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateIncome validates and saves an income, then publishes a created
// event. Publishing failures do not fail the request.
func (s *TransactionService) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	if err := s.storage.CreateIncome(ctx, &in); err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}

	s.publishEvent(ctx, string(core.KindIncome), amqp.ActionCreated, in.ID, in.UserID)
	return in, nil
}

// CreateExpense validates and saves an expense, then publishes a created
// event.
func (s *TransactionService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.storage.CreateExpense(ctx, &e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishEvent(ctx, string(core.KindExpense), amqp.ActionCreated, e.ID, e.UserID)
	return e, nil
}

// DeleteIncome removes an income owned by userID. Returns
// storage.ErrNotFound when it does not exist or belongs to someone else.
func (s *TransactionService) DeleteIncome(ctx context.Context, id, userID string) error {
	if err := s.storage.DeleteIncome(ctx, id, userID); err != nil {
		return err
	}
	s.publishEvent(ctx, string(core.KindIncome), amqp.ActionDeleted, id, userID)
	return nil
}

// DeleteExpense removes an expense owned by userID.
func (s *TransactionService) DeleteExpense(ctx context.Context, id, userID string) error {
	if err := s.storage.DeleteExpense(ctx, id, userID); err != nil {
		return err
	}
	s.publishEvent(ctx, string(core.KindExpense), amqp.ActionDeleted, id, userID)
	return nil
}

// ListIncomesGrouped returns the user's incomes grouped by calendar day,
// sorted by date descending, paginated over groups. Without an explicit
// date filter only the current day is returned.
func (s *TransactionService) ListIncomesGrouped(ctx context.Context, userID string, date *time.Time, page, limit int) (GroupedPage, error) {
	day := time.Now()
	if date != nil {
		day = *date
	}
	from, to := core.DayBounds(day)

	incomes, err := s.storage.ListIncomes(ctx, userID, from, to)
	if err != nil {
		return GroupedPage{}, err
	}

	txns := make([]core.Transaction, 0, len(incomes))
	for _, in := range incomes {
		txns = append(txns, in.AsTransaction())
	}
	return paginate(txns, page, limit), nil
}

// ListExpensesGrouped returns the user's expenses grouped by calendar
// day. Without a date filter all dates are included. A non-empty tripID
// additionally scopes results to that trip.
func (s *TransactionService) ListExpensesGrouped(ctx context.Context, userID string, date *time.Time, tripID string, page, limit int) (GroupedPage, error) {
	var from, to time.Time
	if date != nil {
		from, to = core.DayBounds(*date)
	}

	expenses, err := s.storage.ListExpenses(ctx, userID, from, to, tripID)
	if err != nil {
		return GroupedPage{}, err
	}

	txns := make([]core.Transaction, 0, len(expenses))
	for _, e := range expenses {
		txns = append(txns, e.AsTransaction())
	}
	return paginate(txns, page, limit), nil
}

func paginate(txns []core.Transaction, page, limit int) GroupedPage {
	groups := core.GroupByDay(txns)

	totalPages := len(groups)
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}

	return GroupedPage{
		Groups:      core.PaginateGroups(groups, page, limit),
		TotalPages:  totalPages,
		CurrentPage: page,
	}
}

func (s *TransactionService) publishEvent(ctx context.Context, kind, action, id, userID string) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishTransactionEvent(ctx, kind, action, id, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", kind, "action", action, "id", id, "error", err)
		// Don't fail the request, the record is saved locally.
	}
}

// Close closes both storage and AMQP connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
