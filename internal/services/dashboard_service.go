package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"expensia/internal/core"
	"expensia/internal/storage"
)

const (
	incomeWindowDays  = 60
	expenseWindowDays = 30
	recentPerKind     = 5
)

// DashboardService aggregates a user's financial summary: lifetime
// totals, the recent income and expense windows, and a merged list of
// the latest transactions.
type DashboardService struct {
	storage *storage.SQLiteRepository
	now     func() time.Time
}

func NewDashboardService(storage *storage.SQLiteRepository) *DashboardService {
	return &DashboardService{
		storage: storage,
		now:     time.Now,
	}
}

func (s *DashboardService) Summary(ctx context.Context, userID string) (core.DashboardSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return core.DashboardSummary{}, core.ErrEmptyUserID
	}
	now := s.now()

	totalIncome, err := s.storage.SumIncomes(ctx, userID, time.Time{})
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("total income: %w", err)
	}
	totalExpense, err := s.storage.SumExpenses(ctx, userID, time.Time{})
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("total expense: %w", err)
	}

	incomeSince := now.AddDate(0, 0, -incomeWindowDays)
	incomes, err := s.storage.ListIncomes(ctx, userID, incomeSince, time.Time{})
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("income window: %w", err)
	}
	incomeWindow := core.WindowedTransactions{Transactions: []core.Transaction{}}
	for _, in := range incomes {
		incomeWindow.Total.Cents += in.Amount.Cents
		incomeWindow.Transactions = append(incomeWindow.Transactions, in.AsTransaction())
	}

	expenseSince := now.AddDate(0, 0, -expenseWindowDays)
	expenses, err := s.storage.ListExpenses(ctx, userID, expenseSince, time.Time{}, "")
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("expense window: %w", err)
	}
	expenseWindow := core.WindowedTransactions{Transactions: []core.Transaction{}}
	for _, e := range expenses {
		expenseWindow.Total.Cents += e.Amount.Cents
		expenseWindow.Transactions = append(expenseWindow.Transactions, e.AsTransaction())
	}

	recentIncomes, err := s.storage.RecentIncomes(ctx, userID, recentPerKind)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("recent incomes: %w", err)
	}
	recentExpenses, err := s.storage.RecentExpenses(ctx, userID, recentPerKind)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("recent expenses: %w", err)
	}

	incomeTxns := make([]core.Transaction, 0, len(recentIncomes))
	for _, in := range recentIncomes {
		incomeTxns = append(incomeTxns, in.AsTransaction())
	}
	expenseTxns := make([]core.Transaction, 0, len(recentExpenses))
	for _, e := range recentExpenses {
		expenseTxns = append(expenseTxns, e.AsTransaction())
	}

	return core.DashboardSummary{
		TotalBalance:       core.Money{Cents: totalIncome - totalExpense},
		TotalIncome:        core.Money{Cents: totalIncome},
		TotalExpense:       core.Money{Cents: totalExpense},
		Last60DaysIncome:   incomeWindow,
		Last30DaysExpenses: expenseWindow,
		RecentTransactions: core.MergeByDateDesc(incomeTxns, expenseTxns),
	}, nil
}
