package core

import (
	"sort"
	"time"
)

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// TransactionKind discriminates merged income/expense records.
type TransactionKind string

// Transaction is the tagged variant used wherever incomes and expenses
// appear in one list. Label holds the income source or the expense
// category depending on Kind.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Kind        TransactionKind `json:"type"`
	Label       string          `json:"label"`
	Icon        string          `json:"icon"`
	Description string          `json:"description"`
	Amount      Money           `json:"amount"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (i Income) AsTransaction() Transaction {
	return Transaction{
		ID:          i.ID,
		UserID:      i.UserID,
		Kind:        KindIncome,
		Label:       i.Source,
		Icon:        i.Icon,
		Description: i.Description,
		Amount:      i.Amount,
		Date:        i.Date,
		CreatedAt:   i.CreatedAt,
	}
}

func (e Expense) AsTransaction() Transaction {
	return Transaction{
		ID:          e.ID,
		UserID:      e.UserID,
		Kind:        KindExpense,
		Label:       e.Category,
		Icon:        e.Icon,
		Description: e.Description,
		Amount:      e.Amount,
		Date:        e.Date,
		CreatedAt:   e.CreatedAt,
	}
}

// MergeByDateDesc merges already-tagged transactions and orders them by
// date descending. Equal dates fall back to created_at descending, then
// id descending, so the order is deterministic across runs.
func MergeByDateDesc(lists ...[]Transaction) []Transaction {
	var merged []Transaction
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return merged
}

// WindowedTransactions is a windowed sum together with the full list of
// records inside the window, newest first.
type WindowedTransactions struct {
	Total        Money         `json:"total"`
	Transactions []Transaction `json:"transactions"`
}

// DashboardSummary is the aggregator output for one user.
type DashboardSummary struct {
	TotalBalance       Money                `json:"totalBalance"`
	TotalIncome        Money                `json:"totalIncome"`
	TotalExpense       Money                `json:"totalExpense"`
	Last60DaysIncome   WindowedTransactions `json:"last60DaysIncome"`
	Last30DaysExpenses WindowedTransactions `json:"last30DaysExpenses"`
	RecentTransactions []Transaction        `json:"recentTransactions"`
}

// DayGroup is one calendar day of transactions, keyed by ISO date.
type DayGroup struct {
	Date         string        `json:"_id"`
	Transactions []Transaction `json:"transactions"`
}

// GroupByDay buckets transactions by calendar day and returns the groups
// sorted by date descending. Input order inside a day is preserved.
func GroupByDay(txns []Transaction) []DayGroup {
	byDay := make(map[string][]Transaction)
	for _, t := range txns {
		key := DayKey(t.Date)
		byDay[key] = append(byDay[key], t)
	}
	groups := make([]DayGroup, 0, len(byDay))
	for key, list := range byDay {
		groups = append(groups, DayGroup{Date: key, Transactions: list})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Date > groups[j].Date
	})
	return groups
}

// PaginateGroups slices the group list. Pages are 1-based; out-of-range
// pages yield an empty slice. TotalPages for the caller is the number of
// groups with a minimum of 1.
func PaginateGroups(groups []DayGroup, page, limit int) []DayGroup {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	start := (page - 1) * limit
	if start >= len(groups) {
		return []DayGroup{}
	}
	end := start + limit
	if end > len(groups) {
		end = len(groups)
	}
	return groups[start:end]
}
