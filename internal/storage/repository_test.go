package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"expensia/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, email string) *User {
	t.Helper()
	u := &User{FullName: "Test User", Email: email, PasswordHash: "x"}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	newTestUser(t, repo, "dup@example.com")

	err := repo.CreateUser(context.Background(), &User{FullName: "Other", Email: "dup@example.com", PasswordHash: "y"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestIncomeLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "a@example.com")

	in := &core.Income{
		UserID: u.ID,
		Source: "salary",
		Amount: core.Money{Cents: 20000},
		Date:   time.Now(),
	}
	if err := repo.CreateIncome(ctx, in); err != nil {
		t.Fatalf("create income: %v", err)
	}
	if in.ID == "" {
		t.Fatal("id not assigned")
	}

	list, err := repo.ListIncomes(ctx, u.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("list incomes: %v", err)
	}
	if len(list) != 1 || list[0].Amount.Cents != 20000 {
		t.Fatalf("unexpected list: %+v", list)
	}

	total, err := repo.SumIncomes(ctx, u.ID, time.Time{})
	if err != nil {
		t.Fatalf("sum incomes: %v", err)
	}
	if total != 20000 {
		t.Fatalf("total = %d, want 20000", total)
	}

	if err := repo.DeleteIncome(ctx, in.ID, u.ID); err != nil {
		t.Fatalf("delete income: %v", err)
	}
	if err := repo.DeleteIncome(ctx, in.ID, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteNotOwned(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := newTestUser(t, repo, "owner@example.com")
	other := newTestUser(t, repo, "other@example.com")

	e := &core.Expense{UserID: owner.ID, Category: "food", Amount: core.Money{Cents: 500}, Date: time.Now()}
	if err := repo.CreateExpense(ctx, e); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if err := repo.DeleteExpense(ctx, e.ID, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}

	// Still retrievable by the owner.
	list, err := repo.ListExpenses(ctx, owner.ID, time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("record should be intact, got %d records", len(list))
	}
}

func TestExpenseWindowAndTripScope(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "w@example.com")

	trip := &core.Trip{UserID: u.ID, Name: "Rome", Visibility: core.VisibilityShared}
	if err := repo.CreateTrip(ctx, trip); err != nil {
		t.Fatalf("create trip: %v", err)
	}

	now := time.Now()
	old := &core.Expense{UserID: u.ID, Category: "food", Amount: core.Money{Cents: 100}, Date: now.AddDate(0, 0, -45)}
	recent := &core.Expense{UserID: u.ID, Category: "hotel", Amount: core.Money{Cents: 300}, Date: now, TripID: trip.ID}
	for _, e := range []*core.Expense{old, recent} {
		if err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}

	sum30, err := repo.SumExpenses(ctx, u.ID, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("sum expenses: %v", err)
	}
	if sum30 != 300 {
		t.Fatalf("30-day sum = %d, want 300", sum30)
	}

	windowed, err := repo.ListExpenses(ctx, u.ID, now.AddDate(0, 0, -30), time.Time{}, "")
	if err != nil {
		t.Fatalf("windowed list: %v", err)
	}
	if len(windowed) != 1 || windowed[0].ID != recent.ID {
		t.Fatalf("unexpected windowed list: %+v", windowed)
	}

	scoped, err := repo.ListExpenses(ctx, u.ID, time.Time{}, time.Time{}, trip.ID)
	if err != nil {
		t.Fatalf("trip-scoped list: %v", err)
	}
	if len(scoped) != 1 || scoped[0].TripID != trip.ID {
		t.Fatalf("unexpected trip scoping: %+v", scoped)
	}
}

func TestListOrderDescending(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "ord@example.com")

	now := time.Now()
	dates := []time.Time{now.AddDate(0, 0, -2), now, now.AddDate(0, 0, -1)}
	for _, d := range dates {
		in := &core.Income{UserID: u.ID, Source: "s", Amount: core.Money{Cents: 100}, Date: d}
		if err := repo.CreateIncome(ctx, in); err != nil {
			t.Fatalf("create income: %v", err)
		}
	}

	list, err := repo.ListIncomes(ctx, u.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("list incomes: %v", err)
	}
	for i := 1; i < len(list); i++ {
		if list[i].Date.After(list[i-1].Date) {
			t.Fatalf("list not descending at %d", i)
		}
	}
}

func TestTripParticipantsAndMessages(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := newTestUser(t, repo, "o@example.com")
	alice := newTestUser(t, repo, "alice@example.com")

	trip := &core.Trip{
		UserID:       owner.ID,
		Name:         "Lisbon",
		Participants: []string{alice.ID},
		Visibility:   core.VisibilityShared,
	}
	if err := repo.CreateTrip(ctx, trip); err != nil {
		t.Fatalf("create trip: %v", err)
	}

	got, err := repo.GetTrip(ctx, trip.ID)
	if err != nil {
		t.Fatalf("get trip: %v", err)
	}
	if len(got.Participants) != 1 || got.Participants[0] != alice.ID {
		t.Fatalf("participants = %v", got.Participants)
	}

	// Both users see the trip in their list.
	for _, uid := range []string{owner.ID, alice.ID} {
		trips, err := repo.ListTripsForUser(ctx, uid)
		if err != nil {
			t.Fatalf("list trips: %v", err)
		}
		if len(trips) != 1 {
			t.Fatalf("user %s: expected 1 trip, got %d", uid, len(trips))
		}
	}

	texts := []string{"first", "second", "third"}
	for _, txt := range texts {
		m := &core.TripMessage{TripID: trip.ID, UserID: owner.ID, Text: txt}
		if err := repo.CreateTripMessage(ctx, m); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	msgs, err := repo.ListTripMessages(ctx, trip.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, txt := range texts {
		if msgs[i].Text != txt {
			t.Errorf("message %d: got %q, want %q", i, msgs[i].Text, txt)
		}
		if msgs[i].AuthorName == "" {
			t.Errorf("message %d missing author name", i)
		}
	}
}

func TestGetTripNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetTrip(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
