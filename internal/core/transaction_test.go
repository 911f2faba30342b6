package core

import (
	"testing"
	"time"
)

func tx(id string, date, created time.Time) Transaction {
	return Transaction{ID: id, Kind: KindExpense, Amount: Money{Cents: 100}, Date: date, CreatedAt: created}
}

func TestMergeByDateDesc(t *testing.T) {
	base := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)

	a := tx("a", base.AddDate(0, 0, -2), base)
	b := tx("b", base, base)
	c := tx("c", base.AddDate(0, 0, -1), base)

	merged := MergeByDateDesc([]Transaction{a}, []Transaction{b, c})
	if len(merged) != 3 {
		t.Fatalf("expected 3, got %d", len(merged))
	}
	wantOrder := []string{"b", "c", "a"}
	for i, id := range wantOrder {
		if merged[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, merged[i].ID, id)
		}
	}
}

func TestMergeByDateDescTieBreak(t *testing.T) {
	date := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	older := tx("x", date, date.Add(-time.Hour))
	newer := tx("y", date, date)

	merged := MergeByDateDesc([]Transaction{older, newer})
	if merged[0].ID != "y" || merged[1].ID != "x" {
		t.Fatalf("tie-break by created_at failed: %s, %s", merged[0].ID, merged[1].ID)
	}

	// Same created_at: id descending keeps the order deterministic.
	p := tx("p", date, date)
	q := tx("q", date, date)
	merged = MergeByDateDesc([]Transaction{p, q})
	if merged[0].ID != "q" {
		t.Fatalf("tie-break by id failed: got %s first", merged[0].ID)
	}
}

func TestGroupByDay(t *testing.T) {
	d1 := time.Date(2025, 8, 10, 9, 30, 0, 0, time.UTC)
	d2 := time.Date(2025, 8, 9, 23, 59, 0, 0, time.UTC)

	groups := GroupByDay([]Transaction{
		tx("a", d1, d1),
		tx("b", d2, d2),
		tx("c", d1.Add(2*time.Hour), d1),
	})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Date != "2025-08-10" || groups[1].Date != "2025-08-09" {
		t.Fatalf("groups not sorted descending: %s, %s", groups[0].Date, groups[1].Date)
	}
	if len(groups[0].Transactions) != 2 {
		t.Fatalf("expected 2 transactions on 2025-08-10, got %d", len(groups[0].Transactions))
	}

	// Total count across groups equals input count.
	total := 0
	for _, g := range groups {
		total += len(g.Transactions)
	}
	if total != 3 {
		t.Fatalf("expected 3 total, got %d", total)
	}
}

func TestPaginateGroups(t *testing.T) {
	groups := []DayGroup{
		{Date: "2025-08-10"}, {Date: "2025-08-09"}, {Date: "2025-08-08"},
	}
	cases := []struct {
		page, limit int
		want        []string
	}{
		{1, 1, []string{"2025-08-10"}},
		{2, 1, []string{"2025-08-09"}},
		{1, 2, []string{"2025-08-10", "2025-08-09"}},
		{2, 2, []string{"2025-08-08"}},
		{5, 2, nil},
		{0, 0, []string{"2025-08-10"}}, // clamped to page 1, limit 1
	}
	for i, tc := range cases {
		got := PaginateGroups(groups, tc.page, tc.limit)
		if len(got) != len(tc.want) {
			t.Errorf("case %d: got %d groups, want %d", i, len(got), len(tc.want))
			continue
		}
		for j, d := range tc.want {
			if got[j].Date != d {
				t.Errorf("case %d pos %d: got %s, want %s", i, j, got[j].Date, d)
			}
		}
	}
}
