package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"expensia/internal/auth"
	"expensia/internal/chat"
	applog "expensia/internal/log"
	"expensia/internal/services"
	"expensia/internal/storage"
)

type apiFixture struct {
	server *httptest.Server
	repo   *storage.SQLiteRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	authService := auth.NewService(repo, time.Hour)
	transactions := services.NewTransactionService(repo, nil)
	dashboard := services.NewDashboardService(repo)
	export := services.NewExportService(repo)
	chatHandler := chat.NewHandler(authService, repo, nil, chat.NewHub())
	logger := applog.New("test", applog.Config{})

	s := NewServer("127.0.0.1:0", authService, repo, transactions, dashboard, export, chatHandler, logger)
	t.Cleanup(func() { s.limiter.stop() })

	server := httptest.NewServer(s.Server.Handler)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, repo: repo}
}

func (f *apiFixture) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (f *apiFixture) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	resp := f.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"fullName": "Test User",
		"email":    email,
		"password": "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	if body.Token == "" {
		t.Fatal("register returned no token")
	}
	return body.Token
}

func TestAuthFlow(t *testing.T) {
	f := newAPIFixture(t)

	token := f.registerAndLogin(t, "a@example.com")

	resp := f.request(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
	var me map[string]string
	decodeBody(t, resp, &me)
	if me["email"] != "a@example.com" {
		t.Errorf("me email = %q", me["email"])
	}

	resp = f.request(t, http.MethodGet, "/api/v1/auth/me", "bogus", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", resp.StatusCode)
	}

	resp = f.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "a@example.com", "password": "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{"/api/v1/dashboard", "/api/v1/income/get", "/api/v1/expense/get"} {
		resp := f.request(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s status = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestIncomeEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "a@example.com")

	today := time.Now().Format("2006-01-02")
	resp := f.request(t, http.MethodPost, "/api/v1/income/add", token, map[string]any{
		"source": "salary",
		"icon":   "💰",
		"amount": 2000.50,
		"date":   today,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d", resp.StatusCode)
	}
	var created struct {
		Success bool `json:"success"`
		Data    struct {
			ID     string  `json:"id"`
			Amount float64 `json:"amount"`
		} `json:"data"`
	}
	decodeBody(t, resp, &created)
	if !created.Success || created.Data.ID == "" {
		t.Fatalf("created = %+v", created)
	}
	if created.Data.Amount != 2000.50 {
		t.Errorf("amount = %v, want 2000.50", created.Data.Amount)
	}

	resp = f.request(t, http.MethodGet, "/api/v1/income/get", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var page struct {
		Data []struct {
			Date         string `json:"_id"`
			Transactions []struct {
				Type  string `json:"type"`
				Label string `json:"label"`
			} `json:"transactions"`
		} `json:"data"`
		TotalPages  int `json:"totalPages"`
		CurrentPage int `json:"currentPage"`
	}
	decodeBody(t, resp, &page)
	if len(page.Data) != 1 || page.Data[0].Date != today {
		t.Fatalf("groups = %+v", page.Data)
	}
	if page.Data[0].Transactions[0].Type != "income" || page.Data[0].Transactions[0].Label != "salary" {
		t.Errorf("transaction = %+v", page.Data[0].Transactions[0])
	}
	if page.TotalPages != 1 || page.CurrentPage != 1 {
		t.Errorf("totalPages = %d, currentPage = %d", page.TotalPages, page.CurrentPage)
	}

	// Validation errors surface as 400.
	resp = f.request(t, http.MethodPost, "/api/v1/income/add", token, map[string]any{
		"source": "salary", "amount": 0, "date": today,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("zero amount status = %d, want 400", resp.StatusCode)
	}
	resp = f.request(t, http.MethodPost, "/api/v1/income/add", token, map[string]any{
		"source": "salary", "amount": 10, "date": today,
		"description": strings.Repeat("x", 201),
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("long description status = %d, want 400", resp.StatusCode)
	}

	// Deleting someone else's record is indistinguishable from a
	// missing one.
	other := f.registerAndLogin(t, "b@example.com")
	resp = f.request(t, http.MethodDelete, "/api/v1/income/"+created.Data.ID, other, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want 404", resp.StatusCode)
	}

	resp = f.request(t, http.MethodDelete, "/api/v1/income/"+created.Data.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner delete status = %d, want 200", resp.StatusCode)
	}
}

func TestExpenseEndpointsWithTrip(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "a@example.com")

	resp := f.request(t, http.MethodPost, "/api/v1/trips", token, map[string]any{
		"name": "Lisbon", "visibility": "shared",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create trip status = %d", resp.StatusCode)
	}
	var trip struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &trip)

	today := time.Now().Format("2006-01-02")
	resp = f.request(t, http.MethodPost, "/api/v1/expense/add", token, map[string]any{
		"category": "hotel", "amount": 120, "date": today, "tripId": trip.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add trip expense status = %d", resp.StatusCode)
	}
	resp = f.request(t, http.MethodPost, "/api/v1/expense/add", token, map[string]any{
		"category": "groceries", "amount": 40, "date": today,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add plain expense status = %d", resp.StatusCode)
	}

	// Unknown trip is rejected.
	resp = f.request(t, http.MethodPost, "/api/v1/expense/add", token, map[string]any{
		"category": "x", "amount": 1, "date": today, "tripId": "nope",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown trip status = %d, want 404", resp.StatusCode)
	}

	resp = f.request(t, http.MethodGet, "/api/v1/expense/get?tripId="+trip.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var page struct {
		Data []struct {
			Transactions []struct {
				Label string `json:"label"`
			} `json:"transactions"`
		} `json:"data"`
	}
	decodeBody(t, resp, &page)
	if len(page.Data) != 1 || len(page.Data[0].Transactions) != 1 {
		t.Fatalf("trip scope groups = %+v", page.Data)
	}
	if page.Data[0].Transactions[0].Label != "hotel" {
		t.Errorf("label = %q, want hotel", page.Data[0].Transactions[0].Label)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "a@example.com")

	today := time.Now().Format("2006-01-02")
	f.request(t, http.MethodPost, "/api/v1/income/add", token, map[string]any{
		"source": "salary", "amount": 1000, "date": today,
	})
	f.request(t, http.MethodPost, "/api/v1/expense/add", token, map[string]any{
		"category": "rent", "amount": 400, "date": today,
	})

	resp := f.request(t, http.MethodGet, "/api/v1/dashboard", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}
	var summary struct {
		TotalBalance     float64 `json:"totalBalance"`
		TotalIncome      float64 `json:"totalIncome"`
		TotalExpense     float64 `json:"totalExpense"`
		Last60DaysIncome struct {
			Total float64 `json:"total"`
		} `json:"last60DaysIncome"`
		RecentTransactions []struct {
			Type string `json:"type"`
		} `json:"recentTransactions"`
	}
	decodeBody(t, resp, &summary)
	if summary.TotalBalance != 600 || summary.TotalIncome != 1000 || summary.TotalExpense != 400 {
		t.Errorf("totals = %+v", summary)
	}
	if summary.Last60DaysIncome.Total != 1000 {
		t.Errorf("income window total = %v", summary.Last60DaysIncome.Total)
	}
	if len(summary.RecentTransactions) != 2 {
		t.Errorf("recent = %d, want 2", len(summary.RecentTransactions))
	}
}

func TestExportEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "a@example.com")

	resp := f.request(t, http.MethodGet, "/api/v1/income/download", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty export status = %d, want 404", resp.StatusCode)
	}

	today := time.Now().Format("2006-01-02")
	f.request(t, http.MethodPost, "/api/v1/income/add", token, map[string]any{
		"source": "salary", "amount": 1000, "date": today,
	})

	resp = f.request(t, http.MethodGet, "/api/v1/income/download", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %q", ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()
	rows, err := wb.GetRows("Incomes")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %d, want header plus one record", len(rows))
	}
}

func TestTripMessagesEndpointAccess(t *testing.T) {
	f := newAPIFixture(t)
	ownerToken := f.registerAndLogin(t, "owner@example.com")
	strangerToken := f.registerAndLogin(t, "stranger@example.com")

	resp := f.request(t, http.MethodPost, "/api/v1/trips", ownerToken, map[string]any{
		"name": "Solo", "visibility": "private",
	})
	var trip struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &trip)

	resp = f.request(t, http.MethodGet, fmt.Sprintf("/api/v1/trips/%s/messages", trip.ID), ownerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner messages status = %d, want 200", resp.StatusCode)
	}

	resp = f.request(t, http.MethodGet, fmt.Sprintf("/api/v1/trips/%s/messages", trip.ID), strangerToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("stranger messages status = %d, want 404", resp.StatusCode)
	}
}
