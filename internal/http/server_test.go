package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwell/internal/core"
	"finwell/internal/services"
	"finwell/internal/storage/memory"
)

type testAPI struct {
	handler http.Handler
	server  *Server
	store   *memory.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.New()
	svc := services.NewTransactionService(store)
	t.Cleanup(func() { _ = svc.Close() })

	srv := NewServer(":0", svc, Options{AllowedOrigins: []string{"https://app.example"}})
	return &testAPI{handler: srv.Handler, server: srv, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, r)
	return w
}

type wireTransaction struct {
	ID        int64       `json:"id"`
	Category  string      `json:"category"`
	Note      *string     `json:"note"`
	Amount    json.Number `json:"amount"`
	Date      string      `json:"date"`
	Type      string      `json:"type"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (a *testAPI) create(t *testing.T, body string) wireTransaction {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/transactions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tx wireTransaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))
	return tx
}

func (a *testAPI) list(t *testing.T, month string) []wireTransaction {
	t.Helper()
	w := a.do(t, http.MethodGet, "/api/transactions?month="+month, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var txs []wireTransaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txs))
	return txs
}

func TestCreateRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	before := time.Now()

	tx := api.create(t, `{"category":"Food","note":"groceries","amount":42.35,"date":"2024-03-09","type":"EXPENSE"}`)
	assert.Positive(t, tx.ID)
	assert.Equal(t, "Food", tx.Category)
	require.NotNil(t, tx.Note)
	assert.Equal(t, "groceries", *tx.Note)
	assert.Equal(t, "42.35", tx.Amount.String())
	assert.Equal(t, "2024-03-09", tx.Date)
	assert.Equal(t, "EXPENSE", tx.Type)
	assert.False(t, tx.CreatedAt.Before(before), "createdAt %s precedes request at %s", tx.CreatedAt, before)

	listed := api.list(t, "2024-03")
	require.Len(t, listed, 1)
	assert.Equal(t, tx, listed[0])
}

func TestCreateAssignsDistinctIDs(t *testing.T) {
	api := newTestAPI(t)
	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		tx := api.create(t, `{"category":"Coffee","amount":3,"date":"2024-03-01","type":"EXPENSE"}`)
		assert.False(t, seen[tx.ID], "id %d reused", tx.ID)
		seen[tx.ID] = true
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/transactions", `{"category":"","amount":null,"date":"2024-03-01","type":"EXPENSE"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "category")
	assert.Contains(t, body.Fields, "amount")
	assert.Equal(t, 0, api.store.Len())
}

func TestCreateRejectsOversizedAmount(t *testing.T) {
	api := newTestAPI(t)

	start := time.Now()
	w := api.do(t, http.MethodPost, "/api/transactions", `{"category":"Food","amount":1e200000000,"date":"2024-03-05","type":"EXPENSE"}`)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"amount"`)
	assert.Less(t, w.Body.Len(), 512)
	assert.Equal(t, 0, api.store.Len())
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	api := newTestAPI(t)
	for _, body := range []string{
		`not json`,
		`{"category":"Food","amount":"abc","date":"2024-03-01","type":"EXPENSE"}`,
		`{"category":"Food","amount":1,"date":"2024-02-30","type":"EXPENSE"}`,
	} {
		w := api.do(t, http.MethodPost, "/api/transactions", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), `"error"`)
	}
	assert.Equal(t, 0, api.store.Len())
}

func TestListMonthBoundaries(t *testing.T) {
	api := newTestAPI(t)
	for _, date := range []string{"2024-01-31", "2024-02-01", "2024-02-29", "2024-03-01"} {
		api.create(t, `{"category":"Bills","amount":10,"date":"`+date+`","type":"EXPENSE"}`)
	}

	txs := api.list(t, "2024-02")
	require.Len(t, txs, 2)
	assert.Equal(t, "2024-02-01", txs[0].Date)
	assert.Equal(t, "2024-02-29", txs[1].Date)

	assert.Empty(t, api.list(t, "2023-02"))
	w := api.do(t, http.MethodGet, "/api/transactions?month=2023-02", "")
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestListOrdersByDateThenID(t *testing.T) {
	api := newTestAPI(t)
	late := api.create(t, `{"category":"A","amount":1,"date":"2024-05-20","type":"EXPENSE"}`)
	first := api.create(t, `{"category":"B","amount":1,"date":"2024-05-02","type":"INCOME"}`)
	second := api.create(t, `{"category":"C","amount":1,"date":"2024-05-02","type":"EXPENSE"}`)

	txs := api.list(t, "2024-05")
	require.Len(t, txs, 3)
	assert.Equal(t, []int64{first.ID, second.ID, late.ID}, []int64{txs[0].ID, txs[1].ID, txs[2].ID})
}

func TestMonthParameterErrors(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{
		"/api/transactions",
		"/api/transactions?month=2024",
		"/api/transactions?month=2024-13",
		"/api/transactions/summary",
		"/api/transactions/summary?month=March",
	} {
		w := api.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.JSONEq(t, `{"error":"month must be formatted as YYYY-MM"}`, w.Body.String(), path)
	}
}

func TestSummary(t *testing.T) {
	api := newTestAPI(t)
	api.create(t, `{"category":"Food","amount":10.00,"date":"2024-03-01","type":"EXPENSE"}`)
	api.create(t, `{"category":"Food","amount":7.50,"date":"2024-03-15","type":"EXPENSE"}`)
	api.create(t, `{"category":"Salary","amount":3000,"date":"2024-03-27","type":"INCOME"}`)
	api.create(t, `{"category":"Food","amount":99,"date":"2024-04-01","type":"EXPENSE"}`)

	w := api.do(t, http.MethodGet, "/api/transactions/summary?month=2024-03", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"Food":17.5,"Salary":0}`, w.Body.String())

	var sums map[string]json.Number
	dec := json.NewDecoder(strings.NewReader(w.Body.String()))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&sums))
	assert.Equal(t, "17.5", sums["Food"].String())

	w = api.do(t, http.MethodGet, "/api/transactions/summary?month=2024-06", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{}\n", w.Body.String())
}

func TestDelete(t *testing.T) {
	api := newTestAPI(t)
	keep := api.create(t, `{"category":"Rent","amount":850,"date":"2024-03-01","type":"EXPENSE"}`)
	gone := api.create(t, `{"category":"Food","amount":12,"date":"2024-03-02","type":"EXPENSE"}`)

	w := api.do(t, http.MethodDelete, "/api/transactions/"+jsonID(gone.ID), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	txs := api.list(t, "2024-03")
	require.Len(t, txs, 1)
	assert.Equal(t, keep.ID, txs[0].ID)

	w = api.do(t, http.MethodDelete, "/api/transactions/"+jsonID(gone.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Len(t, api.list(t, "2024-03"), 1)
}

func TestDeleteRejectsNonIntegerID(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodDelete, "/api/transactions/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownRoutes(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodPut, "/api/transactions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"method not allowed"}`, w.Body.String())
}

func TestHealthAndReadiness(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = api.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
}

func TestResponseHeaders(t *testing.T) {
	api := newTestAPI(t)

	r := httptest.NewRequest(http.MethodGet, "/api/transactions?month=2024-03", nil)
	r.Header.Set("Origin", "https://app.example")
	r.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)

	r := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	r.Header.Set("Origin", "https://app.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, r)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	r = httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	r.Header.Set("Origin", "https://evil.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	api.handler.ServeHTTP(w, r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerMetricsCountRequests(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodGet, "/healthz", "")
	api.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, int64(2), api.server.Metrics().TotalRequests)
}

// brokenService fails every call the way an unreachable database would.
type brokenService struct{ err error }

func (b brokenService) Create(context.Context, core.NewTransaction) (core.Transaction, error) {
	return core.Transaction{}, b.err
}
func (b brokenService) ListMonth(context.Context, core.Month) ([]core.Transaction, error) {
	return nil, b.err
}
func (b brokenService) SummaryMonth(context.Context, core.Month) (core.Summary, error) {
	return core.Summary{}, b.err
}
func (b brokenService) Delete(context.Context, int64) error { return b.err }
func (b brokenService) Ping(context.Context) error          { return b.err }

func TestStorageFailuresBecomeInternalErrors(t *testing.T) {
	srv := NewServer(":0", brokenService{err: errors.New("connection refused")}, Options{})

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/transactions?month=2024-03", ""},
		{http.MethodGet, "/api/transactions/summary?month=2024-03", ""},
		{http.MethodPost, "/api/transactions", `{"category":"Food","amount":1,"date":"2024-03-01","type":"EXPENSE"}`},
		{http.MethodDelete, "/api/transactions/1", ""},
	} {
		r := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusInternalServerError, w.Code, tc.path)
		assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
		assert.NotContains(t, w.Body.String(), "connection refused")
	}

	r := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
