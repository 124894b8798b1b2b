package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/config"
	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository/memory"
	"github.com/andresuchdata/freshstock/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type testServer struct {
	router *gin.Engine
	repo   *memory.Repository
	store  domain.Store
	milk   domain.Product
	batchA domain.Batch
	batchB domain.Batch
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.New()
	s := testServer{repo: repo}
	s.store = repo.MustStore("Store 1")
	s.milk = repo.MustProduct("Milk", "2.50")
	expA := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	expB := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	s.batchA = repo.MustBatch(s.milk.ID, "A", &expA)
	s.batchB = repo.MustBatch(s.milk.ID, "B", &expB)
	repo.MustStock(s.store.ID, s.batchA.ID, 5, 10)
	repo.MustStock(s.store.ID, s.batchB.ID, 8, 10)
	repo.MustFrequency(s.store.ID, s.milk.ID, 2, nil)

	services := service.NewServices(repo, nil, config.EngineConfig{}, time.UTC)
	s.router = NewRouter(services, nil)
	return s
}

func (s testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

var managerHeaders = map[string]string{"X-User-ID": "1", "X-User-Role": "Manager"}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := s.do(t, http.MethodGet, path, nil, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request id header", path)
		}
	}
}

func TestSaleFlow(t *testing.T) {
	s := newTestServer(t)

	check := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/fifo/check?store_id=%d&product_id=%d&batch_id=%d",
		s.store.ID, s.milk.ID, s.batchB.ID), nil, nil)
	if check.Code != http.StatusOK {
		t.Fatalf("fifo check: expected 200, got %d: %s", check.Code, check.Body.String())
	}
	violation := decode[struct {
		IsViolation     bool   `json:"is_violation"`
		ExpectedBatchID *int64 `json:"expected_batch_id"`
	}](t, check)
	if !violation.IsViolation || violation.ExpectedBatchID == nil || *violation.ExpectedBatchID != s.batchA.ID {
		t.Errorf("expected violation pointing at batch A, got %+v", violation)
	}

	w := s.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"store_id": s.store.ID,
		"items":    []map[string]any{{"product_id": s.milk.ID, "quantity": 10}},
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("sale: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	sale := decode[struct {
		TotalAmount string `json:"total_amount"`
		Items       []struct {
			Lines []struct {
				BatchID       int64 `json:"batch_id"`
				QuantityTaken int   `json:"quantity_taken"`
			} `json:"lines"`
		} `json:"items"`
	}](t, w)
	if sale.TotalAmount != "25" || len(sale.Items) != 1 || len(sale.Items[0].Lines) != 2 {
		t.Fatalf("unexpected sale %+v", sale)
	}

	short := s.do(t, http.MethodPost, "/api/v1/sales/allocate", map[string]any{
		"store_id": s.store.ID, "product_id": s.milk.ID, "quantity": 4,
	}, nil)
	if short.Code != http.StatusConflict {
		t.Fatalf("oversell: expected 409, got %d", short.Code)
	}
	body := decode[map[string]any](t, short)
	if body["kind"] != string(domain.KindInsufficientStock) || body["available"] != float64(3) {
		t.Errorf("unexpected oversell body %v", body)
	}

	overview := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/stores/%d/overview", s.store.ID), nil, nil)
	if overview.Code != http.StatusOK {
		t.Fatalf("overview: expected 200, got %d", overview.Code)
	}
	items := decode[struct {
		Items []domain.StockOverviewItem `json:"items"`
	}](t, overview).Items
	if len(items) != 1 || items[0].TotalQuantity != 3 || items[0].Status != domain.StockCritical {
		t.Errorf("expected 3 units Critical, got %+v", items)
	}
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		headers    map[string]string
		wantStatus int
	}{
		{name: "invalid store id", method: http.MethodGet, path: "/api/v1/stores/abc/stock", wantStatus: http.StatusBadRequest},
		{name: "unknown store", method: http.MethodGet, path: "/api/v1/stores/9999/stock", wantStatus: http.StatusNotFound},
		{name: "missing fifo params", method: http.MethodGet, path: "/api/v1/fifo/check?store_id=1", wantStatus: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, path: "/api/v1/sales", body: "nope", wantStatus: http.StatusBadRequest},
		{name: "zero quantity", method: http.MethodPost, path: "/api/v1/sales/allocate",
			body: map[string]any{"store_id": s.store.ID, "product_id": s.milk.ID, "quantity": 0}, wantStatus: http.StatusBadRequest},
		{name: "bad date", method: http.MethodGet, path: fmt.Sprintf("/api/v1/replenishment/preview/%d?date=10-01-2025", s.store.ID), wantStatus: http.StatusBadRequest},
		{name: "bad user header", method: http.MethodGet, path: "/api/v1/health", headers: map[string]string{"X-User-ID": "abc"}, wantStatus: http.StatusBadRequest},
		{name: "unknown movement endpoint", method: http.MethodPost, path: "/api/v1/stock/movements",
			body: map[string]any{"batch_id": s.batchA.ID, "quantity": 1, "origin": map[string]any{"type": "BATCH", "id": 1}, "destination": map[string]any{"type": "DISPOSAL"}},
			wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body, tt.headers)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestReplenishmentListFlow(t *testing.T) {
	s := newTestServer(t)
	generatePath := fmt.Sprintf("/api/v1/replenishment/lists/generate/%d?date=2025-01-10", s.store.ID)

	w := s.do(t, http.MethodPost, generatePath, nil, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("generate: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	list := decode[domain.ReplenishmentList](t, w)
	if len(list.Items) != 1 || list.Items[0].Reason != domain.ReasonFrequencyDue {
		t.Fatalf("unexpected list %+v", list)
	}

	again := s.do(t, http.MethodPost, generatePath, nil, nil)
	if again.Code != http.StatusConflict {
		t.Fatalf("second generate: expected 409, got %d", again.Code)
	}
	if code := decode[map[string]any](t, again)["code"]; code != domain.CodeDuplicateList {
		t.Errorf("expected duplicate_list code, got %v", code)
	}

	itemPath := fmt.Sprintf("/api/v1/replenishment/lists/%d/items/%d", list.ID, s.milk.ID)
	patch := map[string]any{"quantity": 12, "priority": "High"}

	if w := s.do(t, http.MethodPut, itemPath, patch, nil); w.Code != http.StatusForbidden {
		t.Errorf("anonymous override: expected 403, got %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, itemPath, patch, map[string]string{"X-User-ID": "2"}); w.Code != http.StatusForbidden {
		t.Errorf("employee override: expected 403, got %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, itemPath, map[string]any{"quantity": -3}, managerHeaders); w.Code != http.StatusBadRequest {
		t.Errorf("negative override: expected 400, got %d", w.Code)
	}

	w = s.do(t, http.MethodPut, itemPath, patch, managerHeaders)
	if w.Code != http.StatusOK {
		t.Fatalf("manager override: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	item := decode[domain.ReplenishmentListItem](t, w)
	if item.Quantity == nil || *item.Quantity != 12 || item.Priority != domain.PriorityHigh {
		t.Errorf("override not applied: %+v", item)
	}

	listPath := fmt.Sprintf("/api/v1/replenishment/lists/%d", list.ID)
	if w := s.do(t, http.MethodPatch, listPath, map[string]any{"status": "completed"}, managerHeaders); w.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPut, itemPath, patch, managerHeaders)
	if w.Code != http.StatusConflict || decode[map[string]any](t, w)["code"] != domain.CodeListClosed {
		t.Errorf("override on closed list: expected 409 list_closed, got %d %s", w.Code, w.Body.String())
	}
}

func TestRecordReplenishmentNeedsIdentity(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/api/v1/replenishment/frequencies/%d/%d/replenish", s.store.ID, s.milk.ID)
	body := map[string]any{"batch_id": s.batchB.ID, "quantity": 6, "date": "2025-01-10"}

	if w := s.do(t, http.MethodPost, path, body, nil); w.Code != http.StatusForbidden {
		t.Errorf("anonymous: expected 403, got %d", w.Code)
	}

	w := s.do(t, http.MethodPost, path, body, map[string]string{"X-User-ID": "5"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if q := s.repo.Quantity(s.store.ID, s.batchB.ID); q != 14 {
		t.Errorf("expected 14 on hand, got %d", q)
	}
}
