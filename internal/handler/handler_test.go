package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pocket-change/internal/cache"
	"pocket-change/internal/domain"
	"pocket-change/internal/rates"
	"pocket-change/internal/records"
	"pocket-change/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubProvider struct {
	table domain.RateTable
}

func (s *stubProvider) FetchRates(ctx context.Context) (domain.RateTable, error) {
	return s.table, nil
}

type stubNotifier struct {
	sent []string
	err  error
}

func (s *stubNotifier) Send(ctx context.Context, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

func testTable() domain.RateTable {
	table := make(domain.RateTable)
	table.Set("BTC", "USD", decimal.NewFromInt(50000))
	table.Set("ETH", "USD", decimal.NewFromInt(3000))
	return table
}

func newTestRouter(notifier *stubNotifier) (*gin.Engine, *Handler) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	history := records.NewLog("records:history", 10, nil)
	favorites := records.NewLog("records:favorites", 10, nil)
	audit := records.NewLog("records:audit", 10, nil)

	svc := service.NewRatesService(
		testTracer,
		&stubProvider{table: testTable()},
		rates.NewStore("USD"),
		cache.New(nil),
		nil,
		history,
		audit,
		time.Minute,
	)

	h := New(testTracer, svc, history, favorites, audit, nil)
	if notifier != nil {
		h.notifier = notifier
	}
	h.RegisterRoutes(r, "")
	return r, h
}

func doRequest(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	r.ServeHTTP(w, req)
	return w
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, w.Body.String())
	}
	return env
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := doRequest(r, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestGetCurrencies(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := doRequest(r, "GET", "/api/currencies", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Currencies []domain.Currency `json:"currencies"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Currencies) != len(domain.Currencies) {
		t.Fatalf("expected %d currencies, got %d", len(domain.Currencies), len(resp.Currencies))
	}
}

func TestGetRates(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := doRequest(r, "GET", "/api/rates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var snap domain.RatesSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if !snap.Rates["BTC"]["USD"].Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("unexpected snapshot: %+v", snap.Rates)
	}
}

func TestGetRateDirect(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := doRequest(r, "GET", "/api/rates/btc/usd", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		From domain.Code     `json:"from"`
		To   domain.Code     `json:"to"`
		Rate decimal.Decimal `json:"rate"`
		Path string          `json:"path"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.From != "BTC" || resp.To != "USD" || resp.Path != "direct" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !resp.Rate.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("unexpected rate: %s", resp.Rate)
	}
}

func TestGetRateInversePath(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := doRequest(r, "GET", "/api/rates/usd/btc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "inverse") {
		t.Errorf("expected inverse path, got %s", w.Body.String())
	}
}

func TestGetRateUnknownCurrency(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := doRequest(r, "GET", "/api/rates/BTC/XYZ", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	env := decodeError(t, w)
	if env.Success || env.Message == "" {
		t.Fatalf("expected error envelope, got %+v", env)
	}
}

func TestGetRateUnavailable(t *testing.T) {
	r, _ := newTestRouter(nil)

	// ETH/GBP has no direct, inverse, or USD-bridged resolution in testTable.
	w := doRequest(r, "GET", "/api/rates/ETH/GBP", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
	env := decodeError(t, w)
	if env.Success {
		t.Fatalf("expected error envelope, got %+v", env)
	}
}

func TestConvert(t *testing.T) {
	r, h := newTestRouter(nil)

	w := doRequest(r, "GET", "/api/convert?amount=2&from=BTC&to=USD", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var conv domain.Conversion
	if err := json.Unmarshal(w.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decode conversion: %v", err)
	}
	if !conv.Result.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("expected result 100000, got %s", conv.Result)
	}
	if h.history.Len() != 1 {
		t.Fatalf("expected conversion recorded in history, got %d entries", h.history.Len())
	}
}

func TestConvertInvalidAmount(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := doRequest(r, "GET", "/api/convert?amount=abc&from=BTC&to=USD", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	env := decodeError(t, w)
	if env.Success || !strings.Contains(env.Message, "amount") {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestConvertNegativeAmount(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := doRequest(r, "GET", "/api/convert?amount=-1&from=BTC&to=USD", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLogRoutes(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := doRequest(r, "POST", "/api/favorites", []byte(`{"from":"BTC","to":"USD"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !created.Success || created.ID == "" {
		t.Fatalf("expected created entry with id, got %+v", created)
	}

	w = doRequest(r, "GET", "/api/favorites", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var listed struct {
		Entries []records.Entry `json:"entries"`
		Count   int             `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if listed.Count != 1 || listed.Entries[0].ID != created.ID {
		t.Fatalf("unexpected listing: %+v", listed)
	}

	w = doRequest(r, "DELETE", "/api/favorites/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = doRequest(r, "DELETE", "/api/favorites/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("removing a removed entry should 404, got %d", w.Code)
	}
	env := decodeError(t, w)
	if env.Success {
		t.Fatalf("expected error envelope, got %+v", env)
	}
}

func TestLogRejectsInvalidJSON(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := doRequest(r, "POST", "/api/history", []byte(`{broken`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestLogClear(t *testing.T) {
	r, _ := newTestRouter(nil)

	for i := 0; i < 3; i++ {
		doRequest(r, "POST", "/api/history", []byte(`{"n":1}`))
	}
	w := doRequest(r, "DELETE", "/api/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = doRequest(r, "GET", "/api/history", nil)
	var listed struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if listed.Count != 0 {
		t.Fatalf("expected empty log after clear, got %d", listed.Count)
	}
}

func TestNotify(t *testing.T) {
	notifier := &stubNotifier{}
	r, _ := newTestRouter(notifier)

	w := doRequest(r, "POST", "/api/notify", []byte(`{"message":"1 BTC = 50000 USD"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "1 BTC = 50000 USD" {
		t.Fatalf("unexpected deliveries: %+v", notifier.sent)
	}
}

func TestNotifyEmptyMessage(t *testing.T) {
	r, _ := newTestRouter(&stubNotifier{})

	w := doRequest(r, "POST", "/api/notify", []byte(`{"message":"  "}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	env := decodeError(t, w)
	if env.Success {
		t.Fatalf("expected error envelope, got %+v", env)
	}
}

func TestNotifyWithoutNotifier(t *testing.T) {
	r, _ := newTestRouter(nil)

	w := doRequest(r, "POST", "/api/notify", []byte(`{"message":"hello"}`))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
}
