package api

import (
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/lodgru/internal/gru"
	"github.com/samcharles93/lodgru/internal/gruio"
	"github.com/samcharles93/lodgru/internal/logger"
)

func newTestEcho(t *testing.T) (*echo.Echo, *ResultStore) {
	t.Helper()
	store := NewResultStore(4)
	server := NewServer(store, NewGRUService(DefaultServiceConfig()), logger.Text(io.Discard, slog.LevelWarn))
	e := echo.New()
	server.Register(e)
	return e, store
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func problemJSON(t *testing.T, extra map[string]any) string {
	t.Helper()
	in := gruio.RandomInputs(gruio.RandomSpec{Lengths: []int{2, 4, 3}, Hidden: 5, Seed: 1, WithBias: true, WithH0: true})
	p := gruio.FromInputs(in, gru.DefaultConfig())
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal problem: %v", err)
	}
	if len(extra) == 0 {
		return string(b)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal problem: %v", err)
	}
	for k, v := range extra {
		m[k] = v
	}
	b, err = json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal problem: %v", err)
	}
	return string(b)
}

type errorResp struct {
	Error ErrorBody `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body errorResp
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func TestForwardGetDeleteLifecycle(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/gru/forward", problemJSON(t, map[string]any{"include_batch": true}))
	if rec.Code != http.StatusOK {
		t.Fatalf("forward status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var res gruio.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !strings.HasPrefix(res.ID, "gru_") {
		t.Fatalf("unexpected id %q", res.ID)
	}
	if res.Kernel != "reference" {
		t.Fatalf("kernel: got %q", res.Kernel)
	}
	if len(res.Hidden) != 9 || len(res.Hidden[0]) != 5 {
		t.Fatalf("hidden shape: %d rows", len(res.Hidden))
	}
	if len(res.BatchGate) != 9 || len(res.BatchGate[0]) != 15 {
		t.Fatal("batch tensors missing")
	}

	getRec := doJSON(t, e, http.MethodGet, "/v1/gru/results/"+res.ID, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}

	delRec := doJSON(t, e, http.MethodDelete, "/v1/gru/results/"+res.ID, "")
	if delRec.Code != http.StatusOK || !strings.Contains(delRec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete: got %d body=%s", delRec.Code, delRec.Body.String())
	}

	if rec := doJSON(t, e, http.MethodGet, "/v1/gru/results/"+res.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestForwardKernelsAgree(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t)
	var results [2]gruio.Result
	for i, k := range []string{"reference", "fused"} {
		rec := doJSON(t, e, http.MethodPost, "/v1/gru/forward", problemJSON(t, map[string]any{"kernel": k, "workers": 2}))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d body=%s", k, rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &results[i]); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	for i := range results[0].Hidden {
		for j := range results[0].Hidden[i] {
			d := results[0].Hidden[i][j] - results[1].Hidden[i][j]
			if d > 1e-10 || d < -1e-10 {
				t.Fatalf("hidden[%d][%d]: reference %v fused %v", i, j, results[0].Hidden[i][j], results[1].Hidden[i][j])
			}
		}
	}
}

func TestForwardErrors(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t)
	tests := []struct {
		name     string
		body     string
		wantType string
	}{
		{"malformed json", `{"lengths":`, "invalid_request"},
		{"unknown kernel", problemJSON(t, map[string]any{"kernel": "gpu"}), "invalid_request"},
		{"zero length", problemJSON(t, map[string]any{"lengths": []int{2, 0, 7}}), "invalid_input"},
		{"empty lengths", problemJSON(t, map[string]any{"lengths": []int{}}), "invalid_input"},
		{"row count", problemJSON(t, map[string]any{"lengths": []int{2, 4, 4}}), "shape_mismatch"},
		{"lengths far past rows", problemJSON(t, map[string]any{"lengths": []int{1 << 34}}), "shape_mismatch"},
		{"lengths overflow", problemJSON(t, map[string]any{"lengths": []int{math.MaxInt, 2}}), "invalid_input"},
		{"bias length", problemJSON(t, map[string]any{"bias": []float64{1, 2}}), "shape_mismatch"},
		{"activation", problemJSON(t, map[string]any{"activation": "softmax"}), "unsupported_activation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/v1/gru/forward", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
			}
			if got := decodeError(t, rec); got.Type != tt.wantType {
				t.Fatalf("error type: got %q want %q (%s)", got.Type, tt.wantType, got.Message)
			}
		})
	}
}

func TestValidateEndpoint(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/gru/validate", problemJSON(t, map[string]any{"tolerance": 1e-8, "is_reverse": true}))
	if rec.Code != http.StatusOK {
		t.Fatalf("validate status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp ValidateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || len(resp.Diffs) != 4 || resp.Tolerance != 1e-8 {
		t.Fatalf("unexpected report: %+v", resp)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/gru/validate", problemJSON(t, map[string]any{"tolerance": -1}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative tolerance: got %d", rec.Code)
	}
}

func TestStoreEvictsOldest(t *testing.T) {
	t.Parallel()

	s := NewResultStore(2)
	for _, id := range []string{"a", "b", "c"} {
		s.Save(gruio.Result{ID: id})
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("oldest result should be evicted")
	}
	if s.Len() != 2 {
		t.Fatalf("len: got %d", s.Len())
	}
	if !s.Delete("b") || s.Delete("b") {
		t.Fatal("delete should succeed once")
	}
	s.Save(gruio.Result{ID: "d"})
	if _, ok := s.Get("c"); !ok {
		t.Fatal("c should survive after b was deleted")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t)
	if rec := doJSON(t, e, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}

	doJSON(t, e, http.MethodPost, "/v1/gru/forward", problemJSON(t, nil))
	rec := doJSON(t, e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "lodgru_forward_total") {
		t.Fatalf("metrics missing lodgru_forward_total")
	}
}
