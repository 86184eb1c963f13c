package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/classlog/internal/config"
	"github.com/JonMunkholm/classlog/internal/core"
)

type memStore struct {
	doc   any
	saved core.RecordSet
}

func (m *memStore) Load(context.Context) (any, error) { return m.doc, nil }

func (m *memStore) Save(_ context.Context, rs core.RecordSet) error {
	m.saved = rs.Clone()
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import: config.ImportConfig{
			MaxFileSize:    1 << 20,
			MaxConcurrent:  2,
			MaxWaitTime:    100 * time.Millisecond,
			HeaderScanRows: 10,
			HistorySize:    20,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, store core.Store) (*Server, *core.Service) {
	t.Helper()
	svc := core.NewService(store, core.Options{
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		MaxImportWait:        cfg.Import.MaxWaitTime,
		HeaderScanRows:       cfg.Import.HeaderScanRows,
		HistorySize:          cfg.Import.HistorySize,
	})
	s := NewServer(svc, cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, svc
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestEntriesLifecycle(t *testing.T) {
	s, svc := newTestServer(t, testConfig(), nil)

	rec := doJSON(t, s, http.MethodPost, "/api/entries", map[string]string{"key": "5/1/24 - T", "text": "Intro"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d: %s", rec.Code, rec.Body)
	}
	if got := decode[core.Entry](t, rec); got.Key != "05/01/2024 -T" {
		t.Errorf("add key = %q", got.Key)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/entries", map[string]string{"key": "05/01/2024 -T", "text": "dup"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate add status = %d", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "SES002" {
		t.Errorf("duplicate code = %q", got.Code)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/entries", map[string]string{"old_key": "05/01/2024 -T", "key": "06/01/2024 -P", "text": "Lab"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body)
	}
	if text, ok := svc.Get("06/01/2024 -P"); !ok || text != "Lab" {
		t.Errorf("updated entry = %q, %v", text, ok)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/entries", map[string]string{"key": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("update without old_key status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/entries", map[string][]string{"keys": {"06/01/2024 -P", "nope"}})
	if got := decode[map[string]int](t, rec); got["removed"] != 1 {
		t.Errorf("removed = %v", got)
	}
	if svc.Len() != 0 {
		t.Errorf("Len = %d after delete", svc.Len())
	}
}

func TestListEntries_CategoryFilter(t *testing.T) {
	s, svc := newTestServer(t, testConfig(), nil)
	svc.Replace(map[string]any{"05/01/2024 -T": "a", "06/01/2024 -P": "b", "07/01/2024 -T2": "c"})

	rec := doJSON(t, s, http.MethodGet, "/api/entries?category=t", nil)
	got := decode[entriesResponse](t, rec)
	if len(got.Entries) != 2 || got.Entries[0].Key != "05/01/2024 -T" || got.Entries[1].Key != "07/01/2024 -T2" {
		t.Errorf("filtered entries = %v", got.Entries)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/entries", nil)
	if got := decode[entriesResponse](t, rec); len(got.Entries) != 3 {
		t.Errorf("all entries = %v", got.Entries)
	}
}

func TestReplaceAndValidate(t *testing.T) {
	s, svc := newTestServer(t, testConfig(), nil)

	doc := map[string]any{"5/1/2024": "ok", "bad": "x"}

	rec := doJSON(t, s, http.MethodPost, "/api/validate", doc)
	got := decode[entriesResponse](t, rec)
	if len(got.Entries) != 1 || got.Entries[0].Key != "05/01/2024 -P" || got.Errors["bad"] == "" {
		t.Errorf("validate = %+v", got)
	}
	if svc.Len() != 0 {
		t.Error("validate must not touch the session")
	}

	rec = doJSON(t, s, http.MethodPut, "/api/entries/replace", doc)
	got = decode[entriesResponse](t, rec)
	if len(got.Entries) != 1 || len(got.Errors) != 1 || svc.Len() != 1 {
		t.Errorf("replace = %+v", got)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/entries/replace", []string{"not", "a", "map"})
	got = decode[entriesResponse](t, rec)
	if _, ok := got.Errors[core.BatchErrorKey]; !ok {
		t.Errorf("non-object replace errors = %v", got.Errors)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/clear", nil)
	if rec.Code != http.StatusOK || svc.Len() != 0 {
		t.Errorf("clear status = %d, len = %d", rec.Code, svc.Len())
	}
}

func TestMalformedBody(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "REQ001" {
		t.Errorf("code = %q, want REQ001", got.Code)
	}
}

func TestShift(t *testing.T) {
	s, svc := newTestServer(t, testConfig(), nil)
	svc.Replace(map[string]any{"30/01/2024 -T": "a", "31/01/2024 -T": "b"})

	rec := doJSON(t, s, http.MethodPost, "/api/shift", map[string]any{"unit": "months", "amount": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("shift status = %d: %s", rec.Code, rec.Body)
	}
	got := decode[shiftResponse](t, rec)
	if got.Stats.Changed != 2 || got.Stats.OverwrittenInLot != 1 {
		t.Errorf("stats = %+v", got.Stats)
	}
	if len(got.Entries) != 1 || got.Entries[0].Key != "29/02/2024 -T" {
		t.Errorf("entries = %v", got.Entries)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/shift", map[string]any{"unit": "weeks", "amount": 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad unit status = %d", rec.Code)
	}
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mp.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mp.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if err := mp.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mp.FormDataContentType()
}

func postImport(s *Server, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestImport(t *testing.T) {
	s, svc := newTestServer(t, testConfig(), nil)
	svc.Add("05/01/2024 -T", "manual")

	csv := "Diário de classe\nData;Modalidade;Matéria\n05/01/2024;Teórica;Intro\n06/01/2024;Prática;Lab\n;;\n"
	body, ct := multipartBody(t, "diario.csv", csv, nil)

	rec := postImport(s, body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body)
	}
	got := decode[core.ImportResult](t, rec)
	if got.Source != "diario.csv" || got.Header.Row != 2 || got.Stats.Valid != 2 || got.Replaced != 1 {
		t.Errorf("result = %+v", got)
	}
	if text, _ := svc.Get("05/01/2024 -T"); text != "Intro" {
		t.Errorf("imported text = %q", text)
	}
}

func TestImport_Errors(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		want     int
		code     string
	}{
		{"no file", "", "", nil, http.StatusBadRequest, "FILE003"},
		{"unsupported", "notes.pdf", "x", nil, http.StatusUnprocessableEntity, "IMP002"},
		{"empty csv", "empty.csv", "", nil, http.StatusUnprocessableEntity, "FILE002"},
		{"bad scan rows", "a.csv", "a;b\n", map[string]string{"scan_rows": "zero"}, http.StatusBadRequest, "REQ001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.filename, tt.content, tt.fields)
			rec := postImport(s, body, ct)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			if got := decode[ErrorResponse](t, rec); got.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
		})
	}
}

func TestImport_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 64
	s, _ := newTestServer(t, cfg, nil)

	body, ct := multipartBody(t, "big.csv", strings.Repeat("05/01/2024;Teórica;x\n", 20), nil)
	rec := postImport(s, body, ct)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	store := &memStore{}
	s, svc := newTestServer(t, testConfig(), store)
	svc.Add("05/01/2024 -T", "a")

	rec := doJSON(t, s, http.MethodPost, "/api/save", nil)
	if rec.Code != http.StatusOK || store.saved["05/01/2024 -T"] != "a" {
		t.Errorf("save status = %d, saved = %v", rec.Code, store.saved)
	}

	store.doc = map[string]any{"6/1/2024 - P": "loaded", "oops": "x"}
	rec = doJSON(t, s, http.MethodPost, "/api/load", nil)
	got := decode[entriesResponse](t, rec)
	if len(got.Entries) != 1 || got.Entries[0].Key != "06/01/2024 -P" || len(got.Errors) != 1 {
		t.Errorf("load = %+v", got)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/history", nil)
	history := decode[map[string][]core.Operation](t, rec)
	if ops := history["operations"]; len(ops) != 3 || ops[0].Kind != core.OpLoad {
		t.Errorf("history = %v", ops)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/status", nil)
	status := decode[statusResponse](t, rec)
	if status.Entries != 1 || status.Imports.MaxConcurrent != 2 {
		t.Errorf("status = %+v", status)
	}
}

func TestSave_NoStore(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), nil)

	rec := doJSON(t, s, http.MethodPost, "/api/save", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestIndexPage(t *testing.T) {
	s, svc := newTestServer(t, testConfig(), nil)
	svc.Add("05/01/2024 -T", "<b>Intro</b>")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "05/01/2024 -T") || !strings.Contains(body, "&lt;b&gt;Intro&lt;/b&gt;") {
		t.Errorf("page missing escaped entry: %s", body)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s, _ := newTestServer(t, cfg, nil)

	if rec := doJSON(t, s, http.MethodGet, "/api/status", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with key = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 2
	cfg.Rate.ImportLimit = 1
	s, _ := newTestServer(t, cfg, nil)

	for i := 0; i < 2; i++ {
		if rec := doJSON(t, s, http.MethodGet, "/api/status", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "RATE001" {
		t.Errorf("code = %q", got.Code)
	}
}

func TestRateLimiter_Window(t *testing.T) {
	s := &Server{}
	rl := s.newRateLimiter(1, 20*time.Millisecond)
	defer rl.stop()

	if !rl.allow("1.2.3.4") || rl.allow("1.2.3.4") {
		t.Fatal("second request inside window should be refused")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("other clients have their own budget")
	}

	time.Sleep(30 * time.Millisecond)
	if !rl.allow("1.2.3.4") {
		t.Error("budget should reset after the window")
	}
	rl.stop()
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrEntryNotFound, http.StatusNotFound},
		{core.ErrEntryExists, http.StatusConflict},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{core.ErrKeyPattern, http.StatusBadRequest},
		{core.ErrNoFile, http.StatusBadRequest},
		{core.ErrSheetNotFound, http.StatusUnprocessableEntity},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{context.Canceled, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedOrigins = []string{"https://diario.example.edu"}
	s, _ := newTestServer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/entries", nil)
	req.Header.Set("Origin", "https://diario.example.edu")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://diario.example.edu" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}
