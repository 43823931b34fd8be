package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhongyd/addrnorm/internal/config"
	"github.com/zhongyd/addrnorm/internal/pipeline"
)

type fakeTagSource struct {
	entities map[string]string
	calls    int
}

func (f *fakeTagSource) Entities(ctx context.Context, address string) (map[string]string, error) {
	f.calls++
	return f.entities, nil
}

func testServer(t *testing.T, tags pipeline.TagSource) *Server {
	t.Helper()
	if tags == nil {
		tags = &fakeTagSource{}
	}
	cfg := config.Config{
		APIKey:         "test-key",
		TagSource:      "remote",
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         0,
		OutputDir:      t.TempDir(),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, tags, log)
	return NewServer(orch, tags, nil, nil, log, cfg)
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer test-key")
	return req
}

func TestHealth_NoAuthRequired(t *testing.T) {
	srv := testServer(t, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_MissingAndWrongKey(t *testing.T) {
	srv := testServer(t, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/standardize", strings.NewReader("{}")))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no auth: expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/standardize", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer wrong")
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: expected 401, got %d", rec.Code)
	}
}

func TestStandardize_WithSuppliedEntities(t *testing.T) {
	tags := &fakeTagSource{}
	srv := testServer(t, tags)

	body := `{"address":"五楼501","entities":{"floorno":"五楼","roomno":"501"}}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/standardize", strings.NewReader(body))))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if tags.calls != 0 {
		t.Errorf("expected no tagging for supplied entities, got %d calls", tags.calls)
	}

	var resp struct {
		Success bool `json:"success"`
		Levels  struct {
			Level10 string `json:"level10"`
			Level11 string `json:"level11"`
		} `json:"levels"`
		TokenResult struct {
			Tags []string `json:"ner_tags"`
		} `json:"token_result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Levels.Level10 != "五楼" || resp.Levels.Level11 != "501" {
		t.Errorf("unexpected levels: %+v", resp.Levels)
	}
	if len(resp.TokenResult.Tags) != 5 {
		t.Errorf("expected 5 tags, got %v", resp.TokenResult.Tags)
	}
}

func TestStandardize_TagsWhenEntitiesMissing(t *testing.T) {
	tags := &fakeTagSource{entities: map[string]string{"city": "杭州市"}}
	srv := testServer(t, tags)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/standardize", strings.NewReader(`{"address":"杭州市"}`))))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if tags.calls != 1 {
		t.Errorf("expected 1 tagging call, got %d", tags.calls)
	}
}

func TestStandardize_MissingAddress(t *testing.T) {
	srv := testServer(t, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/standardize", strings.NewReader(`{}`))))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestStandardizeBatch_TooMany(t *testing.T) {
	srv := testServer(t, nil)
	addrs := make([]string, maxBatchAddresses+1)
	for i := range addrs {
		addrs[i] = "地址"
	}
	body, _ := json.Marshal(map[string]any{"addresses": addrs})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/standardize/batch", bytes.NewReader(body))))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEncodeEndpoint(t *testing.T) {
	srv := testServer(t, nil)
	body := `{"address":"五楼501","entities":{"floorno":"五楼","roomno":"501"}}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/encode", strings.NewReader(body))))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Tokens []string `json:"tokens"`
		Tags   []string `json:"ner_tags"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Tokens) != 5 || resp.Tags[0] != "B-floorno" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestDecodeEndpoint(t *testing.T) {
	srv := testServer(t, nil)
	body := `{"tokens":["五","楼","5","0","1"],"ner_tags":["B-floorno","E-floorno","B-roomno","I-roomno","E-roomno"]}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/decode", strings.NewReader(body))))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Entities map[string]string `json:"entities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Entities["floorno"] != "五楼" || resp.Entities["roomno"] != "501" {
		t.Errorf("unexpected entities: %v", resp.Entities)
	}
}

func TestDecodeEndpoint_LengthMismatch(t *testing.T) {
	srv := testServer(t, nil)
	body := `{"tokens":["a","b"],"ner_tags":["O"]}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/decode", strings.NewReader(body))))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestTaggerStats_UnavailableWithoutClient(t *testing.T) {
	srv := testServer(t, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/stats/tagger", nil)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestIngest_AcceptsAndTracksJob(t *testing.T) {
	srv := testServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "addrs.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("杭州市文一西路\n"))
	mw.WriteField("mode", pipeline.ModeTokens)
	mw.Close()

	req := authed(httptest.NewRequest(http.MethodPost, "/api/ingest", &buf))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("expected a job id")
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/ingest/"+resp.JobID+"/status", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}

	// No worker is running, so results are not ready.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/ingest/"+resp.JobID+"/results", nil)))
	if rec.Code != http.StatusConflict {
		t.Errorf("results: expected 409, got %d", rec.Code)
	}
}

func TestIngest_RejectsUnsupportedFile(t *testing.T) {
	srv := testServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "data.bin")
	fw.Write([]byte("x"))
	mw.Close()

	req := authed(httptest.NewRequest(http.MethodPost, "/api/ingest", &buf))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestIngestStatus_UnknownJob(t *testing.T) {
	srv := testServer(t, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/ingest/nope/status", nil)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain.txt", "plain.txt"},
		{"../../etc/passwd", "passwd"},
		{"dir/sub/file.csv", "file.csv"},
		{"", "unnamed"},
	}
	for _, c := range cases {
		if got := sanitizeFilename(c.in); got != c.want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}
