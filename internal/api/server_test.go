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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docnarrative/internal/analyzer"
	"github.com/dgallion1/docnarrative/internal/config"
	"github.com/dgallion1/docnarrative/internal/pipeline"
)

const testKey = "test-key"

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Config{
		APIKey:         testKey,
		WorkerCount:    2,
		MaxQueueSize:   10,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	an, err := analyzer.New(analyzer.DefaultOptions())
	require.NoError(t, err)

	orch := pipeline.NewOrchestrator(cfg, an, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, log, cfg)
}

type file struct {
	name    string
	content string
}

// form builds a multipart body; files go under field.
func form(t *testing.T, field string, fields map[string]string, files ...file) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, s *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyze(t *testing.T) {
	s := newTestServer(t, nil)

	body, ct := form(t, "file", nil, file{"paper.txt", "The cat of a king.\n\nSee Fig. 3 for details."})
	rec := do(t, s, http.MethodPost, "/api/analyze", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, "paper", out["title"])
	assert.Equal(t, "The cat of a king. See Fig. 3 for details.", out["text"])
	assert.Equal(t, "cat king see fig 3 details", out["word_stream"])
	assert.Equal(t, false, out["reused"])

	sents := out["sentences"].([]any)
	require.Len(t, sents, 2)
	first := sents[0].(map[string]any)
	assert.Equal(t, "The cat of a king.", first["text"])
	assert.Equal(t, []any{"/body/p[1]/text()[1]"}, first["nodes"])
	assert.Nil(t, first["tokens"])
	assert.Len(t, out["chunks"].([]any), 1)

	// Same upload again is served from the result cache.
	body, ct = form(t, "file", nil, file{"paper.txt", "The cat of a king.\n\nSee Fig. 3 for details."})
	rec = do(t, s, http.MethodPost, "/api/analyze", body, ct)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["reused"])
}

func TestAnalyze_Options(t *testing.T) {
	s := newTestServer(t, nil)
	html := `<html><body><p id="a">We compute <math alttext="x"><mi>x</mi></math> here.</p><p id="b">Other.</p></body></html>`

	body, ct := form(t, "file", map[string]string{
		"root_xpath":     "//p[@id='a']",
		"math_mode":      "placeholder",
		"include_tokens": "true",
		"language":       "en",
	}, file{"doc.html", html})
	rec := do(t, s, http.MethodPost, "/api/analyze", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, "We compute MathFormula here.", out["text"])
	sent := out["sentences"].([]any)[0].(map[string]any)
	toks := sent["tokens"].([]any)
	require.Len(t, toks, 5)
	math := toks[2].(map[string]any)
	assert.Equal(t, "MathFormula", math["text"])
	assert.Equal(t, "math-placeholder", math["kind"])
	assert.Equal(t, true, toks[0].(map[string]any)["stopword"])
}

func TestAnalyze_Errors(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.MaxUploadBytes = 64 })

	tests := []struct {
		name   string
		fields map[string]string
		files  []file
		code   int
	}{
		{"missing file", nil, nil, http.StatusBadRequest},
		{"unsupported type", nil, []file{{"a.exe", "x"}}, http.StatusBadRequest},
		{"empty file", nil, []file{{"a.txt", ""}}, http.StatusBadRequest},
		{"bad math mode", map[string]string{"math_mode": "latex"}, []file{{"a.txt", "x"}}, http.StatusBadRequest},
		{"bad xpath", map[string]string{"root_xpath": "//p["}, []file{{"a.txt", "x"}}, http.StatusBadRequest},
		{"bad include_tokens", map[string]string{"include_tokens": "maybe"}, []file{{"a.txt", "x"}}, http.StatusBadRequest},
		{"unknown language", map[string]string{"language": "xx"}, []file{{"a.txt", "Hi."}}, http.StatusBadRequest},
		{"no match", map[string]string{"root_xpath": "//table"}, []file{{"a.txt", "Hi."}}, http.StatusUnprocessableEntity},
		{"too large", nil, []file{{"a.txt", string(bytes.Repeat([]byte("x"), 100))}}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := form(t, "file", tt.fields, tt.files...)
			rec := do(t, s, http.MethodPost, "/api/analyze", body, ct)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func waitForJob(t *testing.T, s *Server, id string) map[string]any {
	t.Helper()
	var out map[string]any
	require.Eventually(t, func() bool {
		rec := do(t, s, http.MethodGet, "/api/jobs/"+id, nil, "")
		if rec.Code != http.StatusOK {
			return false
		}
		out = decode(t, rec)
		st := out["status"]
		return st == string(pipeline.StatusCompleted) || st == string(pipeline.StatusFailed)
	}, 5*time.Second, 10*time.Millisecond)
	return out
}

func TestJobs(t *testing.T) {
	s := newTestServer(t, nil)

	body, ct := form(t, "file", map[string]string{"title": "Notes"}, file{"notes.md", "# Intro\n\nThe cat of a king."})
	rec := do(t, s, http.MethodPost, "/api/jobs", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	out := decode(t, rec)
	id := out["job_id"].(string)
	assert.Equal(t, "/api/jobs/"+id, out["poll_url"])
	assert.Equal(t, "queued", out["status"])

	snap := waitForJob(t, s, id)
	assert.Equal(t, "completed", snap["status"])
	assert.Equal(t, "Notes", snap["title"])

	rec = do(t, s, http.MethodGet, "/api/jobs/"+id+"/result", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode(t, rec)
	assert.Equal(t, "Notes", res["title"])
	assert.Equal(t, "Intro The cat of a king.", res["text"])
	assert.Equal(t, "intro cat king", res["word_stream"])
}

func TestJobs_Failed(t *testing.T) {
	s := newTestServer(t, nil)

	body, ct := form(t, "file", map[string]string{"root_xpath": "//table"}, file{"a.txt", "Hi."})
	rec := do(t, s, http.MethodPost, "/api/jobs", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decode(t, rec)["job_id"].(string)

	snap := waitForJob(t, s, id)
	assert.Equal(t, "failed", snap["status"])
	assert.Equal(t, "parsing", snap["phase"])

	rec = do(t, s, http.MethodGet, "/api/jobs/"+id+"/result", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "job is failed")
}

func TestJobs_NotFound(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/api/jobs/nope", "/api/jobs/nope/result"} {
		rec := do(t, s, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestBatchSubmit(t *testing.T) {
	s := newTestServer(t, nil)

	body, ct := form(t, "files", map[string]string{"language": "de"},
		file{"one.txt", "Der Hund und die Katze."},
		file{"two.exe", "binary"},
	)
	rec := do(t, s, http.MethodPost, "/api/jobs/batch", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	jobs := decode(t, rec)["jobs"].([]any)
	require.Len(t, jobs, 2)
	ok := jobs[0].(map[string]any)
	bad := jobs[1].(map[string]any)
	assert.Equal(t, "one.txt", ok["filename"])
	assert.NotEmpty(t, ok["job_id"])
	assert.Equal(t, "two.exe", bad["filename"])
	assert.Contains(t, bad["error"], "unsupported")

	snap := waitForJob(t, s, ok["job_id"].(string))
	assert.Equal(t, "completed", snap["status"])

	rec = do(t, s, http.MethodGet, "/api/jobs/"+ok["job_id"].(string)+"/result", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hund katze", decode(t, rec)["word_stream"])

	body, ct = form(t, "files", nil)
	rec = do(t, s, http.MethodPost, "/api/jobs/batch", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.WorkerCount = 3 })

	body, ct := form(t, "file", nil, file{"a.txt", "Hello, world."})
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/analyze", body, ct).Code)

	rec := do(t, s, http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, float64(0), out["queue_depth"])
	assert.Equal(t, float64(3), out["workers"])
	assert.Equal(t, float64(1), out["analysis"].(map[string]any)["count"])
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"paper.html":          "paper.html",
		"../../etc/passwd.md": "passwd.md",
		`dir\evil.txt`:        "dir_evil.txt",
		"a..b.txt":            "a_b.txt",
		"":                    "unnamed",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
