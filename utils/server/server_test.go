package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/mouncefik/nbgen/utils/config"
	"github.com/mouncefik/nbgen/utils/models"
	"github.com/mouncefik/nbgen/utils/notebook"
	"github.com/mouncefik/nbgen/utils/pipeline"
	"github.com/mouncefik/nbgen/utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	salesCSV       = "region,units\nnorth,10\nsouth,4\n"
	taggedResponse = "[MARKDOWN]\n# Sales\n[CODE]\nimport pandas as pd\n[MARKDOWN]\nDone"
	testToken      = "test-token-0123456789"
)

type fakeCompleter struct {
	mu       sync.Mutex
	response string
	err      error
	requests []models.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func newTestServer(t *testing.T, completer pipeline.Completer, auth bool) *Server {
	t.Helper()
	cfg := config.NewEnvConfig()
	cfg.GeminiAPIKey = "gemini-key"
	cfg.Models = []string{"gemini-2.0-flash", "gpt-4o"}
	cfg.Server = config.DefaultServerConfig()
	if auth {
		cfg.Server.Enabled = true
		cfg.Server.BearerToken = testToken
	}
	s, err := newServer(cfg, completer)
	require.NoError(t, err)
	return s
}

type formFile struct {
	field, name string
	content     []byte
}

func multipartBody(t *testing.T, files []formFile, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func validFiles() []formFile {
	return []formFile{
		{fieldCSV, "sales.csv", []byte(salesCSV)},
		{fieldPDF, "description.pdf", testutil.MinimalPDF("units is the number of items sold")},
	}
}

func postForm(t *testing.T, s *Server, target string, files []formFile, fields map[string]string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files, fields)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) GenerateResponse {
	t.Helper()
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeCompleter{}, true)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, &fakeCompleter{}, false)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `name="csv_file"`)
	assert.Contains(t, body, `<option value="gemini-2.0-flash" selected>`)
	assert.Contains(t, body, `<option value="gpt-4o">`)

	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIGenerate(t *testing.T) {
	completer := &fakeCompleter{response: taggedResponse}
	s := newTestServer(t, completer, false)

	rec := postForm(t, s, "/api/generate", validFiles(), map[string]string{
		fieldGoal:  "  Compare regions  ",
		fieldModel: "gpt-4o",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "sales_analysis.ipynb", resp.Filename)
	assert.Equal(t, 3, resp.Cells)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), resp.RequestID)

	doc, err := notebook.Read([]byte(resp.Notebook))
	require.NoError(t, err)
	assert.Len(t, doc.Cells, 3)

	require.Len(t, completer.requests, 1)
	req := completer.requests[0]
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Contains(t, req.Prompt, "Compare regions")
	assert.Contains(t, req.Prompt, "units is the number of items sold")
}

func TestAPIGenerateErrors(t *testing.T) {
	tests := []struct {
		name       string
		files      []formFile
		completer  *fakeCompleter
		wantStatus int
		wantClass  string
		wantError  string
	}{
		{
			name:       "missing pdf",
			files:      validFiles()[:1],
			completer:  &fakeCompleter{response: taggedResponse},
			wantStatus: http.StatusBadRequest,
			wantClass:  pipeline.ClassInput.String(),
			wantError:  "PDF file not found",
		},
		{
			name: "wrong csv extension",
			files: []formFile{
				{fieldCSV, "sales.txt", []byte(salesCSV)},
				validFiles()[1],
			},
			completer:  &fakeCompleter{response: taggedResponse},
			wantStatus: http.StatusBadRequest,
			wantClass:  pipeline.ClassInput.String(),
			wantError:  "not allowed",
		},
		{
			name:       "auth failure",
			files:      validFiles(),
			completer:  &fakeCompleter{err: &models.Error{Kind: models.KindAuth, Message: "bad key"}},
			wantStatus: http.StatusUnauthorized,
			wantClass:  pipeline.ClassCredentials.String(),
			wantError:  "failed to get response from AI",
		},
		{
			name:       "retries exhausted",
			files:      validFiles(),
			completer:  &fakeCompleter{err: &models.Error{Kind: models.KindRetryBudgetExceeded, Message: "retries exhausted"}},
			wantStatus: http.StatusServiceUnavailable,
			wantClass:  pipeline.ClassRetryLater.String(),
		},
		{
			name:       "untagged response",
			files:      validFiles(),
			completer:  &fakeCompleter{response: "no tags here"},
			wantStatus: http.StatusServiceUnavailable,
			wantClass:  pipeline.ClassRetryLater.String(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.completer, false)
			rec := postForm(t, s, "/api/generate", tt.files, nil, nil)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantClass, resp.ErrorClass)
			assert.NotEmpty(t, resp.Guidance)
			if tt.wantError != "" {
				assert.Contains(t, resp.Error, tt.wantError)
			}
		})
	}
}

func TestAPIGenerateRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, &fakeCompleter{response: taggedResponse}, false)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"goal":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.config.MaxUploadMB = 1
	big := formFile{fieldCSV, "big.csv", bytes.Repeat([]byte("a,b\n"), 300_000)}
	rec = postForm(t, s, "/api/generate", []formFile{big, validFiles()[1]}, nil, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAPIGenerateAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + testToken, http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + testToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{response: taggedResponse}
			s := newTestServer(t, completer, true)
			header := http.Header{}
			if tt.header != "" {
				header.Set("Authorization", tt.header)
			}

			rec := postForm(t, s, "/api/generate", validFiles(), nil, header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Empty(t, completer.requests)
			}
		})
	}
}

func TestFormGenerate(t *testing.T) {
	s := newTestServer(t, &fakeCompleter{response: "chatter\n" + taggedResponse}, true)

	// The browser form is not behind bearer auth
	rec := postForm(t, s, "/generate", validFiles(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, pipeline.NotebookMIMEType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=sales_analysis.ipynb", rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("X-Notebook-Warnings"), "before the first tag")

	_, err := notebook.Read(rec.Body.Bytes())
	assert.NoError(t, err)
}

func TestFormGenerateShowsErrors(t *testing.T) {
	s := newTestServer(t, &fakeCompleter{response: taggedResponse}, false)

	rec := postForm(t, s, "/generate", validFiles()[:1], map[string]string{fieldGoal: "Find outliers"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "PDF file not found")
	assert.Contains(t, body, "Find outliers")
	assert.Contains(t, body, `class="error"`)
}

func TestStreamGenerate(t *testing.T) {
	s := newTestServer(t, &fakeCompleter{response: taggedResponse}, false)

	rec := postForm(t, s, "/api/generate?streaming=true", validFiles(), nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: progress\ndata: ")
	assert.Contains(t, body, `"stage":"completion"`)
	assert.Contains(t, body, "Notebook generated with 3 cells")
	require.Contains(t, body, "event: complete\ndata: ")
	assert.NotContains(t, body, "event: error")

	data := body[strings.Index(body, "event: complete\ndata: ")+len("event: complete\ndata: "):]
	data = strings.TrimSpace(data)
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal([]byte(data), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Cells)
}

func TestStreamGenerateError(t *testing.T) {
	completer := &fakeCompleter{err: &models.Error{Kind: models.KindContentBlocked, Message: "blocked"}}
	s := newTestServer(t, completer, false)

	header := http.Header{}
	header.Set("Accept", "text/event-stream")
	rec := postForm(t, s, "/api/generate", validFiles(), nil, header)

	body := rec.Body.String()
	assert.Contains(t, body, "event: error\ndata: ")
	assert.Contains(t, body, `"errorClass":"`+pipeline.ClassInput.String()+`"`)
	assert.NotContains(t, body, "event: complete")
}

func TestNewServerRequiresToken(t *testing.T) {
	cfg := config.NewEnvConfig()
	cfg.Server = &config.ServerConfig{Port: 8501, Enabled: true}
	_, err := newServer(cfg, nil)
	assert.Error(t, err)

	cfg.Server.BearerToken = testToken
	srv, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, ":8501", srv.Addr)
}

func TestUploadPath(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "sales.csv", "sales.csv", false},
		{"nested", "data/sales.csv", "sales.csv", false},
		{"traversal", "../../etc/passwd", "passwd", false},
		{"windows traversal", "..\\..\\secret.csv", "secret.csv", false},
		{"empty", "", "", true},
		{"dot dot", "..", "", true},
		{"trailing slash", "data/", "data", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := uploadPath(dir, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, dir+"/"+tt.want, got)
		})
	}
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("short"))
	assert.Equal(t, "Bear****6789", maskToken("Bearer "+testToken))
	assert.Equal(t, "ab...", truncateString("abcdefgh", 5))
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "héé...", truncateString("hééééééé", 6))
	assert.Equal(t, "日本語", truncateString("日本語", 3))
	assert.True(t, utf8.ValidString(truncateString(strings.Repeat("é", 100), 80)))
}
