package endpoints

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/digest/internal/api"
	"github.com/jackzampolin/digest/internal/ingest"
	"github.com/jackzampolin/digest/internal/jobs"
	"github.com/jackzampolin/digest/internal/llmcall"
	"github.com/jackzampolin/digest/internal/providers"
	"github.com/jackzampolin/digest/internal/svcctx"
)

func chapterReply(title string) providers.MockReply {
	return providers.MockReply{Content: fmt.Sprintf(`{"is_chapter": true, "title": %q, "summary": "summary of %s"}`, title, title)}
}

type testEnv struct {
	server *httptest.Server
	jobs   *jobs.Manager
	store  *llmcall.Store
}

func newTestEnv(t *testing.T, replies ...providers.MockReply) *testEnv {
	t.Helper()

	reg := providers.NewRegistry()
	reg.RegisterLLM("mock", providers.NewMockClient(replies...))
	store := llmcall.NewStore(100)

	jm, err := jobs.NewManager(jobs.Config{
		Providers: reg,
		Defaults:  jobs.Defaults{Provider: "mock", MaxAttempts: 1, InitialDelay: time.Millisecond},
		Recorder:  store,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	services := &svcctx.Services{
		JobManager:   jm,
		Registry:     reg,
		LLMCallStore: store,
	}

	registry := api.NewRegistry()
	for _, ep := range All(Config{}) {
		registry.Register(ep)
	}
	mux := http.NewServeMux()
	registry.RegisterRoutes(mux, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), services)))
	}))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		jm.Shutdown(ctx)
	})

	return &testEnv{server: srv, jobs: jm, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.server.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestHealthAndStatus(t *testing.T) {
	env := newTestEnv(t)

	var health HealthResponse
	if code := env.do(t, "GET", "/health", nil, &health); code != http.StatusOK || health.Status != "ok" {
		t.Errorf("GET /health = %d %+v", code, health)
	}

	var status StatusResponse
	if code := env.do(t, "GET", "/status", nil, &status); code != http.StatusOK {
		t.Fatalf("GET /status = %d", code)
	}
	if status.Server != "running" || len(status.Providers) != 1 || status.Providers[0] != "mock" {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestSummaries(t *testing.T) {
	env := newTestEnv(t, chapterReply("One"), chapterReply("Two"))

	var created jobs.Record
	code := env.do(t, "POST", "/api/summaries", jobs.Request{
		Title:    "Book",
		Chapters: []string{"first text", "second text"},
	}, &created)
	if code != http.StatusAccepted {
		t.Fatalf("POST /api/summaries = %d", code)
	}
	if created.ID == "" || created.Total != 2 {
		t.Fatalf("unexpected record: %+v", created)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := env.jobs.Wait(ctx, created.ID); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	t.Run("get", func(t *testing.T) {
		var rec jobs.Record
		if code := env.do(t, "GET", "/api/summaries/"+created.ID, nil, &rec); code != http.StatusOK {
			t.Fatalf("GET = %d", code)
		}
		if rec.Status != jobs.StatusCompleted || len(rec.Chapters) != 2 || rec.Progress != 1 {
			t.Errorf("unexpected record: %+v", rec)
		}
		if !strings.Contains(rec.Result, "## Two") {
			t.Errorf("Result = %q", rec.Result)
		}
	})

	t.Run("list strips results", func(t *testing.T) {
		var resp ListSummariesResponse
		if code := env.do(t, "GET", "/api/summaries?status=completed", nil, &resp); code != http.StatusOK {
			t.Fatalf("GET = %d", code)
		}
		if resp.Total != 1 || resp.Summaries[0].ID != created.ID {
			t.Fatalf("unexpected list: %+v", resp)
		}
		if resp.Summaries[0].Result != "" || len(resp.Summaries[0].Chapters) != 0 {
			t.Error("list should omit chapters and result")
		}
	})

	t.Run("llm calls", func(t *testing.T) {
		var list ListLLMCallsResponse
		if code := env.do(t, "GET", "/api/llmcalls?job_id="+created.ID, nil, &list); code != http.StatusOK {
			t.Fatalf("GET = %d", code)
		}
		if list.Count != 2 {
			t.Fatalf("Count = %d, want 2", list.Count)
		}

		var call llmcall.Call
		if code := env.do(t, "GET", "/api/llmcalls/"+list.Calls[0].ID, nil, &call); code != http.StatusOK || call.JobID != created.ID {
			t.Errorf("GET call = %d %+v", code, call)
		}

		var counts LLMCallCountsResponse
		if code := env.do(t, "GET", "/api/llmcalls/counts/"+created.ID, nil, &counts); code != http.StatusOK {
			t.Fatalf("GET counts = %d", code)
		}
		total := 0
		for _, n := range counts.Counts {
			total += n
		}
		if total != 2 {
			t.Errorf("counts = %v, want 2 calls", counts.Counts)
		}
	})

	t.Run("cancel finished job", func(t *testing.T) {
		var rec jobs.Record
		if code := env.do(t, "POST", "/api/summaries/"+created.ID+"/cancel", nil, &rec); code != http.StatusOK {
			t.Fatalf("POST cancel = %d", code)
		}
		if rec.Status != jobs.StatusCompleted {
			t.Errorf("Status = %s, want completed", rec.Status)
		}
	})
}

func TestSummaries_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"no chapters", "POST", "/api/summaries", jobs.Request{}, http.StatusBadRequest},
		{"unknown provider", "POST", "/api/summaries", jobs.Request{Chapters: []string{"x"}, Provider: "nope"}, http.StatusBadRequest},
		{"bad strategy", "POST", "/api/summaries", jobs.Request{Chapters: []string{"x"}, ContextStrategy: "merge"}, http.StatusBadRequest},
		{"unknown job", "GET", "/api/summaries/missing", nil, http.StatusNotFound},
		{"cancel unknown job", "POST", "/api/summaries/missing/cancel", nil, http.StatusNotFound},
		{"bad limit", "GET", "/api/summaries?limit=x", nil, http.StatusBadRequest},
		{"unknown call", "GET", "/api/llmcalls/missing", nil, http.StatusNotFound},
		{"bad success filter", "GET", "/api/llmcalls?success=maybe", nil, http.StatusBadRequest},
		{"bad time filter", "GET", "/api/llmcalls?after=yesterday", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			if code := env.do(t, tt.method, tt.path, tt.body, &resp); code != tt.want {
				t.Errorf("status = %d, want %d (%s)", code, tt.want, resp.Error)
			}
			if resp.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestSummaries_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Post(env.server.URL+"/api/summaries", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestInitGating(t *testing.T) {
	registry := api.NewRegistry()
	for _, ep := range All(Config{}) {
		registry.Register(ep)
	}
	mux := http.NewServeMux()
	registry.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusServiceUnavailable, "initializing")
		}
	})

	for path, want := range map[string]int{
		"/health":        http.StatusOK,
		"/api/summaries": http.StatusServiceUnavailable,
		"/api/llmcalls":  http.StatusServiceUnavailable,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != want {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, want)
		}
	}
}

func buildEPUB(t *testing.T, title string, chapters ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name, body string, method uint16) {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		w.Write([]byte(body))
	}

	add("mimetype", "application/epub+zip", zip.Store)
	add("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`, zip.Deflate)

	var manifest, spine strings.Builder
	for i, text := range chapters {
		id := fmt.Sprintf("ch%d", i+1)
		fmt.Fprintf(&manifest, `<item id="%s" href="%s.xhtml" media-type="application/xhtml+xml"/>`, id, id)
		fmt.Fprintf(&spine, `<itemref idref="%s"/>`, id)
		add(id+".xhtml", `<html xmlns="http://www.w3.org/1999/xhtml"><body><p>`+text+`</p></body></html>`, zip.Deflate)
	}
	add("content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>`+title+`</dc:title></metadata>
  <manifest>`+manifest.String()+`</manifest>
  <spine>`+spine.String()+`</spine>
</package>`, zip.Deflate)

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func upload(t *testing.T, url, filename string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(data)
	}
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	return resp
}

func TestConvert(t *testing.T) {
	env := newTestEnv(t)
	url := env.server.URL + "/api/convert"

	t.Run("epub", func(t *testing.T) {
		resp := upload(t, url, "book.epub", buildEPUB(t, "Sample Book", "First chapter.", "Second chapter."))
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var doc ingest.Document
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if doc.Title != "Sample Book" {
			t.Errorf("Title = %q", doc.Title)
		}
		if len(doc.Chapters) != 2 || doc.Chapters[0] != "First chapter." {
			t.Errorf("Chapters = %q", doc.Chapters)
		}
	})

	t.Run("title from filename", func(t *testing.T) {
		resp := upload(t, url, "untitled-notes.epub", buildEPUB(t, "", "Only chapter."))
		defer resp.Body.Close()
		var doc ingest.Document
		json.NewDecoder(resp.Body).Decode(&doc)
		if doc.Title != "untitled-notes" {
			t.Errorf("Title = %q, want untitled-notes", doc.Title)
		}
	})

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     int
	}{
		{"missing file", "", nil, http.StatusBadRequest},
		{"wrong extension", "book.pdf", []byte("%PDF"), http.StatusBadRequest},
		{"not a zip", "book.epub", []byte("plain text"), http.StatusUnprocessableEntity},
		{"no chapters", "book.epub", buildEPUB(t, "Empty"), http.StatusUnprocessableEntity},
		{"too large", "big.epub", make([]byte, ingest.MaxUploadSize+1), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, url, tt.filename, tt.data)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestSwagger(t *testing.T) {
	env := newTestEnv(t)
	var spec map[string]any
	if code := env.do(t, "GET", "/swagger.json", nil, &spec); code != http.StatusOK {
		t.Fatalf("GET /swagger.json = %d", code)
	}
	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		t.Fatalf("spec has no paths: %v", spec)
	}
	if _, ok := paths["/api/summaries"]; !ok {
		t.Error("spec missing /api/summaries")
	}

	missing := &SwaggerEndpoint{SpecPath: t.TempDir() + "/none.json"}
	_, _, h := missing.Route()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/swagger.json", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing spec file = %d, want 404", rec.Code)
	}
}
