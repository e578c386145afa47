package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docqa/docqa-go/internal/ingestion"
	"github.com/docqa/docqa-go/internal/ledger"
)

// memLedger is an in-memory Ledger used to observe Record/Clear calls.
type memLedger struct {
	entries map[string]ledger.Entry
}

func newMemLedger() *memLedger {
	return &memLedger{entries: make(map[string]ledger.Entry)}
}

func (m *memLedger) Record(_ context.Context, e ledger.Entry) error {
	m.entries[e.Source] = e
	return nil
}

func (m *memLedger) List(context.Context) ([]ledger.Entry, error) {
	out := make([]ledger.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *memLedger) Clear(context.Context) error {
	m.entries = make(map[string]ledger.Entry)
	return nil
}

func (m *memLedger) Close() error { return nil }

// multipartUpload builds a multipart request body with a single "file" part.
func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleUpload_Success(t *testing.T) {
	t.Parallel()

	ing := &fakeIngester{res: ingestion.Result{
		Source:   "notes.txt",
		Chunks:   3,
		Embedded: 3,
		Bytes:    42,
	}}
	led := newMemLedger()
	s := newHandlerTestServer(nil, ing, nil)
	s.ledger = led

	body, contentType := multipartUpload(t, "notes.txt", "some document text")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if ing.gotName != "notes.txt" {
		t.Errorf("ingester got name %q", ing.gotName)
	}
	if string(ing.gotData) != "some document text" {
		t.Errorf("ingester got data %q", ing.gotData)
	}

	var resp uploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Source != "notes.txt" || resp.Chunks != 3 || resp.Embedded != 3 {
		t.Errorf("unexpected response: %+v", resp)
	}

	entry, ok := led.entries["notes.txt"]
	if !ok {
		t.Fatal("expected a ledger entry for notes.txt")
	}
	if entry.Chunks != 3 || entry.Bytes != 42 {
		t.Errorf("unexpected ledger entry: %+v", entry)
	}
	if entry.IngestedAt.IsZero() {
		t.Error("expected IngestedAt to be set")
	}
}

func TestHandleUpload_StagesToDocsDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ing := &fakeIngester{res: ingestion.Result{Source: "notes.txt", Chunks: 1, Embedded: 1}}
	s := newHandlerTestServer(nil, ing, nil)
	s.cfg.DocsDir = dir

	// A path-traversal filename must be reduced to its base name.
	body, contentType := multipartUpload(t, "../../etc/notes.txt", "staged content")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	staged, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	if err != nil {
		t.Fatalf("expected staged file: %v", err)
	}
	if string(staged) != "staged content" {
		t.Errorf("staged content mismatch: %q", staged)
	}
}

func TestHandleUpload_MissingFilePart(t *testing.T) {
	t.Parallel()

	s := newHandlerTestServer(nil, &fakeIngester{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/documents",
		strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleUpload_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	ing := &fakeIngester{}
	s := newHandlerTestServer(nil, ing, nil)

	body, contentType := multipartUpload(t, "slides.pptx", "binary gunk")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", w.Code)
	}
	if ing.gotName != "" {
		t.Error("ingester must not be called for unsupported formats")
	}
}

func TestHandleUpload_EmptyDocument(t *testing.T) {
	t.Parallel()

	ing := &fakeIngester{err: fmt.Errorf("%w: blank.txt", ingestion.ErrNoText)}
	s := newHandlerTestServer(nil, ing, nil)

	body, contentType := multipartUpload(t, "blank.txt", "   ")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestHandleUpload_IngestError(t *testing.T) {
	t.Parallel()

	ing := &fakeIngester{err: fmt.Errorf("qdrant unreachable")}
	s := newHandlerTestServer(nil, ing, nil)

	body, contentType := multipartUpload(t, "doc.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "qdrant unreachable") {
		t.Error("internal error detail leaked to the client")
	}
}

// ---------------------------------------------------------------------------
// GET /api/documents
// ---------------------------------------------------------------------------

func TestHandleDocuments_ListsLedgerAndCount(t *testing.T) {
	t.Parallel()

	led := newMemLedger()
	led.entries["a.pdf"] = ledger.Entry{
		Source: "a.pdf", Chunks: 5, Bytes: 1200, IngestedAt: time.Now(),
	}
	st := &fakeStore{count: 5}
	s := newHandlerTestServer(nil, nil, st)
	s.ledger = led

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	w := httptest.NewRecorder()

	s.handleDocuments(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp documentsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Documents) != 1 || resp.Documents[0].Source != "a.pdf" {
		t.Errorf("unexpected documents: %+v", resp.Documents)
	}
	if resp.Points != 5 {
		t.Errorf("expected 5 points, got %d", resp.Points)
	}
}

func TestHandleDocuments_EmptyCorpus(t *testing.T) {
	t.Parallel()

	s := newHandlerTestServer(nil, nil, &fakeStore{})
	s.ledger = newMemLedger()

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	w := httptest.NewRecorder()

	s.handleDocuments(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"documents":[]`) {
		t.Errorf("expected empty documents array, got: %s", w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// POST /api/clear
// ---------------------------------------------------------------------------

func TestHandleClear_WipesStoreAndLedger(t *testing.T) {
	t.Parallel()

	led := newMemLedger()
	led.entries["a.pdf"] = ledger.Entry{Source: "a.pdf"}
	st := &fakeStore{count: 10}
	s := newHandlerTestServer(nil, nil, st)
	s.ledger = led

	req := httptest.NewRequest(http.MethodPost, "/api/clear", nil)
	w := httptest.NewRecorder()

	s.handleClear(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !st.cleared {
		t.Error("expected store.Clear to be called")
	}
	if len(led.entries) != 0 {
		t.Errorf("expected ledger to be emptied, got %d entries", len(led.entries))
	}
}

func TestHandleClear_StoreError(t *testing.T) {
	t.Parallel()

	st := &fakeStore{clearErr: fmt.Errorf("qdrant down")}
	led := newMemLedger()
	led.entries["a.pdf"] = ledger.Entry{Source: "a.pdf"}
	s := newHandlerTestServer(nil, nil, st)
	s.ledger = led

	req := httptest.NewRequest(http.MethodPost, "/api/clear", nil)
	w := httptest.NewRecorder()

	s.handleClear(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if len(led.entries) != 1 {
		t.Error("ledger must not be cleared when the store clear fails")
	}
}
