package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/sakif/doc-insight/internal/apperror"
	"github.com/sakif/doc-insight/internal/document"
	"github.com/sakif/doc-insight/internal/storage/local"
)

// memStore is an in-memory storage.Store.
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
	// failOn makes Save fail for names with this prefix.
	failOn string
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (m *memStore) Save(_ context.Context, name string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil || (m.failOn != "" && strings.HasPrefix(name, m.failOn)) {
		return "", errors.New("bucket unavailable")
	}
	m.files[name] = append([]byte(nil), data...)
	return "mem://" + name, nil
}

func (m *memStore) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for n := range m.files {
		out = append(out, n)
	}
	return out
}

func renderPDF(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := document.Render(&buf, text); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.Bytes()
}

func newTestUploadService(store *memStore, models *fakeModels, chunking bool) *UploadService {
	return NewUploadService(store, document.PureExtractor{}, models,
		UploadOptions{MaxBytes: 1 << 20, Chunking: chunking}, discardLogger())
}

func TestCheckUpload(t *testing.T) {
	svc := newTestUploadService(newMemStore(), happyModels(), false)

	tests := []struct {
		name     string
		filename string
		size     int64
		want     string
	}{
		{"no filename", "", 10, MsgNoFileSelected},
		{"no extension", "report", 10, MsgFileTypeInvalid},
		{"wrong extension", "report.docx", 10, MsgFileTypeInvalid},
		{"too large", "report.pdf", 1<<20 + 1, MsgFileTooLarge},
		{"upper case ok", "REPORT.PDF", 10, ""},
		{"at limit ok", "report.pdf", 1 << 20, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckUpload(tt.filename, tt.size)
			if tt.want == "" {
				if err != nil {
					t.Errorf("CheckUpload() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, apperror.ErrValidation) || appMessage(err) != tt.want {
				t.Errorf("CheckUpload() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestProcess_Success(t *testing.T) {
	store := newMemStore()
	models := happyModels()
	svc := newTestUploadService(store, models, false)

	res, err := svc.Process(context.Background(), Upload{
		Filename: "Quarterly Report.pdf",
		Data:     renderPDF(t, "Revenue grew across every region this quarter."),
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if res.Summary != "Short summary." {
		t.Errorf("Summary = %q", res.Summary)
	}
	if res.Pages != 1 {
		t.Errorf("Pages = %d, want 1", res.Pages)
	}
	if !strings.HasSuffix(res.Source, "_Quarterly_Report.pdf") {
		t.Errorf("Source = %q, want the sanitized name", res.Source)
	}
	if !strings.HasPrefix(res.Location, "mem://summary-") || !strings.HasSuffix(res.Location, ".pdf") {
		t.Errorf("Location = %q", res.Location)
	}
	if len(store.names()) != 2 {
		t.Errorf("stored %d files, want upload and summary", len(store.names()))
	}

	text, err := document.PureExtractor{}.Extract(res.PDF)
	if err != nil {
		t.Fatalf("extracting summary PDF: %v", err)
	}
	if !strings.Contains(text, "Short") {
		t.Errorf("summary PDF text = %q", text)
	}
	if len(models.texts) != 1 || !strings.Contains(models.texts[0], "Revenue") {
		t.Errorf("summarizer input = %q", models.texts)
	}
}

func TestProcess_UniqueSummaryNames(t *testing.T) {
	store := newMemStore()
	svc := newTestUploadService(store, happyModels(), false)
	data := renderPDF(t, "Some text worth summarizing.")

	first, err := svc.Process(context.Background(), Upload{Filename: "a.pdf", Data: data})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	second, err := svc.Process(context.Background(), Upload{Filename: "a.pdf", Data: data})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if first.Location == second.Location || first.Source == second.Source {
		t.Errorf("uploads share names: %q %q / %q %q", first.Source, second.Source, first.Location, second.Location)
	}
}

func TestProcess_ChunkingUsesLongSummary(t *testing.T) {
	models := happyModels()
	models.long = "Chunked summary."
	svc := newTestUploadService(newMemStore(), models, true)

	res, err := svc.Process(context.Background(), Upload{Filename: "a.pdf", Data: renderPDF(t, "Long document text.")})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Summary != "Chunked summary." || models.longCalls != 1 {
		t.Errorf("Summary = %q, long calls = %d", res.Summary, models.longCalls)
	}
}

func TestProcess_ValidationStoresNothing(t *testing.T) {
	store := newMemStore()
	svc := newTestUploadService(store, happyModels(), false)

	_, err := svc.Process(context.Background(), Upload{Filename: "notes.txt", Data: []byte("hello")})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Process() error = %v, want ErrValidation", err)
	}
	if n := len(store.names()); n != 0 {
		t.Errorf("stored %d files before validation passed", n)
	}
}

func TestProcess_UnreadablePDF(t *testing.T) {
	store := newMemStore()
	models := happyModels()
	svc := newTestUploadService(store, models, false)

	_, err := svc.Process(context.Background(), Upload{Filename: "broken.pdf", Data: []byte("%PDF-1.4 garbage")})
	if !errors.Is(err, apperror.ErrExtraction) {
		t.Fatalf("Process() error = %v, want ErrExtraction", err)
	}
	if appMessage(err) != MsgExtractFailed {
		t.Errorf("message = %q", appMessage(err))
	}

	// The upload itself is kept; no summary was produced.
	names := store.names()
	if len(names) != 1 || strings.HasPrefix(names[0], "summary-") {
		t.Errorf("stored files = %v, want only the upload", names)
	}
	if len(models.texts) != 0 {
		t.Error("summarizer called for an unreadable PDF")
	}
}

// blankPDF is a structurally valid one-page PDF with no text on it.
func blankPDF(t *testing.T) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	return buf.Bytes()
}

func TestProcess_BlankPageHasNoText(t *testing.T) {
	data := blankPDF(t)
	if pages, err := document.Validate(data); err != nil || pages != 1 {
		t.Fatalf("Validate() = %d, %v; want a valid 1-page PDF", pages, err)
	}

	store := newMemStore()
	models := happyModels()
	svc := newTestUploadService(store, models, false)

	_, err := svc.Process(context.Background(), Upload{Filename: "scan.pdf", Data: data})
	if !errors.Is(err, apperror.ErrExtraction) {
		t.Fatalf("Process() error = %v, want ErrExtraction", err)
	}
	if !errors.Is(err, document.ErrNoText) {
		t.Errorf("Process() error = %v, want wrapped document.ErrNoText", err)
	}
	if appMessage(err) != MsgExtractFailed {
		t.Errorf("message = %q", appMessage(err))
	}
	for _, name := range store.names() {
		if strings.HasPrefix(name, "summary-") {
			t.Errorf("summary %q stored for a PDF without text", name)
		}
	}
	if len(models.texts) != 0 {
		t.Error("summarizer called for a PDF without text")
	}
}

// swapStore is a local store that writes replacement bytes in place of the
// upload, so a test can tell whether text came from disk.
type swapStore struct {
	*local.Store
	upload []byte
}

func (s *swapStore) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if !strings.HasPrefix(name, "summary-") {
		data = s.upload
	}
	return s.Store.Save(ctx, name, data, contentType)
}

func TestProcess_LocalStoreExtractsFromStoredFile(t *testing.T) {
	dir := t.TempDir()
	ls, err := local.New(dir)
	if err != nil {
		t.Fatalf("local.New() error = %v", err)
	}
	store := &swapStore{Store: ls, upload: renderPDF(t, "Text read back from disk.")}
	models := happyModels()
	svc := NewUploadService(store, document.PureExtractor{}, models,
		UploadOptions{MaxBytes: 1 << 20}, discardLogger())

	res, err := svc.Process(context.Background(), Upload{
		Filename: "report.pdf",
		Data:     renderPDF(t, "Text only held in memory."),
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(models.texts) != 1 || !strings.Contains(models.texts[0], "disk") {
		t.Errorf("summarizer input = %q, want the stored file's text", models.texts)
	}
	if filepath.Dir(res.Source) != dir {
		t.Errorf("Source = %q, want a path under %q", res.Source, dir)
	}
	if _, err := os.Stat(res.Location); err != nil {
		t.Errorf("summary not written to disk: %v", err)
	}
}

func TestProcess_GenerationFailures(t *testing.T) {
	data := renderPDF(t, "Text that extracts fine.")

	t.Run("summarizer", func(t *testing.T) {
		models := happyModels()
		models.err = errors.New("model timeout")
		svc := newTestUploadService(newMemStore(), models, false)

		_, err := svc.Process(context.Background(), Upload{Filename: "a.pdf", Data: data})
		if !errors.Is(err, apperror.ErrGeneration) || appMessage(err) != MsgProcessing {
			t.Errorf("Process() error = %v, want generation error", err)
		}
	})

	t.Run("storing upload", func(t *testing.T) {
		store := newMemStore()
		store.err = errors.New("down")
		svc := newTestUploadService(store, happyModels(), false)

		_, err := svc.Process(context.Background(), Upload{Filename: "a.pdf", Data: data})
		if !errors.Is(err, apperror.ErrGeneration) {
			t.Errorf("Process() error = %v, want generation error", err)
		}
	})

	t.Run("storing summary", func(t *testing.T) {
		store := newMemStore()
		store.failOn = "summary-"
		svc := newTestUploadService(store, happyModels(), false)

		_, err := svc.Process(context.Background(), Upload{Filename: "a.pdf", Data: data})
		if !errors.Is(err, apperror.ErrGeneration) {
			t.Errorf("Process() error = %v, want generation error", err)
		}
	})
}

func TestStoredName(t *testing.T) {
	for _, in := range []string{"", "日本.pdf", "../.pdf"} {
		if got := storedName(in); !strings.HasSuffix(got, "_upload.pdf") {
			t.Errorf("storedName(%q) = %q, want fallback name", in, got)
		}
	}
}
