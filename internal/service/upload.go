package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/sakif/doc-insight/internal/apperror"
	"github.com/sakif/doc-insight/internal/document"
	"github.com/sakif/doc-insight/internal/storage"
)

// User-facing upload messages.
const (
	MsgNoFilePart      = "No file part in the request"
	MsgNoFileSelected  = "No file selected"
	MsgFileTypeInvalid = "File type not allowed"
	MsgFileTooLarge    = "File is too large"
	MsgExtractFailed   = "Failed to extract text from PDF"
	MsgProcessing      = "An error occurred during file processing."
)

// DownloadName is the attachment name of every summary PDF.
const DownloadName = "summarized_output.pdf"

// DocumentSummarizer summarizes extracted text, optionally window by window.
type DocumentSummarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	SummarizeLong(ctx context.Context, text string) (string, error)
}

// Upload is one file received from the client.
type Upload struct {
	Filename string
	Data     []byte
}

// UploadResult is the generated summary PDF.
type UploadResult struct {
	PDF      []byte
	Summary  string
	Pages    int
	Source   string // where the upload was stored
	Location string // where the summary PDF was stored
}

// UploadService turns an uploaded PDF into a summary PDF.
type UploadService struct {
	store      storage.Store
	extractor  document.Extractor
	summarizer DocumentSummarizer
	chunking   bool
	maxBytes   int64
	logger     *slog.Logger
}

// UploadOptions tune the pipeline.
type UploadOptions struct {
	// MaxBytes is the largest accepted upload.
	MaxBytes int64
	// Chunking summarizes long documents window by window.
	Chunking bool
}

// NewUploadService creates an UploadService.
func NewUploadService(
	store storage.Store,
	extractor document.Extractor,
	summarizer DocumentSummarizer,
	opts UploadOptions,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		store:      store,
		extractor:  extractor,
		summarizer: summarizer,
		chunking:   opts.Chunking,
		maxBytes:   opts.MaxBytes,
		logger:     logger,
	}
}

// MaxBytes is the upload size limit.
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// CheckUpload validates the name and size before anything is stored.
func (s *UploadService) CheckUpload(filename string, size int64) error {
	if filename == "" {
		return apperror.ValidationFailed("file", MsgNoFileSelected)
	}
	if !AllowedFile(filename) {
		return apperror.ValidationFailed("file", MsgFileTypeInvalid)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return apperror.ValidationFailed("file", MsgFileTooLarge)
	}
	return nil
}

// AllowedFile reports whether filename has a .pdf extension, in any case.
func AllowedFile(filename string) bool {
	i := strings.LastIndexByte(filename, '.')
	return i >= 0 && strings.EqualFold(filename[i+1:], "pdf")
}

// Process stores the upload, extracts its text, summarizes it and returns
// the rendered summary PDF. The stored upload is kept when a later step
// fails.
func (s *UploadService) Process(ctx context.Context, up Upload) (*UploadResult, error) {
	if err := s.CheckUpload(up.Filename, int64(len(up.Data))); err != nil {
		return nil, err
	}

	name := storedName(up.Filename)
	source, err := s.store.Save(ctx, name, up.Data, "application/pdf")
	if err != nil {
		return nil, apperror.GenerationFailed(MsgProcessing, fmt.Errorf("storing upload: %w", err))
	}
	log := s.logger.With(slog.String("upload", source))

	pages, err := document.Validate(up.Data)
	if err != nil {
		log.Warn("rejected invalid PDF", slog.String("error", err.Error()))
		return nil, apperror.ExtractionFailed(MsgExtractFailed, err)
	}

	text, err := s.extract(source, up.Data)
	if err != nil {
		log.Warn("no text extracted", slog.Int("pages", pages), slog.String("error", err.Error()))
		return nil, apperror.ExtractionFailed(MsgExtractFailed, err)
	}

	summarize := s.summarizer.Summarize
	if s.chunking {
		summarize = s.summarizer.SummarizeLong
	}
	summary, err := summarize(ctx, text)
	if err != nil {
		return nil, apperror.GenerationFailed(MsgProcessing, fmt.Errorf("summarizing: %w", err))
	}

	var buf bytes.Buffer
	if err := document.Render(&buf, summary); err != nil {
		return nil, apperror.GenerationFailed(MsgProcessing, err)
	}

	location, err := s.store.Save(ctx, "summary-"+uuid.NewString()+".pdf", buf.Bytes(), "application/pdf")
	if err != nil {
		return nil, apperror.GenerationFailed(MsgProcessing, fmt.Errorf("storing summary: %w", err))
	}

	log.Info("document summarized",
		slog.Int("pages", pages),
		slog.Int("textLength", len(text)),
		slog.String("summary", location),
	)

	return &UploadResult{
		PDF:      buf.Bytes(),
		Summary:  summary,
		Pages:    pages,
		Source:   source,
		Location: location,
	}, nil
}

// extract reads the text back from the stored copy when the store returned a
// local path. Remote locations (s3://) use the bytes already in memory.
func (s *UploadService) extract(source string, data []byte) (string, error) {
	if strings.Contains(source, "://") {
		return s.extractor.Extract(data)
	}
	return document.ExtractFile(s.extractor, source)
}

// storedName gives each upload a unique, filesystem-safe name.
func storedName(filename string) string {
	safe := storage.SanitizeFilename(filename)
	if safe == "" || strings.EqualFold(safe, "pdf") {
		safe = "upload.pdf"
	}
	return xid.New().String() + "_" + filepath.Base(safe)
}
