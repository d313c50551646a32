package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/sakif/doc-insight/internal/apperror"
	"github.com/sakif/doc-insight/internal/service"
)

// multipartOverhead is allowed on top of the file limit for the multipart
// boundaries and part headers.
const multipartOverhead = 1 << 20

// Uploader is the part of service.UploadService the handler uses.
type Uploader interface {
	MaxBytes() int64
	CheckUpload(filename string, size int64) error
	Process(ctx context.Context, up service.Upload) (*service.UploadResult, error)
}

// UploadHandler serves POST /upload.
type UploadHandler struct {
	uploads Uploader
	logger  *slog.Logger
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(uploads Uploader, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

// HandleUpload summarizes an uploaded PDF and returns the summary as a PDF
// attachment.
//
// HTTP: POST /upload
// Auth: required
// Body: multipart/form-data with a "file" part
//
// Name and size are checked from the part header before the file is read,
// so an oversized or non-PDF upload is rejected without buffering it.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	limit := h.uploads.MaxBytes()
	if limit > 0 {
		if r.ContentLength > limit+multipartOverhead {
			writeError(w, apperror.ValidationFailed("file", service.MsgFileTooLarge))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperror.ValidationFailed("file", service.MsgFileTooLarge))
			return
		}
		writeError(w, apperror.ValidationFailed("file", service.MsgNoFilePart))
		return
	}
	defer file.Close()

	if err := h.uploads.CheckUpload(header.Filename, header.Size); err != nil {
		writeError(w, err)
		return
	}

	reader := io.Reader(file)
	if limit > 0 {
		reader = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		writeError(w, apperror.GenerationFailed(service.MsgProcessing, fmt.Errorf("reading upload: %w", err)))
		return
	}

	result, err := h.uploads.Process(r.Context(), service.Upload{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": service.DownloadName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.PDF)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.PDF); err != nil {
		h.logger.Warn("writing summary PDF", slog.String("error", err.Error()))
	}
}
