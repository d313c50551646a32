package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/doc-insight/internal/apperror"
	"github.com/sakif/doc-insight/internal/model"
	"github.com/sakif/doc-insight/internal/service"
)

// maxAnalyzeBody caps the JSON body of /analyze.
const maxAnalyzeBody = 5 << 20

// Analyzer is the part of service.AnalysisService the handler uses.
type Analyzer interface {
	Analyze(ctx context.Context, user *model.User, text string) (*model.Analysis, error)
}

// AnalyzeHandler serves POST /analyze.
type AnalyzeHandler struct {
	analyzer Analyzer
	users    UserLookup
	logger   *slog.Logger
}

// NewAnalyzeHandler creates an AnalyzeHandler. users resolves the session to
// an account so the summary can be saved to that user's history.
func NewAnalyzeHandler(analyzer Analyzer, users UserLookup, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		users:    users,
		logger:   logger,
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// HandleAnalyze runs the four text models over the posted text.
//
// HTTP: POST /analyze
// Auth: optional (history is only saved for logged-in users)
// Body: {"text": "..."}
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAnalyzeBody)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("analyze: bad body", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("text", service.MsgNoText))
		return
	}

	user, err := currentUser(r.Context(), h.users)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), user, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
