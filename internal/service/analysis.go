package service

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/doc-insight/internal/apperror"
	"github.com/sakif/doc-insight/internal/model"
	"github.com/sakif/doc-insight/internal/nlp/sentiment"
	"github.com/sakif/doc-insight/internal/repository"
)

// User-facing analysis messages.
const (
	MsgNoText         = "No text provided"
	MsgAnalysisFailed = "An error occurred while analyzing the text."
)

// TextSummarizer produces a summary or the too-short guidance message.
type TextSummarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// KeywordExtractor returns the document's keyphrases.
type KeywordExtractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// TopicModeler returns one label per topic.
type TopicModeler interface {
	Topics(ctx context.Context, text string) ([]string, error)
}

// SentimentAnalyzer returns the most confident sentiment label.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (sentiment.Result, error)
}

// AnalysisService runs the four text models over one input.
type AnalysisService struct {
	summarizer TextSummarizer
	keywords   KeywordExtractor
	topics     TopicModeler
	sentiment  SentimentAnalyzer
	history    repository.HistoryRepository
	logger     *slog.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(
	summarizer TextSummarizer,
	keywords KeywordExtractor,
	topics TopicModeler,
	sentiment SentimentAnalyzer,
	history repository.HistoryRepository,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		summarizer: summarizer,
		keywords:   keywords,
		topics:     topics,
		sentiment:  sentiment,
		history:    history,
		logger:     logger,
	}
}

// Analyze summarizes text and extracts keywords, topics and sentiment.
//
// The four models run concurrently and the result is all-or-nothing: the
// first failure cancels the others. When user is non-nil the summary is
// appended to their history before returning.
func (s *AnalysisService) Analyze(ctx context.Context, user *model.User, text string) (*model.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("text", MsgNoText)
	}

	var res model.Analysis
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		res.Summary, err = s.summarizer.Summarize(gctx, text)
		return err
	})
	g.Go(func() error {
		var err error
		res.Keywords, err = s.keywords.Extract(gctx, text)
		return err
	})
	g.Go(func() error {
		var err error
		res.Topics, err = s.topics.Topics(gctx, text)
		return err
	})
	g.Go(func() error {
		r, err := s.sentiment.Analyze(gctx, text)
		if err != nil {
			return err
		}
		res.Sentiment = r.String()
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("analysis failed",
			slog.Int("textLength", len(text)),
			slog.String("error", err.Error()),
		)
		return nil, apperror.GenerationFailed(MsgAnalysisFailed, err)
	}

	if user != nil {
		entry := &model.ChatHistory{UserID: user.ID, Summary: res.Summary}
		if err := s.history.Add(ctx, entry); err != nil {
			s.logger.Error("saving chat history failed",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
			return nil, apperror.GenerationFailed(MsgAnalysisFailed, err)
		}
	}

	return &res, nil
}
