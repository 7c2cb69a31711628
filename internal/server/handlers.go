package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/quizethic/quizethic-ai/internal/billing"
	"github.com/quizethic/quizethic-ai/internal/export"
	"github.com/quizethic/quizethic-ai/internal/quiz"
	"github.com/quizethic/quizethic-ai/internal/usage"
)

const (
	maxBodyBytes    = 64 << 10
	maxWebhookBytes = 1 << 20

	// nginx's code for a client that disconnected before the answer.
	statusClientClosedRequest = 499
)

type createQuizRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type attemptRequest struct {
	Score *int `json:"score"`
}

type quotaResponse struct {
	Error    string     `json:"error"`
	Tier     usage.Tier `json:"tier"`
	Used     int        `json:"used"`
	Limit    int        `json:"limit"`
	ResetsAt time.Time  `json:"resets_at"`
}

func (s *Server) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var body createQuizRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if s.cfg.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GenerateTimeout)
		defer cancel()
	}

	q, err := s.cfg.Quizzes.Create(ctx, quiz.Request{
		UserID:     UserID(r.Context()),
		Topic:      body.Topic,
		Difficulty: quiz.Difficulty(body.Difficulty),
		Count:      body.Count,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	quizzes, err := s.cfg.Quizzes.List(r.Context(), UserID(r.Context()), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if quizzes == nil {
		quizzes = []quiz.Quiz{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes})
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	q, err := s.cfg.Quizzes.Get(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleExportQuiz(w http.ResponseWriter, r *http.Request) {
	q, err := s.cfg.Quizzes.Get(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, &q); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(&q)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write export", "quiz_id", q.ID, "error", err)
	}
}

func (s *Server) handleRecordAttempt(w http.ResponseWriter, r *http.Request) {
	var body attemptRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Score == nil {
		writeError(w, http.StatusBadRequest, "score is required")
		return
	}

	a, err := s.cfg.Quizzes.RecordAttempt(r.Context(), UserID(r.Context()), r.PathValue("id"), *body.Score)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	st, err := s.cfg.Usage.Status(r.Context(), UserID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleBillingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	err = s.cfg.Webhooks.Verify(
		r.Header.Get("webhook-id"),
		r.Header.Get("webhook-timestamp"),
		r.Header.Get("webhook-signature"),
		body,
	)
	if err != nil {
		slog.Warn("webhook rejected", "webhook_id", r.Header.Get("webhook-id"), "error", err)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	event, err := billing.ParseEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.cfg.Billing.Apply(r.Context(), event)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidPayload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to apply webhook", "type", event.Type, "user_id", event.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"applied": out.Applied,
		"tier":    out.Tier,
		"reason":  out.Reason,
	})
}

// writeServiceError maps domain errors to HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var qe *usage.QuotaError
	switch {
	case errors.As(err, &qe):
		w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(qe.ResetsAt).Seconds())+1))
		writeJSON(w, http.StatusTooManyRequests, quotaResponse{
			Error:    "daily quiz limit reached",
			Tier:     qe.Tier,
			Used:     qe.Used,
			Limit:    qe.Limit,
			ResetsAt: qe.ResetsAt,
		})
	case errors.Is(err, usage.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "daily quiz limit reached")
	case errors.Is(err, quiz.ErrInvalidRequest), errors.Is(err, quiz.ErrInvalidScore):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, quiz.ErrNotFound):
		writeError(w, http.StatusNotFound, "quiz not found")
	case errors.Is(err, quiz.ErrGenerationFailed):
		slog.Error("quiz generation failed", "path", r.URL.Path, "user_id", UserID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "could not generate a valid quiz, please try again")
	case errors.Is(err, context.DeadlineExceeded):
		slog.Warn("request timed out", "path", r.URL.Path, "user_id", UserID(r.Context()))
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		slog.Info("client went away", "path", r.URL.Path, "user_id", UserID(r.Context()))
		writeError(w, statusClientClosedRequest, "request canceled")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
