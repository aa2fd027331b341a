package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/viralforge/interaction-service/internal/application"
	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/domain"
)

type Handler struct{ service *application.Service }

func NewHandler(service *application.Service) *Handler { return &Handler{service: service} }

// writeAccepted reports the publish outcome. A broker failure is deliberately
// not an error response: the pipeline augments the user action, it never
// blocks it.
func writeAccepted(w http.ResponseWriter, env contracts.EventEnvelope, publishErr error) {
	writeSuccess(w, http.StatusAccepted, "interaction accepted", contracts.PublishAcceptedResponse{
		MessageID: env.MessageID,
		EventKind: env.EventKind,
		Enqueued:  publishErr == nil,
	})
}

func (h *Handler) publishLike(w http.ResponseWriter, r *http.Request) {
	h.publishToggle(w, r, h.service.PublishLike)
}

func (h *Handler) publishBookmark(w http.ResponseWriter, r *http.Request) {
	h.publishToggle(w, r, h.service.PublishBookmark)
}

func (h *Handler) publishToggle(w http.ResponseWriter, r *http.Request, publish func(ctx context.Context, actor application.Actor, in application.ToggleInput) (contracts.EventEnvelope, error)) {
	var req contracts.ToggleInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	env, err := publish(r.Context(), actorFromContext(r.Context()), application.ToggleInput{
		PostID:    req.PostID,
		Apply:     req.Apply,
		MessageID: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil && !errors.Is(err, domain.ErrBrokerUnavailable) {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeAccepted(w, env, err)
}

func (h *Handler) publishComment(w http.ResponseWriter, r *http.Request) {
	var req contracts.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	env, err := h.service.PublishComment(r.Context(), actorFromContext(r.Context()), application.CommentInput{
		PostID:          req.PostID,
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
		PostTitle:       req.PostTitle,
		PostAuthorID:    req.PostAuthorID,
		MessageID:       strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil && !errors.Is(err, domain.ErrBrokerUnavailable) {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeAccepted(w, env, err)
}

func (h *Handler) publishStatsUpdate(w http.ResponseWriter, r *http.Request) {
	var req contracts.StatsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	env, err := h.service.PublishStatsUpdate(r.Context(), actorFromContext(r.Context()), application.StatsUpdateInput{
		PostID:        req.PostID,
		OperationType: req.OperationType,
		CountDelta:    req.CountDelta,
		StatsCategory: req.StatsCategory,
		MessageID:     strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil && !errors.Is(err, domain.ErrBrokerUnavailable) {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeAccepted(w, env, err)
}

func (h *Handler) getPostCounters(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(chi.URLParam(r, "post_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid post id", requestIDFromContext(r.Context()))
		return
	}
	counters, err := h.service.PostCounters(r.Context(), postID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "post counters", contracts.PostCountersResponse{
		PostID:    counters.PostID.String(),
		Likes:     counters.Likes,
		Bookmarks: counters.Bookmarks,
		Comments:  counters.Comments,
	})
}

func (h *Handler) listFailures(w http.ResponseWriter, r *http.Request) {
	filter := domain.FailureFilter{}
	if raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("event_kind"))); raw != "" {
		filter.EventKind = domain.EventKind(raw)
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("post_id")); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.PostID = &id
		}
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &t
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &t
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Limit = n
		}
	}
	rows, err := h.service.ListFailures(r.Context(), actorFromContext(r.Context()), filter)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	resp := contracts.FailureListResponse{Items: make([]contracts.FailureRecordResponse, 0, len(rows))}
	for _, row := range rows {
		resp.Items = append(resp.Items, toFailureResponse(row))
	}
	writeSuccess(w, http.StatusOK, "failures", resp)
}

func (h *Handler) replayFailure(w http.ResponseWriter, r *http.Request) {
	env, err := h.service.ReplayFailure(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "message_id"))
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "failure replayed", contracts.ReplayResponse{
		MessageID: env.MessageID,
		EventKind: env.EventKind,
		Replayed:  true,
	})
}

func (h *Handler) discardFailure(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DiscardFailure(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "message_id")); err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "failure discarded", nil)
}

func toFailureResponse(row domain.FailureRecord) contracts.FailureRecordResponse {
	var envelope any
	_ = json.Unmarshal(row.Envelope, &envelope)
	return contracts.FailureRecordResponse{
		MessageID:       row.MessageID,
		EventKind:       string(row.EventKind),
		TargetPostID:    row.TargetPostID.String(),
		FailureReason:   row.FailureReason,
		FinalRetryCount: row.FinalRetryCount,
		FailedAt:        row.FailedAt.UTC().Format(time.RFC3339),
		Envelope:        envelope,
	}
}
