package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/model/auth"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
	"github.com/deadline-guardian/guardian/pkg/usecase"
	"github.com/deadline-guardian/guardian/pkg/utils/errutil"
)

const maxRequestBody = 1 << 20

var errInvalidRequest = errors.New("invalid request")

type obligationRequest struct {
	Title       string         `json:"title"`
	Category    types.Category `json:"category"`
	DeadlineAt  time.Time      `json:"deadlineAt"`
	Consequence string         `json:"consequence"`
	Severity    types.Severity `json:"severity"`
}

type obligationResponse struct {
	ID                 model.ObligationID     `json:"id"`
	Title              string                 `json:"title"`
	Category           types.Category         `json:"category"`
	DeadlineAt         time.Time              `json:"deadlineAt"`
	Consequence        string                 `json:"consequence"`
	Severity           types.Severity         `json:"severity"`
	Status             types.ObligationStatus `json:"status"`
	DisplayStatus      types.DisplayStatus    `json:"displayStatus"`
	LastNotificationAt *time.Time             `json:"lastNotificationAt,omitempty"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

type notificationResponse struct {
	ID                 model.NotificationID   `json:"id"`
	Type               types.NotificationType `json:"type"`
	DaysBeforeDeadline int                    `json:"daysBeforeDeadline"`
	SentAt             time.Time              `json:"sentAt"`
	Success            bool                   `json:"success"`
	ErrorMessage       string                 `json:"errorMessage,omitempty"`
}

type meResponse struct {
	ID     model.UserID `json:"id"`
	Email  string       `json:"email"`
	Name   string       `json:"name"`
	TeamID model.TeamID `json:"teamId,omitempty"`
}

func toObligationResponse(o *model.Obligation, now time.Time) obligationResponse {
	return obligationResponse{
		ID:                 o.ID,
		Title:              o.Title,
		Category:           o.Category,
		DeadlineAt:         o.DeadlineAt,
		Consequence:        o.Consequence,
		Severity:           o.Severity,
		Status:             o.Status,
		DisplayStatus:      o.DisplayStatus(now),
		LastNotificationAt: o.LastNotificationAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func errValue(err error, key string) any {
	ge := goerr.Unwrap(err)
	if ge == nil {
		return nil
	}
	return ge.Values()[key]
}

// handleError maps use case errors to API responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, model.ErrInvalidInput):
		msg, _ := errValue(err, model.MessageKey).(string)
		errutil.HandleHTTPWithCode(ctx, w, err, http.StatusBadRequest, "INVALID_INPUT", msg)

	case errors.Is(err, errInvalidRequest):
		errutil.HandleHTTPWithCode(ctx, w, err, http.StatusBadRequest, "INVALID_INPUT", "Invalid request")

	case errors.Is(err, usecase.ErrLimitReached):
		limit, ok := errValue(err, usecase.LimitKey).(int)
		if !ok {
			limit = usecase.DefaultFreeTierLimit
		}
		errutil.HandleHTTPWithCode(ctx, w, err, http.StatusPaymentRequired,
			usecase.LimitReachedCode, usecase.LimitReachedMessage(limit))

	case errors.Is(err, usecase.ErrObligationNotFound):
		errutil.HandleHTTPWithCode(ctx, w, err, http.StatusNotFound, "NOT_FOUND", "Obligation not found")

	case errors.Is(err, usecase.ErrUnauthenticated), errors.Is(err, usecase.ErrInvalidToken):
		errutil.HandleHTTPWithCode(ctx, w, err, http.StatusUnauthorized, "", "Unauthorized")

	default:
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
	}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		handleError(w, r, goerr.Wrap(usecase.ErrUnauthenticated, err.Error()))
		return
	}

	writeJSON(w, r, http.StatusOK, meResponse{
		ID:     user.ID,
		Email:  user.Email,
		Name:   user.Name,
		TeamID: user.TeamID,
	})
}

type obligationHandler struct {
	uc *usecase.ObligationUseCase
}

// caller returns the authenticated user and the obligation id from the path, if any
func (h *obligationHandler) caller(r *http.Request, withID bool) (*model.User, model.ObligationID, error) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		return nil, 0, goerr.Wrap(usecase.ErrUnauthenticated, err.Error())
	}
	if !withID {
		return user, 0, nil
	}

	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, 0, goerr.Wrap(errInvalidRequest, "invalid obligation id", goerr.V("id", raw))
	}
	return user, model.ObligationID(id), nil
}

func decodeInput(w http.ResponseWriter, r *http.Request) (*model.ObligationInput, error) {
	var req obligationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		return nil, goerr.Wrap(errInvalidRequest, "failed to decode obligation request", goerr.V("reason", err.Error()))
	}

	return &model.ObligationInput{
		Title:       req.Title,
		Category:    req.Category,
		DeadlineAt:  req.DeadlineAt,
		Consequence: req.Consequence,
		Severity:    req.Severity,
	}, nil
}

func (h *obligationHandler) list(w http.ResponseWriter, r *http.Request) {
	user, _, err := h.caller(r, false)
	if err != nil {
		handleError(w, r, err)
		return
	}

	obligations, err := h.uc.List(r.Context(), user)
	if err != nil {
		handleError(w, r, err)
		return
	}

	now := h.uc.Now()
	resp := make([]obligationResponse, len(obligations))
	for i, o := range obligations {
		resp[i] = toObligationResponse(o, now)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"obligations": resp})
}

func (h *obligationHandler) create(w http.ResponseWriter, r *http.Request) {
	user, _, err := h.caller(r, false)
	if err != nil {
		handleError(w, r, err)
		return
	}

	input, err := decodeInput(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	created, err := h.uc.Create(r.Context(), user, input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toObligationResponse(created, h.uc.Now()))
}

func (h *obligationHandler) get(w http.ResponseWriter, r *http.Request) {
	user, id, err := h.caller(r, true)
	if err != nil {
		handleError(w, r, err)
		return
	}

	obligation, err := h.uc.Get(r.Context(), user, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toObligationResponse(obligation, h.uc.Now()))
}

func (h *obligationHandler) update(w http.ResponseWriter, r *http.Request) {
	user, id, err := h.caller(r, true)
	if err != nil {
		handleError(w, r, err)
		return
	}

	input, err := decodeInput(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	updated, err := h.uc.Update(r.Context(), user, id, input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toObligationResponse(updated, h.uc.Now()))
}

func (h *obligationHandler) markHandled(w http.ResponseWriter, r *http.Request) {
	user, id, err := h.caller(r, true)
	if err != nil {
		handleError(w, r, err)
		return
	}

	updated, err := h.uc.MarkHandled(r.Context(), user, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toObligationResponse(updated, h.uc.Now()))
}

func (h *obligationHandler) delete(w http.ResponseWriter, r *http.Request) {
	user, id, err := h.caller(r, true)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := h.uc.Delete(r.Context(), user, id); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (h *obligationHandler) history(w http.ResponseWriter, r *http.Request) {
	user, id, err := h.caller(r, true)
	if err != nil {
		handleError(w, r, err)
		return
	}

	records, err := h.uc.History(r.Context(), user, id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := make([]notificationResponse, len(records))
	for i, rec := range records {
		resp[i] = notificationResponse{
			ID:                 rec.ID,
			Type:               rec.Type,
			DaysBeforeDeadline: rec.DaysBeforeDeadline.Days(),
			SentAt:             rec.SentAt,
			Success:            rec.Success,
			ErrorMessage:       rec.ErrorMessage,
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"notifications": resp})
}
