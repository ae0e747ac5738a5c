package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-scheduler/internal/application"
)

type recurrenceManager interface {
	BookRecurring(ctx context.Context, in application.RecurrenceInput) (application.RecurrenceGroup, []application.Slot, error)
	CancelRecurrence(ctx context.Context, groupID string) (int, error)
	Group(ctx context.Context, groupID string) (application.RecurrenceGroup, error)
	Groups(ctx context.Context) []application.RecurrenceGroup
}

type RecurrenceHandler struct {
	service   recurrenceManager
	responder responder
	logger    *slog.Logger
}

func NewRecurrenceHandler(service recurrenceManager, logger *slog.Logger) *RecurrenceHandler {
	base := defaultLogger(logger)
	return &RecurrenceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RecurrenceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "RecurrenceHandler", operation, attrs...)
}

// Create books every occurrence of a weekly recurrence or none of them.
// When no date in the range falls on the weekday the response carries no
// group and an empty slot list.
func (h *RecurrenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req recurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "room", in.RoomName, "weekday", in.Weekday.String())
	group, booked, err := h.service.BookRecurring(r.Context(), in)
	if err != nil {
		logger.ErrorContext(r.Context(), "recurrence booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := recurrenceResponse{Slots: toSlotDTOs(booked)}
	if group.ID != "" {
		dto := toGroupDTO(group)
		resp.Group = &dto
	}
	logger.InfoContext(r.Context(), "recurrence booked", "group_id", group.ID, "slot_count", len(booked))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resp)
}

func (h *RecurrenceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groups := h.service.Groups(r.Context())
	out := make([]groupDTO, 0, len(groups))
	for _, group := range groups {
		out = append(out, toGroupDTO(group))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listGroupsResponse{Groups: out})
}

func (h *RecurrenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := GroupIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGroupID)
		return
	}

	group, err := h.service.Group(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, groupResponse{Group: toGroupDTO(group)})
}

// Cancel removes every slot still belonging to the group.
func (h *RecurrenceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := GroupIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGroupID)
		return
	}

	logger := h.log(r.Context(), "Cancel", "group_id", id)
	removed, err := h.service.CancelRecurrence(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "recurrence cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "recurrence cancelled", "removed_slots", removed)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, removedResponse{RemovedSlots: removed})
}

type recurrenceResponse struct {
	Group *groupDTO `json:"group"`
	Slots []slotDTO `json:"slots"`
}

type groupResponse struct {
	Group groupDTO `json:"group"`
}

type listGroupsResponse struct {
	Groups []groupDTO `json:"groups"`
}
