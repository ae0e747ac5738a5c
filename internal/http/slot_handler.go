package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/calendar"
)

type slotManager interface {
	Book(ctx context.Context, in application.SlotInput) (application.Slot, error)
	DeleteSlot(ctx context.Context, in application.SlotInput) error
	MoveSlot(ctx context.Context, from, to application.SlotInput) (application.Slot, error)
	Availability(ctx context.Context, in application.SlotInput) ([]application.Slot, error)
	Search(ctx context.Context, criteria application.SearchCriteria, order application.SortOrder) []application.Slot
	Schedule(ctx context.Context, from, to calendar.Date) ([]application.Slot, error)
	WholeSchedule(ctx context.Context) []application.Slot
	FreeSlots(ctx context.Context, q application.FreeSlotQuery) ([]application.FreeSlot, error)
}

// SlotHandler serves single bookings and schedule queries.
type SlotHandler struct {
	service   slotManager
	responder responder
	logger    *slog.Logger
}

func NewSlotHandler(service slotManager, logger *slog.Logger) *SlotHandler {
	base := defaultLogger(logger)
	return &SlotHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SlotHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "SlotHandler", operation, attrs...)
}

func (h *SlotHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	slot, err := h.service.Book(r.Context(), in)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Book", "room", slot.Room.Name, "date", slot.Date).InfoContext(r.Context(), "slot booked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, slotResponse{Slot: toSlotDTO(slot)})
}

func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if err := h.service.DeleteSlot(r.Context(), in); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SlotHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	from, err := req.From.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	to, err := req.To.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	slot, err := h.service.MoveSlot(r.Context(), from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotResponse{Slot: toSlotDTO(slot)})
}

func (h *SlotHandler) Availability(w http.ResponseWriter, r *http.Request) {
	in, err := slotRequestFromQuery(r.URL.Query()).toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	conflicts, err := h.service.Availability(r.Context(), in)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		Available: len(conflicts) == 0,
		Conflicts: toSlotDTOs(conflicts),
	})
}

// Search lists slots matching the query parameters from, to, room,
// min_capacity, computers, projector and attr.<name>, ordered by order.
func (h *SlotHandler) Search(w http.ResponseWriter, r *http.Request) {
	parser := newQueryParser(r.URL.Query())
	criteria := parser.criteria()
	order := parser.order()
	if err := parser.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	slots := h.service.Search(r.Context(), criteria, order)
	h.log(r.Context(), "Search", "criteria", criteria.Len()).InfoContext(r.Context(), "slots searched", "result_count", len(slots))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSlotsResponse{Slots: toSlotDTOs(slots)})
}

// Schedule lists slots in [from, to). Without both bounds the whole schedule
// is returned.
func (h *SlotHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	parser := newQueryParser(r.URL.Query())
	from, hasFrom := parser.date("from")
	to, hasTo := parser.date("to")
	if err := parser.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if !hasFrom && !hasTo {
		h.responder.writeJSON(r.Context(), w, http.StatusOK, listSlotsResponse{Slots: toSlotDTOs(h.service.WholeSchedule(r.Context()))})
		return
	}
	if !hasFrom || !hasTo {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
			FieldErrors: map[string]string{"range": "from and to must be given together"},
		})
		return
	}

	slots, err := h.service.Schedule(r.Context(), from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSlotsResponse{Slots: toSlotDTOs(slots)})
}

// FreeSlots lists unbooked windows between from and until inclusive.
func (h *SlotHandler) FreeSlots(w http.ResponseWriter, r *http.Request) {
	parser := newQueryParser(r.URL.Query())
	q := application.FreeSlotQuery{Rooms: parser.roomQuery()}
	q.From, _ = parser.date("from")
	q.Until, _ = parser.date("until")
	if minutes, ok := parser.integer("min_duration"); ok {
		q.MinDuration = minutesDuration(minutes)
	}
	if err := parser.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	free, err := h.service.FreeSlots(r.Context(), q)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, freeSlotsResponse{FreeSlots: toFreeSlotDTOs(free)})
}

type moveRequest struct {
	From slotRequest `json:"from"`
	To   slotRequest `json:"to"`
}

type slotResponse struct {
	Slot slotDTO `json:"slot"`
}

type listSlotsResponse struct {
	Slots []slotDTO `json:"slots"`
}

type availabilityResponse struct {
	Available bool      `json:"available"`
	Conflicts []slotDTO `json:"conflicts"`
}

type freeSlotsResponse struct {
	FreeSlots []freeSlotDTO `json:"free_slots"`
}
