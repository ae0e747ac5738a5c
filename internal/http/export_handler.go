package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/exchange"
)

type exportManager interface {
	Export(ctx context.Context, enc application.SlotEncoder, criteria application.SearchCriteria, order application.SortOrder, fields []string) ([]byte, error)
	ExportRooms(ctx context.Context, enc application.RoomEncoder, query application.RoomQuery, fields []string) ([]byte, error)
}

// ExportHandler renders the schedule or the room list as CSV or JSON
// downloads. The format parameter defaults to csv.
type ExportHandler struct {
	service   exportManager
	responder responder
	logger    *slog.Logger
}

func NewExportHandler(service exportManager, logger *slog.Logger) *ExportHandler {
	base := defaultLogger(logger)
	return &ExportHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ExportHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ExportHandler", operation, attrs...)
}

func (h *ExportHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	format, codec, err := codecFor(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	parser := newQueryParser(r.URL.Query())
	criteria := parser.criteria()
	order := parser.order()
	fields := parser.fields()
	if err := parser.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	data, err := h.service.Export(r.Context(), codec, criteria, order, fields)
	if err != nil {
		h.log(r.Context(), "Slots", "format", format).ErrorContext(r.Context(), "slot export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeDownload(r.Context(), w, format, "schedule", data)
}

func (h *ExportHandler) Rooms(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	format, codec, err := codecFor(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	parser := newQueryParser(r.URL.Query())
	query := parser.roomQuery()
	fields := parser.fields()
	if err := parser.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	data, err := h.service.ExportRooms(r.Context(), codec, query, fields)
	if err != nil {
		h.log(r.Context(), "Rooms", "format", format).ErrorContext(r.Context(), "room export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeDownload(r.Context(), w, format, "rooms", data)
}

func (h *ExportHandler) writeDownload(ctx context.Context, w http.ResponseWriter, format, name string, data []byte) {
	contentType := "text/csv; charset=utf-8"
	if format == "json" {
		contentType = "application/json; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+"."+format+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log(ctx, "writeDownload").ErrorContext(ctx, "failed to write export", "error", err)
	}
}

func codecFor(r *http.Request) (string, exchange.Codec, error) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	codec, err := exchange.ParseFormat(format)
	if err != nil {
		return "", nil, err
	}
	return format, codec, nil
}
