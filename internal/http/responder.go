package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/exchange"
	"github.com/example/room-scheduler/internal/logging"
)

var (
	errBadRequestBody = errors.New("無効なリクエスト形式です。")
	errInvalidRoom    = errors.New("無効な会議室名です。")
	errInvalidGroupID = errors.New("無効な繰り返し予約 ID です。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps manager and exchange errors to status codes:
// not found 404, duplicate name 409, slot conflict 409, invalid input 422.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		conflict  *application.ConflictError
		vErr      *application.ValidationError
		importErr *exchange.ImportError
	)
	switch {
	case errors.As(err, &conflict):
		existing := toSlotDTO(conflict.Existing)
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_CONFLICT",
			Message:   "指定された時間帯は既に予約されています。",
			Conflict:  &existing,
		})
	case errors.Is(err, application.ErrSlotConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_CONFLICT",
			Message:   "指定された時間帯は既に予約されています。",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "同じ名前の会議室が既に登録されています。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "入力内容に誤りがあります。",
			Errors:  localizeValidationErrors(vErr),
		})
	case errors.As(err, &importErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Message: importErr.Error()})
	case errors.Is(err, exchange.ErrUnknownFormat):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Message: "未対応の出力形式です。"})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusTooManyRequests:
		return "リクエストが多すぎます。しばらくしてから再度お試しください。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "name is required":
		return "会議室名は必須です。"
	case "room is required":
		return "会議室を指定してください。"
	case "date is required":
		return "日付は必須です。"
	case "start is required":
		return "開始時刻は必須です。"
	case "end time or duration is required":
		return "終了時刻または所要時間を指定してください。"
	case "end must be after start":
		return "終了時刻は開始時刻より後である必要があります。"
	case "slot must end by 24:00":
		return "終了時刻は 24:00 までに指定してください。"
	case "duration contradicts end time":
		return "所要時間が終了時刻と一致しません。"
	case "weekday is required":
		return "曜日は必須です。"
	case "period must be at least one week":
		return "繰り返し間隔は 1 週以上で指定してください。"
	case "until must not be before from":
		return "終了日は開始日以降で指定してください。"
	case "rooms must be imported before slots":
		return "予約を取り込む前に会議室を登録してください。"
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflict  *slotDTO          `json:"conflict,omitempty"`
}
