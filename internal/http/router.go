package http

import (
	"net/http"
	"net/url"
	"strings"
)

type RouterConfig struct {
	Rooms       *RoomHandler
	Slots       *SlotHandler
	Recurrences *RecurrenceHandler
	Exports     *ExportHandler
	// ExportMiddleware wraps only the export endpoints, typically Cache.
	ExportMiddleware []func(http.Handler) http.Handler
	Middleware       []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Rooms != nil {
		mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rooms.List(w, r)
			case http.MethodPost:
				cfg.Rooms.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
			name, ok := pathParam(r, "/rooms/")
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithRoomName(r.Context(), name))
			switch r.Method {
			case http.MethodGet:
				cfg.Rooms.Get(w, r)
			case http.MethodPut:
				cfg.Rooms.Update(w, r)
			case http.MethodDelete:
				cfg.Rooms.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Slots != nil {
		mux.HandleFunc("/slots", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Slots.Search(w, r)
			case http.MethodPost:
				cfg.Slots.Book(w, r)
			case http.MethodDelete:
				cfg.Slots.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
			}
		})
		mux.HandleFunc("/slots/move", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Slots.Move(w, r)
		})
		mux.HandleFunc("/schedule", getOnly(cfg.Slots.Schedule))
		mux.HandleFunc("/availability", getOnly(cfg.Slots.Availability))
		mux.HandleFunc("/free-slots", getOnly(cfg.Slots.FreeSlots))
	}

	if cfg.Recurrences != nil {
		mux.HandleFunc("/recurrences", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Recurrences.List(w, r)
			case http.MethodPost:
				cfg.Recurrences.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/recurrences/", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathParam(r, "/recurrences/")
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithGroupID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Recurrences.Get(w, r)
			case http.MethodDelete:
				cfg.Recurrences.Cancel(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
	}

	if cfg.Exports != nil {
		mux.Handle("/export/slots", chain(getOnly(cfg.Exports.Slots), cfg.ExportMiddleware))
		mux.Handle("/export/rooms", chain(getOnly(cfg.Exports.Rooms), cfg.ExportMiddleware))
	}

	return chain(mux, cfg.Middleware)
}

func chain(handler http.Handler, middleware []func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		if middleware[i] != nil {
			handler = middleware[i](handler)
		}
	}
	return handler
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h(w, r)
	}
}

// pathParam returns the single unescaped segment following prefix.
func pathParam(r *http.Request, prefix string) (string, bool) {
	raw := strings.TrimPrefix(r.URL.EscapedPath(), prefix)
	if raw == "" || strings.Contains(raw, "/") {
		return "", false
	}
	value, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
