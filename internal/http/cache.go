package http

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *bodyRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// NewResponseCache creates the store used by Cache. Expired entries are
// purged every two ttl periods.
func NewResponseCache(ttl time.Duration) *cache.Cache {
	return cache.New(ttl, 2*ttl)
}

// Cache serves repeated GET requests from store. Entries are keyed by the
// request URI and the current schedule revision, so any change to rooms or
// slots makes earlier entries unreachable. A nil store disables caching.
func Cache(store *cache.Cache, ttl time.Duration, revision func() uint64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || ttl <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := r.RequestURI
			if revision != nil {
				key = strconv.FormatUint(revision(), 10) + " " + key
			}
			if v, found := store.Get(key); found {
				cached := v.(cachedResponse)
				for k, values := range cached.headers {
					w.Header()[k] = values
				}
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(cached.status)
				_, _ = w.Write(cached.body)
				return
			}

			rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= 200 && rec.status < 300 {
				store.Set(key, cachedResponse{
					status:  rec.status,
					headers: rec.Header().Clone(),
					body:    bytes.Clone(rec.body.Bytes()),
				}, ttl)
			}
		})
	}
}
