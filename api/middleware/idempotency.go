package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/marketplace-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	replayedHeader         = "Idempotent-Replayed"
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	inFlightTTL            = time.Minute
)

// idempotentRoutes lists the mutating endpoints that honour Idempotency-Key.
// A trailing slash in path means prefix match.
var idempotentRoutes = []struct {
	method string
	path   string
	ttl    time.Duration
}{
	{http.MethodPost, "/api/v1/cart", defaultIdempotencyTTL},
	{http.MethodPatch, "/api/v1/orders/items/", defaultIdempotencyTTL},
	{http.MethodPost, "/api/v1/checkout/create-session", criticalIdempotencyTTL},
}

// storedResponse is the redis value under a claimed key. While the first
// request runs it only carries the body hash and InFlight.
type storedResponse struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
	InFlight    bool              `json:"in_flight,omitempty"`
}

// Idempotency replays the stored response when a request repeats its
// Idempotency-Key with the same body. Requests without the header pass through.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			ttl, ok := routeTTL(r.Method, requestPath(r))
			if !ok || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashBody(body)
			key := store.IdempotencyKey(strings.Join([]string{UserIDFromContext(ctx), r.Method, r.URL.Path}, "|"), clientKey)

			placeholder, _ := json.Marshal(storedResponse{RequestHash: hash, InFlight: true})
			claimed, err := store.SetNX(ctx, key, string(placeholder), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if !claimed {
				replay(ctx, w, store, key, hash, logg)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			// 5xx releases the claim so the same key can be retried.
			if status >= http.StatusInternalServerError {
				release(ctx, store, key, logg)
				return
			}
			saved := storedResponse{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(captured.Bytes()),
				RequestHash: hash,
			}
			if ct := ww.Header().Get("Content-Type"); ct != "" {
				saved.Headers = map[string]string{"Content-Type": ct}
			}
			raw, err := json.Marshal(saved)
			if err != nil {
				logFailure(ctx, logg, "marshal idempotency record", err)
				release(ctx, store, key, logg)
				return
			}
			// Overwrite the placeholder in place; the key is never free while
			// the record is being written.
			if err := store.Set(ctx, key, string(raw), ttl); err != nil {
				logFailure(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

func release(ctx context.Context, store pkgredis.IdempotencyStore, key string, logg *logger.Logger) {
	if err := store.Del(ctx, key); err != nil {
		logFailure(ctx, logg, "release idempotency claim", err)
	}
}

func replay(ctx context.Context, w http.ResponseWriter, store pkgredis.IdempotencyStore, key, hash string, logg *logger.Logger) {
	inProgress := pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is in progress")

	raw, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil) || (err == nil && raw == ""):
		responses.WriteError(ctx, logg, w, inProgress)
		return
	case err != nil:
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	var saved storedResponse
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if saved.RequestHash != hash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if saved.InFlight {
		responses.WriteError(ctx, logg, w, inProgress)
		return
	}

	for name, value := range saved.Headers {
		w.Header().Set(name, value)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(saved.Status)
	if body, err := base64.StdEncoding.DecodeString(saved.Body); err == nil {
		_, _ = w.Write(body)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// requestPath is matched instead of the chi route pattern, which is still
// partial while group middleware runs.
func requestPath(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	if path := strings.TrimSuffix(r.URL.Path, "/"); path != "" {
		return path
	}
	return r.URL.Path
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for _, route := range idempotentRoutes {
		if route.method != method {
			continue
		}
		if path == route.path || (strings.HasSuffix(route.path, "/") && strings.HasPrefix(path, route.path)) {
			return route.ttl, true
		}
	}
	return 0, false
}

func logFailure(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg != nil && err != nil {
		logg.Error(ctx, msg, err)
	}
}
