package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	inFlightTTL       = 30 * time.Second
)

// ResponseStore keeps replayable responses. Get returns nil, nil on a miss.
type ResponseStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// RequestLocker guards a key while its first request is still being served. Release only
// removes the lock while it is still held under the token Acquire returned.
type RequestLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a POST that carries an
// Idempotency-Key already seen for the same actor and route. With locks set, a repeat that
// arrives while the first request is still running gets 409 instead of running twice.
func IdempotencyMiddleware(store ResponseStore, locks RequestLocker, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyKey(ActorFrom(c).ID, c.Request.URL.Path, key)

		cached, err := getCachedResponse(ctx, store, cacheKey)
		if err != nil {
			// Store error - proceed without idempotency.
			logger.Warn("idempotency lookup failed", zap.String("key", cacheKey), zap.Error(err))
			c.Next()
			return
		}

		if cached != nil {
			replay(c, cached)
			return
		}

		if locks != nil {
			token, acquired, err := locks.Acquire(ctx, cacheKey, inFlightTTL)
			switch {
			case err != nil:
				logger.Warn("idempotency lock failed", zap.String("key", cacheKey), zap.Error(err))
			case !acquired:
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"error": "a request with this idempotency key is in progress",
					"kind":  "AlreadyExists",
				})
				return
			default:
				defer func() {
					if err := locks.Release(context.WithoutCancel(ctx), cacheKey, token); err != nil {
						logger.Warn("idempotency unlock failed", zap.String("key", cacheKey), zap.Error(err))
					}
				}()

				// The first request may have stored its response between the lookup and the lock.
				cached, err := getCachedResponse(ctx, store, cacheKey)
				if err != nil {
					logger.Warn("idempotency lookup failed", zap.String("key", cacheKey), zap.Error(err))
				} else if cached != nil {
					replay(c, cached)
					return
				}
			}
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// Server errors are retryable and never cached.
		if status := c.Writer.Status(); status >= 200 && status < 500 {
			response := cachedResponse{
				StatusCode: status,
				Body:       w.body.Bytes(),
				Headers:    extractResponseHeaders(c),
			}
			if err := setCachedResponse(ctx, store, cacheKey, &response, idempotencyTTL); err != nil {
				logger.Warn("idempotency store failed", zap.String("key", cacheKey), zap.Error(err))
			}
		}
	}
}

func replay(c *gin.Context, cached *cachedResponse) {
	for k, v := range cached.Headers {
		for _, val := range v {
			c.Header(k, val)
		}
	}
	c.Header("Idempotent-Replayed", "true")
	c.Data(cached.StatusCode, "application/json", cached.Body)
	c.Abort()
}

func idempotencyKey(actorID, path, key string) string {
	return "idempotency:" + actorID + ":" + path + ":" + key
}

func getCachedResponse(ctx context.Context, store ResponseStore, key string) (*cachedResponse, error) {
	data, err := store.Get(ctx, key)
	if err != nil || data == nil {
		return nil, err
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

func setCachedResponse(ctx context.Context, store ResponseStore, key string, response *cachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, data, ttl)
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
