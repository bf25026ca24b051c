package middleware

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/httpapi"
)

const storePrefix = "pharmacy_limiter"

func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: storePrefix})
}

// NewRedisStore shares counters between replicas.
func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	store, err := sredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{Prefix: storePrefix})
	if err != nil {
		return nil, errors.Wrap(err, "create redis limiter store")
	}
	return store, nil
}

// RateLimit limits requests per client IP. name keeps counters of separate
// limits apart in a shared store.
func RateLimit(store limiter.Store, name, formatted string) (mux.MiddlewareFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, errors.Wrapf(err, "parse rate %q", formatted)
	}
	mw := stdlib.NewMiddleware(
		limiter.New(store, rate),
		stdlib.WithKeyGetter(func(r *http.Request) string {
			ip, ok := composables.UseIP(r.Context())
			if !ok {
				ip = r.RemoteAddr
			}
			return name + ":" + ip
		}),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			_ = httpapi.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			composables.UseLogger(r.Context()).WithError(err).Error("rate limiter failed")
			_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		}),
	)
	return mw.Handler, nil
}
