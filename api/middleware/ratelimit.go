package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/techstore/storefront/api/web"
	"github.com/techstore/storefront/api/weberr"
	"github.com/techstore/storefront/rate"
)

// RateLimit throttles a handler per remote host. Meant for the auth
// and recovery endpoints, which are the ones worth brute-forcing.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !lim.Check(host) {
				err := errors.New("rate limit exceeded")
				return weberr.NewError(err, "too many requests", http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
