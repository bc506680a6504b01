package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/techstore/storefront/api/background"
	"github.com/techstore/storefront/api/middleware"
	"github.com/techstore/storefront/api/web"
	"github.com/techstore/storefront/core/auth"
	"github.com/techstore/storefront/core/order"
	"github.com/techstore/storefront/core/product"
	"github.com/techstore/storefront/core/review"
	"github.com/techstore/storefront/core/token"
	"github.com/techstore/storefront/core/user"
	"github.com/techstore/storefront/rate"
)

type APIConfig struct {
	CorsOrigin        string
	Log               logrus.FieldLogger
	DB                *sqlx.DB
	Session           *scs.SessionManager
	Mailer            token.Mailer
	TokenTimeout      time.Duration
	Background        *background.Background
	Providers         map[string]auth.Provider
	LoginRedirectURL  string
	LoginLimiter      *rate.Limiter
	IdempotencyWindow time.Duration
	Metrics           *middleware.Metrics
	Debug             bool
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())

	// Collect wraps Errors so its writer observes the status Errors
	// renders for failed handlers.
	if cfg.Metrics != nil {
		a.mw = append(a.mw, middleware.Collect(cfg.Metrics))
	}
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)

	var limited web.Middleware
	if cfg.LoginLimiter != nil {
		limited = middleware.RateLimit(cfg.LoginLimiter)
	}

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodPost, "/tokens/recover", token.HandleRecoveryToken(cfg.DB, cfg.Mailer, cfg.TokenTimeout, cfg.Background), limited)
	a.Handle(http.MethodPost, "/tokens/reset", token.HandleRecovery(cfg.DB), limited)

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)

	a.Handle(http.MethodGet, "/products/search", product.HandleSearch(cfg.DB))
	a.Handle(http.MethodGet, "/products/{id}/related", product.HandleListRelated(cfg.DB))
	a.Handle(http.MethodGet, "/products/{id}/reviews", review.HandleListByProduct(cfg.DB))
	a.Handle(http.MethodPost, "/products/{id}/reviews", review.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/products", product.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/products", product.HandleCreate(cfg.DB), admin)

	a.Handle(http.MethodPost, "/cart/sync", order.HandleCartSync(cfg.DB, cfg.IdempotencyWindow, cfg.Debug))

	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.DB), authen)

	a.Router.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
