package config

import (
	"time"

	"github.com/techstore/storefront/database"
)

type Config struct {
	Web      Web
	DB       database.Config
	Cors     Cors
	Session  Session
	Email    Email
	Oauth    Oauth
	Rate     Rate
	Checkout Checkout
	Debug    bool `conf:"default:false"`
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:4000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

type Email struct {
	Host         string        `conf:"default:localhost"`
	Port         int           `conf:"default:25"`
	Address      string        `conf:"default:noreply@techstore.test"`
	Password     string        `conf:"mask"`
	RecoveryURL  string        `conf:"default:http://localhost:3000/reset-password"`
	TokenTimeout time.Duration `conf:"default:45m"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           Provider
}

type Provider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:4000/auth/oauth-callback/google"`
}

type Rate struct {
	Burst         int     `conf:"default:10"`
	ExpiryMinutes int     `conf:"default:60"`
	RPS           float64 `conf:"default:1"`
}

type Checkout struct {
	// IdempotencyWindow bounds how far back a checkout key is matched
	// before a resubmission is treated as a brand new order.
	IdempotencyWindow time.Duration `conf:"default:24h"`
}
