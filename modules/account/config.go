package account

import "time"

// Config holds the account module's HTTP-facing settings.
type Config struct {
	// AppDomain is the domain wallets are asked to sign in to. It must
	// match what the frontend presents or signatures will not verify.
	AppDomain string `env:"APP_DOMAIN" envDefault:"localhost"`

	// BaseURL is the externally reachable application root used in email
	// links, without a trailing slash.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// ChainID is the EVM chain the sign-in message names.
	ChainID int `env:"CHAIN_ID" envDefault:"1"`

	// AuthRateLimit caps unauthenticated auth attempts per client per
	// AuthRateWindow.
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`
}
