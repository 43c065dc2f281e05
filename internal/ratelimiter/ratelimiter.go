package ratelimiter

import "time"

// Limiter decides whether a client identified by key may make a request.
// When it may not, the returned duration is how long to wait.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

type Config struct {
	RequestsPerTimeFrame int           `envconfig:"RATELIMITER_REQUESTS_COUNT" default:"120"`
	TimeFrame            time.Duration `envconfig:"RATELIMITER_TIMEFRAME" default:"1m"`
	Enabled              bool          `envconfig:"RATELIMITER_ENABLED" default:"true"`
}
