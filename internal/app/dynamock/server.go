package dynamock

import (
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port            int      `env:"PORT,default=8080"`             // Port to listen on
	DataFile        string   `env:"DATA_FILE,default=./data.json"` // Snapshot file for registered mocks
	RateLimitWindow int      `env:"RATE_LIMIT_WINDOW,default=10"`  // Cooldown per client IP, in seconds
	RateLimitExempt []string `env:"RATE_LIMIT_EXEMPT"`             // Comma-separated paths exempt from rate limiting
}

// SetupRoutes wires the mock server onto the given echo instance: the route
// table seeded from the snapshot file, the rate limiting middleware, the
// control and introspection endpoints and the catch-all mock dispatch. The
// returned limiter owns a background pruning goroutine; Stop it when tearing
// the server down.
func SetupRoutes(e *echo.Echo, config *Config) *Limiter {
	snapshot := NewSnapshot(config.DataFile)
	table := NewTable()
	mocks := snapshot.Load()
	for _, m := range mocks {
		table.Put(m)
	}
	if len(mocks) > 0 {
		log.Infof("loaded %d mock(s) from %s", len(mocks), config.DataFile)
	}

	limiter := NewLimiter(config.RateLimitWindow, config.RateLimitExempt)
	e.Use(limiter.Middleware())

	api := &api{
		table:    table,
		snapshot: snapshot,
	}

	e.POST("/register", api.registerHandler)
	e.GET("/__routes", api.routesHandler)
	e.GET("/health", api.healthHandler)
	e.Any("/*", api.mockHandler)

	return limiter
}
