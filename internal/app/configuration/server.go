package configuration

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/dynamock-io/dynamock/internal/app/dynamock"
)

// StartServer builds the echo application for the given configuration and
// starts serving it in the background. The returned server is used by the
// caller to shut the process down.
func StartServer(config *dynamock.Config) *http.Server {
	e := echo.New()
	e.HideBanner = true

	dynamock.SetupRoutes(e, config)

	s := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: e,
	}

	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err)
		}
	}()

	return s
}
