package dynamock

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/dynamock-io/dynamock/internal/app/httpresponse"
)

type api struct {
	table    *Table
	snapshot *Snapshot

	// Serializes the put-then-persist sequence so two concurrent
	// registrations cannot interleave between the table mutation and the
	// snapshot write.
	mu sync.Mutex
}

type registerResponse struct {
	Message string `json:"message"`
	Method  string `json:"method"`
	Path    string `json:"path"`
}

func (a *api) registerHandler(c echo.Context) error {
	var record mockRecord
	if err := c.Bind(&record); err != nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Errorf("unable to parse registration. %s", err.Error()))
	}

	// A JSON null response is present; only a missing response key is
	// rejected.
	if record.Path == "" || record.Response == nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Error("path and response required"))
	}

	m := record.toMock()
	log.Infof("registering %s %s -> %d", m.Method, m.Path, m.Status)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.table.Put(m)
	if err := a.snapshot.Save(a.table.All()); err != nil {
		log.WithError(err).Error("failed to persist route")
		return c.JSON(http.StatusInternalServerError, httpresponse.Error("Failed to persist route"))
	}

	return c.JSON(http.StatusOK, registerResponse{
		Message: "Registered",
		Method:  m.Method,
		Path:    m.Path,
	})
}

func (a *api) routesHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, a.table.Routes())
}

func (a *api) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// mockHandler serves every request no other route claims: an exact lookup on
// (method, normalized path), rendering the stored definition on a hit.
func (a *api) mockHandler(c echo.Context) error {
	req := c.Request()
	m, ok := a.table.Get(req.Method, req.URL.Path)
	if !ok {
		return c.JSON(http.StatusNotFound, httpresponse.Error("Not found"))
	}

	header := c.Response().Header()
	for name, value := range m.Headers {
		header.Set(name, value)
	}

	if responseIsStructured(m.Response) {
		return c.JSONBlob(m.Status, m.Response)
	}
	return c.String(m.Status, responseText(m.Response))
}
