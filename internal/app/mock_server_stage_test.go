package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dynamock-io/dynamock/internal/app/configuration"
	intdynamock "github.com/dynamock-io/dynamock/internal/app/dynamock"
	"github.com/dynamock-io/dynamock/pkg/dynamock"
)

type MockServerStage struct {
	t      *testing.T
	assert *assert.Assertions

	dataFile  string
	config    intdynamock.Config
	server    *http.Server
	serverURL string
	client    *dynamock.Client

	registerResult *dynamock.RegisterResult
	registerErr    error
	lastResponse   *http.Response
	lastBody       []byte
}

func NewMockServerStage(t *testing.T) (*MockServerStage, *MockServerStage, *MockServerStage) {
	s := &MockServerStage{
		t:        t,
		assert:   assert.New(t),
		dataFile: filepath.Join(t.TempDir(), "data.json"),
	}
	return s, s, s
}

func getFreePort(t *testing.T) int {
	t.Helper()

	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func (s *MockServerStage) a_running_server() *MockServerStage {
	return s.a_running_server_with_rate_limit(0, nil)
}

func (s *MockServerStage) a_running_server_with_rate_limit(windowSeconds int, exempt []string) *MockServerStage {
	port := getFreePort(s.t)
	s.config = intdynamock.Config{
		Port:            port,
		DataFile:        s.dataFile,
		RateLimitWindow: windowSeconds,
		RateLimitExempt: exempt,
	}

	s.server = configuration.StartServer(&s.config)
	s.t.Cleanup(func() { s.server.Close() })

	s.serverURL = fmt.Sprintf("http://localhost:%d", port)
	s.client = dynamock.New(s.serverURL)
	s.assert.NoError(s.client.WaitReady(5 * time.Second))
	return s
}

func (s *MockServerStage) the_server_is_restarted() *MockServerStage {
	s.assert.NoError(s.server.Close())
	return s.a_running_server()
}

func (s *MockServerStage) a_registered_mock(mock dynamock.Mock) *MockServerStage {
	s.registerResult, s.registerErr = s.client.Register(mock)
	return s
}

func (s *MockServerStage) a_request_is_sent(method, path string) *MockServerStage {
	req, err := http.NewRequest(method, s.serverURL+path, nil)
	s.assert.NoError(err)

	res, err := http.DefaultClient.Do(req)
	s.assert.NoError(err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	s.assert.NoError(err)

	s.lastResponse = res
	s.lastBody = body
	return s
}

func (s *MockServerStage) registration_was_acknowledged(method, path string) *MockServerStage {
	s.assert.NoError(s.registerErr)
	if s.assert.NotNil(s.registerResult) {
		s.assert.Equal("Registered", s.registerResult.Message)
		s.assert.Equal(method, s.registerResult.Method)
		s.assert.Equal(path, s.registerResult.Path)
	}
	return s
}

func (s *MockServerStage) the_response_code_is(code int) *MockServerStage {
	s.assert.Equal(code, s.lastResponse.StatusCode)
	return s
}

func (s *MockServerStage) the_response_json_is(expected string) *MockServerStage {
	s.assert.JSONEq(expected, string(s.lastBody))
	return s
}

func (s *MockServerStage) the_response_body_is(expected string) *MockServerStage {
	s.assert.Equal(expected, string(s.lastBody))
	return s
}

func (s *MockServerStage) the_response_header_is(name, value string) *MockServerStage {
	s.assert.Equal(value, s.lastResponse.Header.Get(name))
	return s
}

func (s *MockServerStage) the_route_listing_is(expected []dynamock.Route) *MockServerStage {
	routes, err := s.client.Routes()
	s.assert.NoError(err)
	s.assert.Equal(expected, routes)
	return s
}

func (s *MockServerStage) the_response_reports_retry_after() *MockServerStage {
	s.assert.NotEmpty(s.lastResponse.Header.Get("Retry-After"))

	var body struct {
		Error             string `json:"error"`
		RetryAfterSeconds int64  `json:"retry_after_seconds"`
	}
	s.assert.NoError(json.Unmarshal(s.lastBody, &body))
	s.assert.Equal("Too many requests", body.Error)
	s.assert.Greater(body.RetryAfterSeconds, int64(0))
	return s
}
