package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturn72/efaudit/internal/capture"
	"github.com/saturn72/efaudit/internal/catalog"
	"github.com/saturn72/efaudit/internal/publish"
	"github.com/saturn72/efaudit/internal/tracking"
)

var testSigningKey = []byte("test-signing-key")

func newTestServer(t *testing.T) (*httptest.Server, *publish.Recorder) {
	t.Helper()
	registry := capture.NewRegistry()
	catalog.RegisterTypes(registry)

	recorder := publish.NewRecorder()
	logger := slog.New(slog.DiscardHandler)
	publisher := publish.New(logger, recorder)
	agg := capture.NewAggregator("http-test", registry, publisher, capture.WithLogger(logger))
	cat := catalog.New(tracking.NewDB(), agg)

	handler := NewHandler(logger, cat, recorder, testSigningKey)
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)
	return srv, recorder
}

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	signed, err := token.SignedString(testSigningKey)
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, method, url string, body any, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandler_CreateProductRecordsAudit(t *testing.T) {
	srv, recorder := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/products",
		map[string]any{"name": "anvil", "price": 9.99},
		signedToken(t, "user-42"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var product catalog.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&product))
	assert.NotZero(t, product.ID)

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "user-42", messages[0].SubjectID)
	assert.NotEmpty(t, messages[0].TraceID, "request id should back the trace id")
	require.Len(t, messages[0].Trail, 1)
	assert.Equal(t, capture.StateAdded, messages[0].Trail[0].State)
}

func TestHandler_UnauthenticatedRequestStillAudited(t *testing.T) {
	srv, recorder := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/products",
		map[string]any{"name": "anvil", "price": 9.99}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	assert.Empty(t, messages[0].SubjectID)
}

func TestHandler_AuditEndpointListsMessages(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/products",
		map[string]any{"name": "anvil", "price": 9.99}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/audit", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var messages []publish.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "http-test", messages[0].Source)
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	srv, recorder := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/products",
		map[string]any{"name": "anvil", "price": 9.99}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var product catalog.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&product))
	recorder.Clear()

	url := srv.URL + "/products/" + strconv.FormatInt(product.ID, 10)
	resp = doJSON(t, http.MethodPut, url, map[string]any{"name": "anvil", "price": 19.99}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, url, nil, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	messages := recorder.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, capture.StateModified, messages[0].Trail[0].State)
	assert.Equal(t, capture.StateDeleted, messages[1].Trail[0].State)
}

func TestHandler_UnknownProductIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/products/404", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
