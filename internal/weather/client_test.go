package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodPayload = `{
	"current_condition": [
		{
			"temp_C": "22",
			"temp_F": "72",
			"humidity": "65",
			"weatherDesc": [{"value": "Partly cloudy"}]
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(
		WithBaseURL(server.URL),
		WithLocation("Los+Angeles,CA"),
		WithHTTPClient(server.Client()),
		WithRateLimit(100),
	)
}

func TestClient_Current(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(goodPayload))
	})

	conditions, err := client.Current(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/Los+Angeles,CA", gotPath)
	assert.Equal(t, "format=j1", gotQuery)

	assert.Equal(t, "22", conditions.TempC)
	assert.Equal(t, "72", conditions.TempF)
	assert.Equal(t, "65", conditions.Humidity)
	assert.Equal(t, "Partly cloudy", conditions.Description)
}

func TestClient_Current_MalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	_, err := client.Current(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadPayload))
}

func TestClient_Current_EmptyConditions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current_condition": []}`))
	})

	_, err := client.Current(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadPayload))
}

func TestClient_Current_MissingDescription(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current_condition": [{"temp_C": "22", "temp_F": "72", "humidity": "65", "weatherDesc": []}]}`))
	})

	_, err := client.Current(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadPayload))
}

func TestClient_Current_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := client.Current(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.False(t, errors.Is(err, ErrBadPayload))
}

func TestClient_Current_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(goodPayload))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Current(ctx)
	require.Error(t, err)
}

func TestClient_Current_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(goodPayload))
	}))
	t.Cleanup(server.Close)

	client := NewClient(
		WithBaseURL(server.URL),
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
		WithRateLimit(100),
	)

	_, err := client.Current(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBadPayload))
}

func TestClient_Defaults(t *testing.T) {
	client := NewClient()
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, DefaultLocation, client.location)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
}
