package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/intake-api/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(config.MailerConfig{
		BaseURL:     server.URL,
		APIKey:      "test-key",
		SenderName:  "Pixelforge Studio",
		SenderEmail: "hello@pixelforge.studio",
		Timeout:     2 * time.Second,
	}, nil)
	return client, server
}

func TestSendStatusUpdate(t *testing.T) {
	var received message
	var authHeader string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/messages", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	})

	err := client.SendStatusUpdate(context.Background(), "asha@example.com", "Asha", "SR-1-ABCDEF", "completed", "Final files attached soon")
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", authHeader)
	require.Len(t, received.To, 1)
	assert.Equal(t, "asha@example.com", received.To[0].Email)
	assert.Equal(t, "Your request SR-1-ABCDEF is completed", received.Subject)
	assert.Contains(t, received.Text, "Hi Asha")
	assert.Contains(t, received.Text, "SR-1-ABCDEF")
	assert.Contains(t, received.Text, "Note from our team: Final files attached soon")
}

func TestSendStatusUpdateUnknownStatusFallsBack(t *testing.T) {
	var received message
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	})

	err := client.SendStatusUpdate(context.Background(), "asha@example.com", "Asha", "SR-1-ABCDEF", "mystery", "")
	require.NoError(t, err)
	assert.Equal(t, "Update on your request SR-1-ABCDEF", received.Subject)
}

func TestSendCustom(t *testing.T) {
	var received message
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	})

	err := client.SendCustom(context.Background(), "Asha", "asha@example.com", "Quick question", "Could you confirm the colors?")
	require.NoError(t, err)
	assert.Equal(t, "Quick question", received.Subject)
	assert.Equal(t, "Could you confirm the colors?", received.Text)
}

func TestSendProviderError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	err := client.SendCustom(context.Background(), "Asha", "asha@example.com", "Subject", "Body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestSendRespectsContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := client.SendCustom(ctx, "Asha", "asha@example.com", "Subject", "Body")
	require.Error(t, err)
}
