package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPDispatcherTrigger(t *testing.T) {
	var gotSignature string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "secret", time.Second, zap.NewNop())
	err := d.Trigger(context.Background(), Event{
		Event:      EventDocumentCompleted,
		DocumentID: "doc-1",
		UserID:     "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, Sign([]byte("secret"), gotBody), gotSignature)

	var event Event
	require.NoError(t, json.Unmarshal(gotBody, &event))
	assert.Equal(t, EventDocumentCompleted, event.Event)
	assert.Equal(t, "doc-1", event.DocumentID)
}

func TestHTTPDispatcherTriggerNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "secret", time.Second, zap.NewNop())
	err := d.Trigger(context.Background(), Event{Event: EventDocumentRejected})
	assert.ErrorContains(t, err, "unexpected status 502")
}
