package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
	"github.com/bizchat/wagateway/internal/platform/jobqueue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDestinations() map[domain.Destination]domain.DestinationConfig {
	return map[domain.Destination]domain.DestinationConfig{
		domain.DestinationText: {
			Endpoint:   "/process",
			Timeout:    2 * time.Second,
			MaxRetries: 2,
		},
		domain.DestinationAutoReply: {
			Endpoint:   "/auto-reply",
			MaxRetries: 0,
		},
		domain.DestinationIgnore: {},
	}
}

func textJob(payload string) *jobqueue.QueueJob {
	return &jobqueue.QueueJob{
		ID:          "job-1",
		Destination: string(domain.DestinationText),
		Payload:     json.RawMessage(payload),
	}
}

func TestDispatcher_SuccessfulPost(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, testDestinations(), time.Second, testLogger())
	err := d.Execute(context.Background(), textJob(`{"message":"hi"}`))

	require.NoError(t, err)
	assert.Equal(t, "/process", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"message":"hi"}`, string(gotBody))
}

func TestDispatcher_Accepts2xxRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, testDestinations(), time.Second, testLogger())
	assert.NoError(t, d.Execute(context.Background(), textJob(`{}`)))
}

func TestDispatcher_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "worker exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, testDestinations(), time.Second, testLogger())
	err := d.Execute(context.Background(), textJob(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "worker exploded")
}

func TestDispatcher_TimeoutIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	destinations := testDestinations()
	dc := destinations[domain.DestinationText]
	dc.Timeout = 50 * time.Millisecond
	destinations[domain.DestinationText] = dc

	d := NewDispatcher(server.URL, destinations, time.Second, testLogger())
	err := d.Execute(context.Background(), textJob(`{}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcher_UnknownDestination(t *testing.T) {
	d := NewDispatcher("http://localhost:1", testDestinations(), time.Second, testLogger())
	err := d.Execute(context.Background(), &jobqueue.QueueJob{ID: "j", Destination: "nope"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown destination")
}

func TestDispatcher_DestinationWithoutEndpoint(t *testing.T) {
	d := NewDispatcher("http://localhost:1", testDestinations(), time.Second, testLogger())
	err := d.Execute(context.Background(), &jobqueue.QueueJob{ID: "j", Destination: string(domain.DestinationIgnore)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no endpoint")
}

func TestDispatcher_DefaultTimeoutApplied(t *testing.T) {
	// AutoReply has no timeout configured; the default bounds the call.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, testDestinations(), 50*time.Millisecond, testLogger())
	err := d.Execute(context.Background(), &jobqueue.QueueJob{
		ID:          "j",
		Destination: string(domain.DestinationAutoReply),
		Payload:     json.RawMessage(`{}`),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
