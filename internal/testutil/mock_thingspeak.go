// Package testutil provides testing utilities for the telemetry ingestion
// client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// ChannelFixture describes a deterministic channel history served by the
// mock. Record k (k = 0 is the newest) has timestamp Newest - k*Interval
// and entry id Total - k. Field values are derived from the entry id, so
// any record can be regenerated independently.
type ChannelFixture struct {
	ID       int64
	Name     string
	Fields   map[string]string
	Newest   time.Time
	Interval time.Duration
	Total    int
}

// Value returns the wire value of one field for the given entry id.
func (c *ChannelFixture) Value(fieldKey string, entryID int) string {
	offset := 0.0
	if n, err := strconv.Atoi(fieldKey[len("field"):]); err == nil {
		offset = float64(n) / 10
	}
	return strconv.FormatFloat(float64(entryID)+offset, 'f', 2, 64)
}

// MockThingSpeak is a configurable mock ThingSpeak server for testing.
type MockThingSpeak struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	channels map[int64]*ChannelFixture

	// Tracking
	RequestCount int
	LastQuery    url.Values
	Queries      []url.Values
}

// NewMockThingSpeak creates a new mock server.
func NewMockThingSpeak() *MockThingSpeak {
	mock := &MockThingSpeak{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		channels: make(map[int64]*ChannelFixture),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = query
		mock.Queries = append(mock.Queries, query)
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.feedHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockThingSpeak) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockThingSpeak) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockThingSpeak) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastQuery = nil
	m.Queries = nil
}

// AddChannel registers a channel fixture.
func (m *MockThingSpeak) AddChannel(fixture *ChannelFixture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[fixture.ID] = fixture
}

// SetHandler sets a custom handler for a specific path, overriding the
// fixture-based feed handler. Useful for injecting malformed payloads and
// error statuses.
func (m *MockThingSpeak) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a static response for a path.
func (m *MockThingSpeak) SetResponse(path string, statusCode int, body string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(statusCode)
		if body != "" {
			w.Write([]byte(body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockThingSpeak) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// FeedPath returns the feeds endpoint path for a channel.
func FeedPath(channelID int64) string {
	return fmt.Sprintf("/channels/%d/feeds.json", channelID)
}

// feedHandler serves fixture-backed feed responses honoring the results
// and end query parameters the way the real service does: the `results`
// most recent records at or before `end`, ascending by created_at.
func (m *MockThingSpeak) feedHandler(w http.ResponseWriter, r *http.Request) {
	var channelID int64
	if _, err := fmt.Sscanf(r.URL.Path, "/channels/%d/feeds.json", &channelID); err != nil {
		http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
		return
	}

	m.mu.RLock()
	fixture, ok := m.channels[channelID]
	m.mu.RUnlock()
	if !ok {
		http.Error(w, `{"error": "channel not found"}`, http.StatusNotFound)
		return
	}

	query := r.URL.Query()
	results := 10
	if raw := query.Get("results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, `{"error": "bad results"}`, http.StatusBadRequest)
			return
		}
		results = n
	}

	// kMin is the index of the newest record satisfying the end bound
	// (inclusive, like the real service).
	kMin := 0
	if raw := query.Get("end"); raw != "" {
		end, err := time.ParseInLocation("2006-01-02 15:04:05", raw, time.UTC)
		if err != nil {
			http.Error(w, `{"error": "bad end timestamp"}`, http.StatusBadRequest)
			return
		}
		for kMin < fixture.Total {
			ts := fixture.Newest.Add(-time.Duration(kMin) * fixture.Interval)
			if !ts.After(end) {
				break
			}
			kMin++
		}
	}

	kMax := kMin + results - 1
	if kMax > fixture.Total-1 {
		kMax = fixture.Total - 1
	}

	feeds := make([]map[string]any, 0, results)
	for k := kMax; k >= kMin; k-- {
		entryID := fixture.Total - k
		entry := map[string]any{
			"created_at": fixture.Newest.Add(-time.Duration(k) * fixture.Interval).UTC().Format(time.RFC3339),
			"entry_id":   entryID,
		}
		for key := range fixture.Fields {
			entry[key] = fixture.Value(key, entryID)
		}
		feeds = append(feeds, entry)
	}

	channel := map[string]any{
		"id":   fixture.ID,
		"name": fixture.Name,
	}
	for key, label := range fixture.Fields {
		channel[key] = label
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"channel": channel,
		"feeds":   feeds,
	})
}
