package upstream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"

	"response-dashboard/models"
)

// Listener modes reported by Mode.
const (
	ModeStream  = "stream"
	ModePolling = "polling"
)

// StreamListener consumes the upstream live event stream and invokes the
// refresh callback on every report event. A stream failure permanently
// degrades to a poll ticker for the rest of the session; there is no
// reconnect attempt back to the stream.
type StreamListener struct {
	eventsURL    string
	token        string
	pollInterval time.Duration
	onEvent      func()

	httpClient *http.Client

	mu      sync.RWMutex
	polling bool

	cancel   context.CancelFunc
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStreamListener creates a listener for the upstream events endpoint.
// onEvent is called from the listener goroutine on every live report event
// and on every poll tick after fallback.
func NewStreamListener(eventsURL, token string, pollInterval time.Duration, onEvent func()) *StreamListener {
	return &StreamListener{
		eventsURL:    eventsURL,
		token:        token,
		pollInterval: pollInterval,
		onEvent:      onEvent,
		// No overall timeout: the stream connection is long-lived.
		httpClient: &http.Client{},
		stopChan:   make(chan struct{}),
	}
}

// Start begins consuming the stream in the background.
func (l *StreamListener) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(1)
	go l.run(ctx)
}

// Stop tears down the stream subscription or poll ticker and waits for the
// listener goroutine to exit.
func (l *StreamListener) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
		if l.cancel != nil {
			l.cancel()
		}
	})
	l.wg.Wait()
}

// Mode reports whether the listener is on the live stream or has fallen back
// to polling.
func (l *StreamListener) Mode() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.polling {
		return ModePolling
	}
	return ModeStream
}

func (l *StreamListener) run(ctx context.Context) {
	defer l.wg.Done()

	err := l.consumeStream(ctx)
	select {
	case <-l.stopChan:
		return
	default:
	}
	if err != nil {
		log.WithError(err).Warn("event stream unavailable, falling back to polling")
	}

	l.mu.Lock()
	l.polling = true
	l.mu.Unlock()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.onEvent()
		}
	}
}

// consumeStream connects to the SSE endpoint and dispatches report events
// until the stream errors or the listener is stopped.
func (l *StreamListener) consumeStream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.eventsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	log.Infof("event stream connected to %s", l.eventsURL)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data:") {
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			continue
		}
		if line == "" && data.Len() > 0 {
			l.dispatch(data.String())
			data.Reset()
		}
	}
	if data.Len() > 0 {
		l.dispatch(data.String())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream read failed: %w", err)
	}
	return fmt.Errorf("event stream closed by upstream")
}

// dispatch parses one SSE payload and triggers a refresh on report events.
func (l *StreamListener) dispatch(payload string) {
	var event models.StreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		log.WithError(err).Debug("skipping unparseable stream event")
		return
	}
	if strings.HasPrefix(event.Type, "report:") {
		l.onEvent()
	}
}
