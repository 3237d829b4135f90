package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/getmockd/entityd/pkg/entity"
)

// HandshakeTimeout bounds the websocket upgrade of Watch.
const HandshakeTimeout = 10 * time.Second

// EventsURL returns the websocket URL of the resource's change feed.
func (c *Client) EventsURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + c.collectionPath() + "/events"
}

// Watch follows the change feed and calls fn for every event until ctx is
// done, the server closes the stream, or fn returns an error. Cancelling ctx
// is not an error.
func (c *Client) Watch(ctx context.Context, fn func(entity.Event) error) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, c.EventsURL(), http.Header{})
	if err != nil {
		if resp != nil {
			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorCode:  "watch_unavailable",
				Message:    fmt.Sprintf("event stream unavailable (HTTP %d); it is only served in singleton scope", resp.StatusCode),
			}
		}
		return &APIError{
			ErrorCode: "connection_error",
			Message:   fmt.Sprintf("cannot connect to entityd at %s: %v", c.baseURL, err),
		}
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var ev entity.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := fn(ev); err != nil {
			if errors.Is(err, ErrStopWatch) {
				return nil
			}
			return err
		}
	}
}

// ErrStopWatch can be returned by a Watch callback to end the stream
// without an error.
var ErrStopWatch = errors.New("stop watching")
