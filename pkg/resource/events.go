package resource

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/getmockd/entityd/pkg/entity"
	"github.com/getmockd/entityd/pkg/logging"
)

// eventWriteTimeout bounds a single event write to a slow client.
const eventWriteTimeout = 5 * time.Second

// EventStream upgrades requests to websockets and streams feed events to the
// client as JSON text messages until either side goes away.
type EventStream struct {
	feed *entity.Feed
	log  *slog.Logger
	opts websocket.AcceptOptions
}

// NewEventStream creates a websocket handler for the feed.
func NewEventStream(feed *entity.Feed, log *slog.Logger) *EventStream {
	if log == nil {
		log = logging.Nop()
	}
	return &EventStream{
		feed: feed,
		log:  log,
		opts: websocket.AcceptOptions{
			InsecureSkipVerify: true,
		},
	}
}

// ServeHTTP handles one subscriber connection.
func (s *EventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &s.opts)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	events, cancel := s.feed.Subscribe()
	defer cancel()

	// The stream is server-to-client only; CloseRead handles control frames
	// and cancels ctx once the client disconnects.
	ctx := conn.CloseRead(r.Context())
	s.log.Debug("event subscriber connected", "remote", r.RemoteAddr, "subscribers", s.feed.Subscribers())

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("event subscriber disconnected", "remote", r.RemoteAddr)
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			if err := s.write(ctx, conn, ev); err != nil {
				s.log.Debug("event write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

func (s *EventStream) write(ctx context.Context, conn *websocket.Conn, ev entity.Event) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
