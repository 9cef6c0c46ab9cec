package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// realtimePath is the websocket endpoint of the realtime service.
	realtimePath = "/realtime/v1/websocket"

	// heartbeatInterval keeps the phoenix socket alive.
	heartbeatInterval = 30 * time.Second

	// writeWait bounds how long a single socket write may take.
	writeWait = 10 * time.Second
)

// phoenixMessage is the phoenix channel wire envelope used by the
// realtime service.
type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// changePayload is the body of a postgres change event. Only the raw
// record is passed on; validation happens at the subscriber boundary.
type changePayload struct {
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

// replyPayload is the body of a phx_reply message.
type replyPayload struct {
	Status string `json:"status"`
}

// realtimeChannel is one live phoenix channel subscription. It owns
// the socket: a reader goroutine and a heartbeat goroutine, writes
// serialized by a mutex (gorilla allows one concurrent writer).
type realtimeChannel struct {
	conn    *websocket.Conn
	topic   string
	joinRef string

	writeMu gosync.Mutex
	once    gosync.Once
	done    chan struct{}
}

// SubscribeInserts opens a realtime channel delivering raw INSERT
// payloads for the given user's notification rows. The returned
// disposer must be invoked on teardown; failing to do so leaks the
// socket and its goroutines. There is no automatic reconnect: on a
// channel error the socket is closed and the event is logged, leaving
// polling as the fallback.
func (c *Client) SubscribeInserts(
	ctx context.Context,
	userID string,
	fn func(record json.RawMessage),
) (func(), error) {
	wsURL := websocketURL(c.baseURL) + "?apikey=" + c.anonKey + "&vsn=1.0.0"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.accessToken())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dialing realtime socket: %w", err)
	}

	ch := &realtimeChannel{
		conn:    conn,
		topic:   "realtime:public:notifications:user_id=eq." + userID,
		joinRef: uuid.NewString(),
		done:    make(chan struct{}),
	}

	if err := ch.join(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("joining channel %s: %w", ch.topic, err)
	}

	go ch.readLoop(fn)
	go ch.heartbeatLoop()

	return ch.dispose, nil
}

// websocketURL converts the project's http(s) base URL into the
// ws(s) realtime endpoint.
func websocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + realtimePath
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + realtimePath
	default:
		return baseURL + realtimePath
	}
}

// join sends the phx_join frame for the channel topic.
func (ch *realtimeChannel) join() error {
	return ch.write(phoenixMessage{
		Topic:   ch.topic,
		Event:   "phx_join",
		Payload: json.RawMessage("{}"),
		Ref:     ch.joinRef,
	})
}

// write sends a single frame with a write deadline.
func (ch *realtimeChannel) write(msg phoenixMessage) error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()

	ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ch.conn.WriteJSON(msg)
}

// readLoop consumes frames until the socket closes. INSERT events are
// forwarded to fn; join replies are checked and logged. Any read error
// terminates the subscription without retry.
func (ch *realtimeChannel) readLoop(fn func(record json.RawMessage)) {
	defer ch.dispose()

	for {
		var msg phoenixMessage
		if err := ch.conn.ReadJSON(&msg); err != nil {
			select {
			case <-ch.done:
				// Disposed locally; the error is just the closed socket.
			default:
				log.Printf("realtime: channel %s closed: %v", ch.topic, err)
			}
			return
		}

		switch msg.Event {
		case "phx_reply":
			if msg.Ref != ch.joinRef {
				continue
			}
			var reply replyPayload
			if err := json.Unmarshal(msg.Payload, &reply); err != nil || reply.Status != "ok" {
				log.Printf("realtime: join rejected for %s (status %q); polling remains active", ch.topic, reply.Status)
				return
			}
			log.Printf("realtime: subscription active on %s", ch.topic)

		case "INSERT":
			var change changePayload
			if err := json.Unmarshal(msg.Payload, &change); err != nil {
				log.Printf("realtime: dropping undecodable INSERT payload: %v", err)
				continue
			}
			fn(change.Record)

		case "phx_error":
			log.Printf("realtime: channel %s errored; polling remains active", ch.topic)
			return
		}
	}
}

// heartbeatLoop keeps the socket alive until disposal.
func (ch *realtimeChannel) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ch.done:
			return
		case <-ticker.C:
			msg := phoenixMessage{
				Topic:   "phoenix",
				Event:   "heartbeat",
				Payload: json.RawMessage("{}"),
				Ref:     uuid.NewString(),
			}
			if err := ch.write(msg); err != nil {
				log.Printf("realtime: heartbeat failed on %s: %v", ch.topic, err)
				ch.dispose()
				return
			}
		}
	}
}

// dispose leaves the channel and closes the socket. Safe to call more
// than once and from any goroutine.
func (ch *realtimeChannel) dispose() {
	ch.once.Do(func() {
		close(ch.done)
		// Best effort; the socket is going away either way.
		_ = ch.write(phoenixMessage{
			Topic:   ch.topic,
			Event:   "phx_leave",
			Payload: json.RawMessage("{}"),
			Ref:     uuid.NewString(),
		})
		ch.conn.Close()
	})
}
