package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"expensia/internal/amqp"
	"expensia/internal/auth"
	"expensia/internal/core"
	"expensia/internal/storage"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades authenticated HTTP requests to websocket clients.
type Handler struct {
	auth       *auth.Service
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	hub        *Hub
}

func NewHandler(authService *auth.Service, storage *storage.SQLiteRepository, amqpClient *amqp.Client, hub *Hub) *Handler {
	return &Handler{
		auth:       authService,
		storage:    storage,
		amqpClient: amqpClient,
		hub:        hub,
	}
}

// Client is one websocket connection bound to an authenticated user.
type Client struct {
	conn     *websocket.Conn
	handler  *Handler
	userID   string
	fullName string
	rooms    map[string]bool
	send     chan Event
}

// ServeWS authenticates the request and hands the connection over to
// the read and write pumps. The token comes from the Authorization
// header or, for browser websocket clients that cannot set headers,
// from the token query parameter.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	session, err := h.auth.Resolve(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "Websocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		conn:     conn,
		handler:  h,
		userID:   session.UserID,
		fullName: session.FullName,
		rooms:    make(map[string]bool),
		send:     make(chan Event, sendQueueSize),
	}
	slog.InfoContext(r.Context(), "Websocket client connected", "user_id", c.userID)

	go c.writePump()
	c.readPump()
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// enqueue hands an event to the write pump without blocking the read
// pump. A full queue drops the event, matching hub broadcast behaviour.
func (c *Client) enqueue(ev Event) {
	select {
	case c.send <- ev:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.handler.hub.leave(c)
		close(c.send)
		c.conn.Close()
		slog.Info("Websocket client disconnected", "user_id", c.userID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Websocket read error", "user_id", c.userID, "error", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.enqueue(errorEvent("malformed event"))
			continue
		}
		c.handleEvent(ev)
	}
}

func (c *Client) handleEvent(ev Event) {
	ctx := context.Background()

	switch ev.Event {
	case EventJoinTrip:
		var payload joinTripPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil || payload.TripID == "" {
			c.enqueue(errorEvent("malformed join-trip payload"))
			return
		}
		c.joinTrip(ctx, payload.TripID)

	case EventTripMessage:
		var payload tripMessagePayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			c.enqueue(errorEvent("malformed trip-message payload"))
			return
		}
		c.sendTripMessage(ctx, payload)

	default:
		c.enqueue(errorEvent("unknown event: " + ev.Event))
	}
}

func (c *Client) joinTrip(ctx context.Context, tripID string) {
	trip, err := c.handler.storage.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.enqueue(errorEvent("trip not found"))
			return
		}
		slog.ErrorContext(ctx, "Failed to load trip", "trip_id", tripID, "error", err)
		c.enqueue(errorEvent("internal error"))
		return
	}
	if !trip.CanAccess(c.userID) {
		c.enqueue(errorEvent("access to trip denied"))
		return
	}

	c.handler.hub.join(tripID, c)
	c.enqueue(newEvent(EventJoined, joinTripPayload{TripID: tripID}))
	slog.InfoContext(ctx, "Client joined trip room", "user_id", c.userID, "trip_id", tripID)
}

func (c *Client) sendTripMessage(ctx context.Context, payload tripMessagePayload) {
	if payload.TripID == "" || !c.rooms[payload.TripID] {
		c.enqueue(errorEvent("join the trip before sending messages"))
		return
	}

	msg := core.TripMessage{
		TripID: payload.TripID,
		UserID: c.userID,
		Text:   strings.TrimSpace(payload.Text),
	}
	if err := msg.Validate(); err != nil {
		c.enqueue(errorEvent(err.Error()))
		return
	}

	if err := c.handler.storage.CreateTripMessage(ctx, &msg); err != nil {
		slog.ErrorContext(ctx, "Failed to persist trip message", "trip_id", msg.TripID, "error", err)
		c.enqueue(errorEvent("internal error"))
		return
	}
	msg.AuthorName = c.fullName

	c.handler.hub.broadcast(payload.TripID, newEvent(EventTripMessage, msg))

	if c.handler.amqpClient != nil {
		if err := c.handler.amqpClient.PublishTripMessage(ctx, msg.ID, msg.TripID, msg.UserID, msg.Text); err != nil {
			slog.ErrorContext(ctx, "Failed to publish trip message event", "id", msg.ID, "error", err)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
