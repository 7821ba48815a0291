package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	chatdomain "github.com/smallbiznis/nextway/internal/chat/domain"
	"github.com/smallbiznis/nextway/internal/clock"
	interviewdomain "github.com/smallbiznis/nextway/internal/interview/domain"
	"github.com/smallbiznis/nextway/internal/realtime/event"
	"github.com/smallbiznis/nextway/internal/realtime/room"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type HandlerParams struct {
	fx.In

	Hub          *Hub
	Log          *zap.Logger
	Clock        clock.Clock
	ChatSvc      chatdomain.Service
	InterviewSvc interviewdomain.Service
}

// Handler routes inbound socket events. Each event is an independent
// entry point; the only state shared between them is the hub's room
// membership table.
type Handler struct {
	hub          *Hub
	log          *zap.Logger
	clock        clock.Clock
	chatSvc      chatdomain.Service
	interviewSvc interviewdomain.Service

	upgrader websocket.Upgrader
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		hub:          p.Hub,
		log:          p.Log.Named("realtime.handler"),
		clock:        p.Clock,
		chatSvc:      p.ChatSvc,
		interviewSvc: p.InterviewSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin policy is enforced by the CORS middleware.
				return true
			},
		},
	}
}

// Serve upgrades the request and runs the connection until it drops.
// Actor identity comes from handshake parameters; authentication happened
// upstream.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, actor room.ActorType, actorID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	conn := newConn(ws, actor, actorID)
	h.hub.register(conn)

	go conn.writePump()
	go h.readPump(r.Context(), conn)
	return nil
}

func (h *Handler) readPump(ctx context.Context, c *Conn) {
	defer h.hub.unregister(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env event.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("connection read failed",
					zap.String("connection_id", c.ID),
					zap.Error(err),
				)
			}
			return
		}
		if err := h.Dispatch(ctx, c, env); err != nil {
			h.log.Warn("inbound event failed",
				zap.String("connection_id", c.ID),
				zap.String("event", env.Event),
				zap.Error(err),
			)
		}
	}
}

// Dispatch routes one inbound envelope to its handler. Unknown events are
// dropped with a log line rather than an error back to the client.
func (h *Handler) Dispatch(ctx context.Context, c *Conn, env event.Envelope) error {
	switch env.Event {
	case event.SendMessage:
		return h.handleSendMessage(ctx, env.Data)
	case event.JoinChat:
		return h.handleJoinChat(c, env.Data)
	case event.JoinSubscription:
		return h.handleJoinSubscription(c, env.Data)
	case event.JoinCompany:
		return h.handleJoinCompany(c, env.Data)
	case event.StartInterview:
		return h.handleStartInterview(env.Data)
	case event.EndInterview:
		return h.handleEndInterview(ctx, env.Data)
	case event.UserLeave:
		return h.handleLeave(c, env.Data)
	case event.UserInInterview:
		return h.handlePresence(env.Data)
	default:
		h.log.Debug("dropping unknown event", zap.String("event", env.Event))
		return nil
	}
}

// handleSendMessage persists the message first, then broadcasts the
// stored record. Recipients always see the server-assigned id and
// timestamp, never the sender's clock.
func (h *Handler) handleSendMessage(ctx context.Context, data json.RawMessage) error {
	var payload event.MessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return chatdomain.ErrInvalidMessage
	}

	saved, err := h.chatSvc.Save(ctx, chatdomain.Message{
		UserID:    payload.UserID,
		CompanyID: payload.CompanyID,
		Sender:    chatdomain.Sender(payload.Sender),
		Content:   payload.Content,
	})
	if err != nil {
		return err
	}

	env, err := event.NewEnvelope(event.ReceiveMessage, saved)
	if err != nil {
		return err
	}
	h.hub.Broadcast(room.Chat(saved.UserID, saved.CompanyID), env)
	return nil
}

func (h *Handler) handleJoinChat(c *Conn, data json.RawMessage) error {
	var payload event.JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return chatdomain.ErrInvalidMessage
	}
	if payload.UserID == "" || payload.CompanyID == "" {
		return chatdomain.ErrInvalidMessage
	}
	h.hub.Join(c, room.Chat(payload.UserID, payload.CompanyID))
	return nil
}

func (h *Handler) handleJoinSubscription(c *Conn, data json.RawMessage) error {
	var payload event.JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		return chatdomain.ErrInvalidMessage
	}
	h.hub.Join(c, room.Subscription(payload.UserID))
	return nil
}

func (h *Handler) handleJoinCompany(c *Conn, data json.RawMessage) error {
	var payload event.JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.CompanyID == "" {
		return chatdomain.ErrInvalidMessage
	}
	h.hub.Join(c, room.Company(payload.CompanyID))
	return nil
}

// handleStartInterview notifies the applicant only. The company started
// the interview and already knows.
func (h *Handler) handleStartInterview(data json.RawMessage) error {
	var payload event.InterviewStartPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		return interviewdomain.ErrInvalidOutcome
	}

	env, err := event.NewEnvelope(event.InterviewStarted, payload)
	if err != nil {
		return err
	}
	h.hub.Broadcast(room.Personal(room.ActorUser, payload.UserID), env)
	return nil
}

// handleEndInterview is a two-phase emit: the applicant is told the call
// ended immediately, then the outcome is persisted and a confirmation
// follows. If the write fails the first emission has already happened;
// delivery here is best-effort, not transactional.
func (h *Handler) handleEndInterview(ctx context.Context, data json.RawMessage) error {
	var payload event.InterviewEndPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		return interviewdomain.ErrInvalidOutcome
	}

	personal := room.Personal(room.ActorUser, payload.UserID)
	env, err := event.NewEnvelope(event.InterviewEnd, payload)
	if err != nil {
		return err
	}
	h.hub.Broadcast(personal, env)

	startedAt, err := time.Parse(time.RFC3339, payload.StartTime)
	if err != nil {
		startedAt = h.clock.Now()
	}
	outcome, err := h.interviewSvc.RecordOutcome(ctx, interviewdomain.Outcome{
		RoomID:        payload.RoomID,
		ApplicationID: payload.ApplicationID,
		UserID:        payload.UserID,
		StartedAt:     startedAt,
		EndedAt:       h.clock.Now(),
	})
	if err != nil {
		return err
	}

	confirm, err := event.NewEnvelope(event.InterviewEnded, outcome)
	if err != nil {
		return err
	}
	h.hub.Broadcast(personal, confirm)
	return nil
}

func (h *Handler) handleLeave(c *Conn, data json.RawMessage) error {
	var payload event.LeavePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return chatdomain.ErrInvalidMessage
	}
	h.hub.Leave(c, room.Chat(payload.UserID, payload.CompanyID))
	return nil
}

// handlePresence relays the busy flag to the chat counterpart.
func (h *Handler) handlePresence(data json.RawMessage) error {
	var payload event.PresencePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return chatdomain.ErrInvalidMessage
	}

	env, err := event.NewEnvelope(event.UserInInterview, payload)
	if err != nil {
		return err
	}
	h.hub.Broadcast(room.Chat(payload.UserID, payload.CompanyID), env)
	return nil
}
