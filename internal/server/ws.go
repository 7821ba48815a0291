package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/nextway/internal/realtime/room"
	"go.uber.org/zap"
)

// ServeWS upgrades the connection and hands it to the hub. Actor identity
// comes from query parameters; the transport layer in front of this
// service already authenticated the caller.
func (s *Server) ServeWS(c *gin.Context) {
	actor := room.ActorType(strings.TrimSpace(c.Query("actor_type")))
	actorID := strings.TrimSpace(c.Query("actor_id"))

	if !actor.Valid() {
		AbortWithError(c, newValidationError("actor_type", "invalid_actor_type", "actor_type must be user or company"))
		return
	}
	if actorID == "" {
		AbortWithError(c, newValidationError("actor_id", "required", "actor_id is required"))
		return
	}

	if err := s.ws.Serve(c.Writer, c.Request, actor, actorID); err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
	}
}
