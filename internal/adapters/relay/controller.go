package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Relay/internal/auth"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

const sendBuffer = 32

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller is the websocket gateway: it authenticates the upgrade
// request against the credential gate and hands the accepted stream to
// the owning room actor.
type Controller struct {
	rooms *core.Manager
	gate  *auth.Gate
	cfg   *config.Config
}

func NewController(rooms *core.Manager, gate *auth.Gate, cfg *config.Config) *Controller {
	return &Controller{rooms: rooms, gate: gate, cfg: cfg}
}

func bearerToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

func (ctl *Controller) HandleConnect(ctx context.Context, c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomID"))

	if err := ctl.gate.Check(c.Request.Context(), roomID, bearerToken(c)); err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			c.String(http.StatusUnauthorized, "Missing token")
		case errors.Is(err, auth.ErrUnknownRoom):
			c.String(http.StatusNotFound, "Room not found")
		case errors.Is(err, auth.ErrTokenMismatch):
			c.String(http.StatusForbidden, "Invalid token")
		default:
			log.Error().Err(err).Str("module", "relay").Str("room", string(roomID)).Msg("admission check failed")
			c.String(http.StatusInternalServerError, "Internal error")
		}
		return
	}

	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.String(http.StatusUpgradeRequired, "Expected Upgrade: websocket")
		return
	}

	role, err := domain.ParseRole(c.Query("role"))
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid role query parameter. Must be 'host' or 'client'.")
		return
	}

	var clientID domain.ClientID
	if role == domain.RoleClient {
		clientID = domain.ClientID(c.Query("clientId"))
		if clientID == "" {
			clientID = domain.NewClientID()
		}
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("ws upgrade")
		return
	}

	log.Info().Str("module", "relay").
		Str("room", string(roomID)).
		Str("role", string(role)).
		Str("client", string(clientID)).
		Msg("connection accepted")

	conn := newWSConn(ws, sendBuffer, ctl.cfg.WriteTimeout)
	sess := core.NewSession(role, clientID, conn)
	sess.MarkOpen()

	// Admit before the read pump starts so no frame can outrun the
	// admission event in the room's queue.
	room := ctl.rooms.GetOrCreate(roomID)
	room.Admit(sess)

	connCtx, cancel := context.WithCancel(ctx)
	go ctl.writePump(connCtx, conn)
	go ctl.readPump(connCtx, cancel, room, sess, conn)
}
