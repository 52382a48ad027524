package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Relay/internal/auth"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

// AdminHandler mints, lists and revokes room credentials. Rooms are
// provisioned here; the relay itself never writes credentials.
type AdminHandler struct {
	creds auth.Store
	rooms *core.Manager
	cfg   *config.Config
}

func NewAdminHandler(creds auth.Store, rooms *core.Manager, cfg *config.Config) *AdminHandler {
	return &AdminHandler{creds: creds, rooms: rooms, cfg: cfg}
}

func (h *AdminHandler) scheme(c *gin.Context) string {
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" || h.cfg.Mode == "release" {
		return "wss"
	}
	return "ws"
}

type createResponse struct {
	UserID    string `json:"userId"`
	Token     string `json:"token"`
	HostURL   string `json:"hostUrl"`
	ClientURL string `json:"clientUrl"`
}

func (h *AdminHandler) CreateCredential(c *gin.Context) {
	id := domain.NewRoomID()
	rec := domain.NewRecord()

	if err := h.creds.Put(c.Request.Context(), id, rec); err != nil {
		log.Error().Err(err).Str("module", "adapters.admin").Msg("credential put")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store credential"})
		return
	}

	scheme := h.scheme(c)
	host := c.Request.Host
	c.JSON(http.StatusOK, createResponse{
		UserID:    string(id),
		Token:     rec.Token,
		HostURL:   fmt.Sprintf("%s://%s/connect/%s?role=host&token=%s", scheme, host, id, rec.Token),
		ClientURL: fmt.Sprintf("%s://%s/connect/%s?role=client&token=%s", scheme, host, id, rec.Token),
	})
}

type userInfo struct {
	ID          string    `json:"id"`
	Token       string    `json:"token"`
	CreatedAt   time.Time `json:"createdAt"`
	ClientCount int       `json:"clientCount"`
	HostOnline  bool      `json:"hostOnline"`
}

func (h *AdminHandler) ListCredentials(c *gin.Context) {
	creds, err := h.creds.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.admin").Msg("credential list")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list credentials"})
		return
	}

	users := make([]userInfo, 0, len(creds))
	for _, cred := range creds {
		u := userInfo{
			ID:        string(cred.RoomID),
			Token:     cred.Token,
			CreatedAt: cred.CreatedAt,
		}
		if info, ok := h.rooms.InfoFor(cred.RoomID); ok {
			u.ClientCount = info.ClientCount
			u.HostOnline = info.HostOnline
		}
		users = append(users, u)
	}

	c.JSON(http.StatusOK, gin.H{
		"totalActive": len(users),
		"users":       users,
	})
}

// ListRooms reports live rooms only: actors instantiated since boot,
// with their current presence counters.
func (h *AdminHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.rooms.List()})
}

func (h *AdminHandler) DeleteCredential(c *gin.Context) {
	id := domain.RoomID(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id"})
		return
	}
	if err := h.creds.Delete(c.Request.Context(), id); err != nil {
		log.Error().Err(err).Str("module", "adapters.admin").Msg("credential delete")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete credential"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
