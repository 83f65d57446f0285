package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirebridge/internal/core"
	"github.com/vovakirdan/wirebridge/internal/proto"
)

// APIHandlers provides the public and admin REST endpoints.
type APIHandlers struct {
	bridge *core.Bridge
	log    *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(bridge *core.Bridge, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		bridge: bridge,
		log:    logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges an admin action.
type MessageResponse struct {
	Message string `json:"message"`
}

// PasswordRequest toggles whether logins need credentials.
type PasswordRequest struct {
	Required *bool `json:"required"`
}

// StatusResponse summarises the bridge state for operators.
type StatusResponse struct {
	AccountsRequired bool `json:"accounts_required"`
	Sessions         int  `json:"sessions"`
	Backlog          int  `json:"backlog"`
}

// Messages returns the backlog of all channels.
// GET /messages
func (h *APIHandlers) Messages(c *gin.Context) {
	c.JSON(http.StatusOK, chatMessages(h.bridge.Backlog()))
}

// LogoutAll logs out every authenticated session.
// POST /admin/logout_all
func (h *APIHandlers) LogoutAll(c *gin.Context) {
	n := h.bridge.ForceLogoutAll()
	h.log.Info().Str("admin", c.GetString(ContextKeyAdmin)).Int("sessions", n).Msg("admin logged out all users")
	c.JSON(http.StatusOK, MessageResponse{Message: "OK"})
}

// SetPasswordRequired switches between accounts mode and open mode.
// POST /admin/password
func (h *APIHandlers) SetPasswordRequired(c *gin.Context) {
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Required == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing key 'required'"})
		return
	}

	h.bridge.SetAccountsRequired(*req.Required)
	h.log.Info().Str("admin", c.GetString(ContextKeyAdmin)).Bool("required", *req.Required).Msg("admin set password required")
	c.JSON(http.StatusOK, MessageResponse{Message: "OK"})
}

// Status reports the accounts mode and live counters.
// GET /admin/status
func (h *APIHandlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		AccountsRequired: h.bridge.AccountsRequired(),
		Sessions:         h.bridge.SessionCount(),
		Backlog:          len(h.bridge.Backlog()),
	})
}

func chatMessages(msgs []core.Message) []proto.ChatMessage {
	out := make([]proto.ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, chatMessage(msg))
	}
	return out
}
