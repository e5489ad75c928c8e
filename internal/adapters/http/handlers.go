package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	sessionEmail   = "email"
	sessionDisplay = "name"
)

type VerifyRequest struct {
	Token string `json:"token" binding:"required,max=2000"`
}

type UserResponse struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	IsOwner bool   `json:"isOwner"`
}

type VerifyResponse struct {
	Success bool         `json:"success"`
	User    UserResponse `json:"user"`
}

type handlers struct {
	cfg      *config.Config
	orch     *orch.Orchestrator
	verifier core.IdentityVerifier
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handlers) isOwner(email string) bool {
	return h.cfg.OwnerHandle != "" && email == h.cfg.OwnerHandle
}

func (h *handlers) verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing or invalid token"})
		return
	}

	ident, err := h.verifier.Verify(c.Request.Context(), req.Token)
	if err == nil && !ident.Verified {
		err = errors.New("email not verified")
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Str("ct", c.GetString("client_token")).Msg("token verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid token"})
		return
	}

	sess := sessions.Default(c)
	sess.Set(sessionEmail, ident.Handle)
	sess.Set(sessionDisplay, ident.DisplayName)
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
	}

	c.JSON(http.StatusOK, VerifyResponse{
		Success: true,
		User: UserResponse{
			Email:   ident.Handle,
			Name:    ident.DisplayName,
			Picture: ident.Avatar,
			IsOwner: h.isOwner(ident.Handle),
		},
	})
}

func (h *handlers) me(c *gin.Context) {
	sess := sessions.Default(c)
	email, _ := sess.Get(sessionEmail).(string)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}
	name, _ := sess.Get(sessionDisplay).(string)
	c.JSON(http.StatusOK, gin.H{"user": UserResponse{Email: email, Name: name, IsOwner: h.isOwner(email)}})
}

func (h *handlers) roomInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"room": h.orch.RoomInfo()})
}

func (h *handlers) ice(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.cfg.WebRTCICEServers()})
}
