package api

import (
	"errors"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/client"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login handles sign in
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	user, err := session.Login(c.Request.Context(), req.Email, req.Password)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Login failed",
			"details": err.Error(),
		})
		return
	}

	resp := gin.H{"success": true, "user": user}
	if err != nil {
		h.logger.Warn("Session not persisted", zap.String("client_id", clientID(c)), zap.Error(err))
		resp["warning"] = "session not persisted"
	}
	c.JSON(http.StatusOK, resp)
}

// signup handles account creation for kind user or admin
func (h *Handler) signup(c *gin.Context) {
	var req client.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	resp, err := session.Signup(c.Request.Context(), c.Param("type"), req)
	if err != nil {
		status := http.StatusBadGateway
		var se *client.StatusError
		switch {
		case errors.Is(err, client.ErrInvalidPayload):
			status = http.StatusBadRequest
		case errors.As(err, &se) && se.StatusCode < 500:
			status = se.StatusCode
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   "Signup failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": resp.Message,
		"id":      resp.ID(),
	})
}

// logout clears the session
func (h *Handler) logout(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	if err := session.Logout(c.Request.Context()); err != nil {
		storageUnavailable(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"redirect": "/",
	})
}

// getSession reports the current user
func (h *Handler) getSession(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": session.IsAuthenticated(),
		"is_admin":      session.IsAdmin(),
		"user":          session.User(),
	})
}

// updateProfile sends only the provided fields upstream
func (h *Handler) updateProfile(c *gin.Context) {
	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}

	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	if err := session.UpdateUser(c.Request.Context(), update); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, auth.ErrNotAuthenticated) {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   "Failed to update profile",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    session.User(),
	})
}
