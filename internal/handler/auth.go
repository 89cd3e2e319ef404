package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"esalama/internal/audit"
	"esalama/internal/auth"
	"esalama/internal/directory"
)

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.dir.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil || !user.IsActive ||
		bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
		// One message for every failure mode; no account probing.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect email or password"})
		return
	}

	tok, err := auth.Issue(user.ID, user.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": tok.Token,
		"token_type":   "bearer",
		"role":         user.Role,
		"expires_in":   int(h.cfg.AccessTTL.Seconds()),
	})
}

func (h *Handler) register(c *gin.Context) {
	var req struct {
		Email    string  `json:"email" binding:"required,email"`
		Password string  `json:"password" binding:"required,min=8"`
		FullName string  `json:"full_name" binding:"required"`
		Phone    *string `json:"phone"`
		Role     string  `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !directory.ValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hashing failed"})
		return
	}

	user, err := h.dir.CreateUser(c.Request.Context(), directory.User{
		Email:          req.Email,
		HashedPassword: string(hashed),
		FullName:       req.FullName,
		Phone:          req.Phone,
		Role:           req.Role,
		IsActive:       true,
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.record(c, audit.Entry{
		UserID:       &user.ID,
		Action:       "user.register",
		ResourceType: strptr("user"),
		ResourceID:   &user.ID,
		Details:      strptr("role " + user.Role),
	})
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) me(c *gin.Context) {
	claims := auth.FromContext(c)
	user, err := h.dir.GetUser(c.Request.Context(), claims.Subject)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
