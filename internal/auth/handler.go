package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"animehub/pkg/models"
)

// UserRepo is what the auth handler needs from the user store.
type UserRepo interface {
	UserStore
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, username, email, passwordHash string) (*models.User, error)
}

type Handler struct {
	Users  UserRepo
	Tokens TokenService
}

func NewHandler(users UserRepo, tokens TokenService) *Handler {
	return &Handler{Users: users, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.GET("/me", Required(h.Tokens, h.Users), h.me)
	rg.GET("/verify", Required(h.Tokens, h.Users), h.verify)
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Username == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
		return
	}
	if !strings.Contains(req.Email, "@") || len(req.Email) > 255 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	if len(req.Password) > 72 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too long"})
		return
	}

	// uniqueness checks
	if u, _ := h.Users.FindByEmail(c.Request.Context(), req.Email); u != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already in use"})
		return
	}
	if u, _ := h.Users.FindByUsername(c.Request.Context(), req.Username); u != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username already taken"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	u, err := h.Users.Create(c.Request.Context(), req.Username, req.Email, string(hash))
	if err != nil {
		// unique constraint will also trigger here in races
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	token, _, err := h.Tokens.Sign(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "user registered successfully",
		"user":    u,
		"token":   token,
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	u, err := h.Users.FindByEmail(c.Request.Context(), email)
	if err != nil || u == nil {
		// don't reveal which part failed
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, _, err := h.Tokens.Sign(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"user":    u,
		"token":   token,
	})
}

func (h *Handler) me(c *gin.Context) {
	ident := IdentityFrom(c)
	if ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": ident.User})
}

func (h *Handler) verify(c *gin.Context) {
	ident := IdentityFrom(c)
	if ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "user": ident.User})
}
