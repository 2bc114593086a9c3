package user

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"animehub/internal/auth"
	"animehub/pkg/models"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes mounts the profile endpoints. Profile reads are
// public; everything else requires a token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("/profile", requireAuth, h.ownProfile)
	rg.GET("/profile/:id", h.profile)
	rg.PUT("/profile", requireAuth, h.updateProfile)
	rg.GET("/watched", requireAuth, h.watched)
	rg.GET("/favorites", requireAuth, h.favorites)
}

func (h *Handler) ownProfile(c *gin.Context) {
	ident := auth.IdentityFrom(c)
	if ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": ident.User})
}

func (h *Handler) profile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	u, err := h.Repo.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u})
}

type updateProfileReq struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Avatar   *string `json:"avatar"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	ident := auth.IdentityFrom(c)
	if ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req updateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	upd := models.UserUpdate{Avatar: req.Avatar}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username must not be empty"})
			return
		}
		existing, err := h.Repo.FindByUsername(c.Request.Context(), username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		if existing != nil && existing.ID != ident.ID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username already taken"})
			return
		}
		upd.Username = &username
	}

	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if !strings.Contains(email, "@") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
			return
		}
		existing, err := h.Repo.FindByEmail(c.Request.Context(), email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		if existing != nil && existing.ID != ident.ID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already in use"})
			return
		}
		upd.Email = &email
	}

	if req.Password != nil {
		if *req.Password == "" || len(*req.Password) > 72 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		hashed := string(hash)
		upd.Password = &hashed
	}

	u, err := h.Repo.Update(c.Request.Context(), ident.ID, upd)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "profile updated successfully",
		"user":    u,
	})
}

func (h *Handler) watched(c *gin.Context) {
	ident := auth.IdentityFrom(c)
	if ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	animes, err := h.Repo.WatchedAnime(c.Request.Context(), ident.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	if animes == nil {
		animes = []models.WatchedAnime{}
	}
	c.JSON(http.StatusOK, gin.H{"animes": animes})
}

func (h *Handler) favorites(c *gin.Context) {
	ident := auth.IdentityFrom(c)
	if ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	animes, err := h.Repo.Favorites(c.Request.Context(), ident.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	if animes == nil {
		animes = []models.FavoriteAnime{}
	}
	c.JSON(http.StatusOK, gin.H{"animes": animes})
}
