package storage

import (
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"animehub/internal/auth"
	"animehub/internal/user"
	"animehub/pkg/models"
)

const maxUploadSize = 10 << 20 // 10 MiB

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Handler serves the poster and avatar uploads backed by object
// storage.
type Handler struct {
	Store *Store
	Users *user.Repo
}

func NewHandler(store *Store, users *user.Repo) *Handler {
	return &Handler{Store: store, Users: users}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth, adminOnly gin.HandlerFunc) {
	rg.POST("/poster", requireAuth, adminOnly, h.uploadPoster)
	rg.POST("/avatar", requireAuth, h.uploadAvatar)
}

func (h *Handler) uploadPoster(c *gin.Context) {
	url, ok := h.receive(c, "posters")
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	identity := auth.IdentityFrom(c)

	url, ok := h.receive(c, "avatars")
	if !ok {
		return
	}

	if _, err := h.Users.Update(c.Request.Context(), identity.ID, models.UserUpdate{
		Avatar: &url,
	}); err != nil {
		log.Printf("save avatar for user %d: %v", identity.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save avatar"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// receive validates and stores the multipart "file" field under the
// given prefix, reporting the public URL. Writes the error response
// itself and returns ok=false on failure.
func (h *Handler) receive(c *gin.Context, prefix string) (string, bool) {
	if !h.Store.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage is not configured"})
		return "", false
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return "", false
	}
	if header.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return "", false
	}

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return "", false
	}

	src, err := header.Open()
	if err != nil {
		log.Printf("open upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return "", false
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	key := prefix + "/" + uuid.NewString() + ext

	url, err := h.Store.Upload(c.Request.Context(), key, src, header.Size, contentType)
	if err != nil {
		log.Printf("upload %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return "", false
	}
	return url, true
}
