package episode

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"animehub/internal/social"
	"animehub/pkg/models"
)

type Handler struct {
	Episodes *Repo
	Social   *social.Repo
}

func NewHandler(episodes *Repo, soc *social.Repo) *Handler {
	return &Handler{Episodes: episodes, Social: soc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth, adminOnly gin.HandlerFunc) {
	rg.GET("/anime/:animeId", h.listByAnime)
	rg.GET("/:id/comments", h.comments)

	rg.POST("", requireAuth, adminOnly, h.create)
	rg.PUT("/:id", requireAuth, adminOnly, h.update)
	rg.DELETE("/:id", requireAuth, adminOnly, h.remove)

	rg.POST("/sources", requireAuth, adminOnly, h.addSource)
	rg.DELETE("/sources/:id", requireAuth, adminOnly, h.removeSource)
}

func (h *Handler) listByAnime(c *gin.Context) {
	animeID, err := strconv.ParseInt(c.Param("animeId"), 10, 64)
	if err != nil || animeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid anime id"})
		return
	}

	episodes, err := h.Episodes.ListByAnime(c.Request.Context(), animeID)
	if err != nil {
		log.Printf("list episodes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list episodes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"episodes": episodes})
}

func (h *Handler) comments(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid episode id"})
		return
	}

	ep, err := h.Episodes.GetByID(c.Request.Context(), id)
	if err != nil {
		log.Printf("episode comments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comments"})
		return
	}
	if ep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
		return
	}

	comments, err := h.Social.CommentsForEpisode(c.Request.Context(), id)
	if err != nil {
		log.Printf("episode comments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *Handler) create(c *gin.Context) {
	var req models.EpisodeCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.AnimeID <= 0 || req.Number <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "anime_id and a positive number are required"})
		return
	}

	existing, err := h.Episodes.GetByAnimeAndNumber(c.Request.Context(), req.AnimeID, req.Number)
	if err != nil {
		log.Printf("create episode: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create episode"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "episode number already exists for this anime"})
		return
	}

	ep, err := h.Episodes.Create(c.Request.Context(), req)
	if err != nil {
		log.Printf("create episode: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create episode"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"episode": ep})
}

func (h *Handler) update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid episode id"})
		return
	}

	var req models.EpisodeUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ep, err := h.Episodes.Update(c.Request.Context(), id, req)
	if err != nil {
		log.Printf("update episode: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update episode"})
		return
	}
	if ep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"episode": ep})
}

func (h *Handler) remove(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid episode id"})
		return
	}

	deleted, err := h.Episodes.Delete(c.Request.Context(), id)
	if err != nil {
		log.Printf("delete episode: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete episode"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) addSource(c *gin.Context) {
	var req models.VideoSourceCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.EpisodeID <= 0 || req.SourceURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "episode_id and source_url are required"})
		return
	}
	if !models.ValidQuality(req.Quality) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quality"})
		return
	}
	if req.Type != "sub" && req.Type != "dub" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be sub or dub"})
		return
	}
	if !models.ValidSourceType(req.SourceType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source_type"})
		return
	}

	ep, err := h.Episodes.GetByID(c.Request.Context(), req.EpisodeID)
	if err != nil {
		log.Printf("add video source: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add video source"})
		return
	}
	if ep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
		return
	}

	source, err := h.Episodes.AddVideoSource(c.Request.Context(), req)
	if err != nil {
		log.Printf("add video source: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add video source"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"video_source": source})
}

func (h *Handler) removeSource(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video source id"})
		return
	}

	deleted, err := h.Episodes.DeleteVideoSource(c.Request.Context(), id)
	if err != nil {
		log.Printf("delete video source: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete video source"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "video source not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
