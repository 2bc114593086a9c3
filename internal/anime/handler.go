package anime

import (
	"context"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"animehub/internal/auth"
	"animehub/internal/cache"
	"animehub/internal/episode"
	"animehub/internal/live"
	"animehub/internal/social"
	"animehub/pkg/models"
)

const (
	cacheKeyPopular = "anime:popular"
	cacheKeyLatest  = "anime:latest"
	cacheTTL        = 5 * time.Minute
)

type Handler struct {
	Animes   *Repo
	Episodes *episode.Repo
	Social   *social.Repo
	Cache    *cache.Cache
	Hub      *live.Hub
}

func NewHandler(animes *Repo, episodes *episode.Repo, soc *social.Repo, c *cache.Cache, hub *live.Hub) *Handler {
	return &Handler{Animes: animes, Episodes: episodes, Social: soc, Cache: c, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, optionalAuth, requireAuth, adminOnly gin.HandlerFunc) {
	rg.GET("/list", h.list)
	rg.GET("/popular", h.popular)
	rg.GET("/latest", h.latest)
	rg.GET("/:slug", optionalAuth, h.details)
	rg.GET("/:slug/episode/:number", optionalAuth, h.episodeView)

	rg.POST("/watch-progress", requireAuth, h.watchProgress)
	rg.POST("/favorite", requireAuth, h.favorite)
	rg.POST("/rate", requireAuth, h.rate)
	rg.POST("/comment", requireAuth, h.comment)

	rg.POST("", requireAuth, adminOnly, h.create)
	rg.PUT("/:id", requireAuth, adminOnly, h.update)
	rg.DELETE("/:id", requireAuth, adminOnly, h.remove)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Page:   parseInt(c.Query("page"), 1),
		Limit:  parseInt(c.Query("limit"), 20),
		Sort:   c.Query("sort"),
		Order:  c.Query("order"),
		Genre:  int64(parseInt(c.Query("genre"), 0)),
		Search: c.Query("search"),
	}

	animes, total, err := h.Animes.List(c.Request.Context(), q)
	if err != nil {
		log.Printf("anime list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list animes"})
		return
	}

	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	pages := int(math.Ceil(float64(total) / float64(q.Limit)))

	c.JSON(http.StatusOK, gin.H{
		"animes": animes,
		"pagination": gin.H{
			"page":  q.Page,
			"limit": q.Limit,
			"total": total,
			"pages": pages,
		},
	})
}

func (h *Handler) popular(c *gin.Context) {
	h.cachedListing(c, cacheKeyPopular, h.Animes.GetPopular)
}

func (h *Handler) latest(c *gin.Context) {
	h.cachedListing(c, cacheKeyLatest, h.Animes.GetLatest)
}

func (h *Handler) cachedListing(c *gin.Context, key string, fetch func(context.Context, int) ([]models.Anime, error)) {
	limit := parseInt(c.Query("limit"), 10)

	// Only the default page is cached; custom limits go to the store.
	if limit == 10 {
		var animes []models.Anime
		if h.Cache.GetJSON(c.Request.Context(), key, &animes) {
			c.JSON(http.StatusOK, gin.H{"animes": animes})
			return
		}
	}

	animes, err := fetch(c.Request.Context(), limit)
	if err != nil {
		log.Printf("anime listing %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list animes"})
		return
	}

	if limit == 10 {
		h.Cache.SetJSON(c.Request.Context(), key, animes, cacheTTL)
	}
	c.JSON(http.StatusOK, gin.H{"animes": animes})
}

func (h *Handler) details(c *gin.Context) {
	ctx := c.Request.Context()

	a, err := h.Animes.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		log.Printf("anime details: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load anime"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}

	if err := h.Animes.IncrementViews(ctx, a.ID); err != nil {
		log.Printf("increment views for anime %d: %v", a.ID, err)
	}

	identity := auth.IdentityFrom(c)

	var (
		genres   []models.Genre
		studios  []models.Studio
		episodes []models.Episode
		userData = gin.H{"is_favorite": false, "rating": nil}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		genres, err = h.Animes.Genres(gctx, a.ID)
		return
	})
	g.Go(func() (err error) {
		studios, err = h.Animes.Studios(gctx, a.ID)
		return
	})
	g.Go(func() (err error) {
		episodes, err = h.Episodes.ListByAnime(gctx, a.ID)
		return
	})
	if identity != nil {
		g.Go(func() error {
			fav, err := h.Social.IsFavorite(gctx, identity.ID, a.ID)
			if err != nil {
				return err
			}
			score, rated, err := h.Social.UserRating(gctx, identity.ID, a.ID)
			if err != nil {
				return err
			}
			userData["is_favorite"] = fav
			if rated {
				userData["rating"] = score
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("anime details for %s: %v", a.Slug, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load anime"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"anime":     a,
		"genres":    genres,
		"studios":   studios,
		"episodes":  episodes,
		"user_data": userData,
	})
}

func (h *Handler) episodeView(c *gin.Context) {
	ctx := c.Request.Context()

	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid episode number"})
		return
	}

	a, err := h.Animes.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		log.Printf("episode view: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load anime"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}

	ep, err := h.Episodes.GetByAnimeAndNumber(ctx, a.ID, number)
	if err != nil {
		log.Printf("episode view: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load episode"})
		return
	}
	if ep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
		return
	}

	identity := auth.IdentityFrom(c)

	var (
		sources  []models.VideoSource
		comments []models.Comment
		nav      *models.Navigation
		userData = gin.H{"watch_progress": nil}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sources, err = h.Episodes.VideoSources(gctx, ep.ID)
		return
	})
	g.Go(func() (err error) {
		comments, err = h.Social.CommentsForEpisode(gctx, ep.ID)
		return
	})
	g.Go(func() (err error) {
		nav, err = h.Episodes.Navigation(gctx, a.ID, ep.Number)
		return
	})
	if identity != nil {
		g.Go(func() error {
			progress, _, watched, err := h.Episodes.GetProgress(gctx, identity.ID, ep.ID)
			if err != nil {
				return err
			}
			if watched {
				userData["watch_progress"] = progress
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("episode view for %s/%d: %v", a.Slug, number, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load episode"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"anime":         a,
		"episode":       ep,
		"video_sources": sources,
		"comments":      comments,
		"navigation":    nav,
		"user_data":     userData,
	})
}

func (h *Handler) watchProgress(c *gin.Context) {
	identity := auth.IdentityFrom(c)

	var req struct {
		EpisodeID int64 `json:"episode_id"`
		Progress  int   `json:"progress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.EpisodeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "episode_id is required"})
		return
	}
	if req.Progress < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "progress must not be negative"})
		return
	}

	ep, err := h.Episodes.GetByID(c.Request.Context(), req.EpisodeID)
	if err != nil {
		log.Printf("watch progress: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save progress"})
		return
	}
	if ep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
		return
	}

	if err := h.Episodes.RecordProgress(c.Request.Context(), identity.ID, req.EpisodeID, req.Progress); err != nil {
		log.Printf("watch progress: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save progress"})
		return
	}

	h.broadcast(live.Event{
		Type:      live.EventProgress,
		Username:  identity.User.Username,
		AnimeID:   ep.AnimeID,
		EpisodeID: ep.ID,
		At:        time.Now().UTC(),
	})

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) favorite(c *gin.Context) {
	identity := auth.IdentityFrom(c)

	var req struct {
		AnimeID int64 `json:"anime_id"`
		Remove  bool  `json:"remove"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AnimeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "anime_id is required"})
		return
	}

	a, err := h.Animes.GetByID(c.Request.Context(), req.AnimeID)
	if err != nil {
		log.Printf("favorite: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update favorite"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}

	var changed bool
	if req.Remove {
		changed, err = h.Social.RemoveFavorite(c.Request.Context(), identity.ID, req.AnimeID)
	} else {
		changed, err = h.Social.AddFavorite(c.Request.Context(), identity.ID, req.AnimeID)
	}
	if err != nil {
		log.Printf("favorite: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update favorite"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": changed, "is_favorite": !req.Remove})
}

func (h *Handler) rate(c *gin.Context) {
	identity := auth.IdentityFrom(c)

	var req struct {
		AnimeID int64 `json:"anime_id"`
		Score   int   `json:"score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AnimeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "anime_id is required"})
		return
	}
	if req.Score < 1 || req.Score > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score must be between 1 and 10"})
		return
	}

	a, err := h.Animes.GetByID(c.Request.Context(), req.AnimeID)
	if err != nil {
		log.Printf("rate: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save rating"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}

	if err := h.Social.Rate(c.Request.Context(), identity.ID, req.AnimeID, req.Score); err != nil {
		log.Printf("rate: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save rating"})
		return
	}

	updated, err := h.Animes.GetByID(c.Request.Context(), req.AnimeID)
	if err != nil || updated == nil {
		log.Printf("rate reread: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save rating"})
		return
	}

	h.broadcast(live.Event{
		Type:     live.EventRating,
		Username: identity.User.Username,
		AnimeID:  req.AnimeID,
		Score:    req.Score,
		At:       time.Now().UTC(),
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "rating": updated.Rating})
}

func (h *Handler) comment(c *gin.Context) {
	identity := auth.IdentityFrom(c)

	var req struct {
		AnimeID   *int64 `json:"anime_id"`
		EpisodeID *int64 `json:"episode_id"`
		ParentID  *int64 `json:"parent_id"`
		Text      string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if (req.AnimeID == nil) == (req.EpisodeID == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of anime_id or episode_id is required"})
		return
	}

	comment, err := h.Social.AddComment(c.Request.Context(), social.CommentCreate{
		UserID:    identity.ID,
		AnimeID:   req.AnimeID,
		EpisodeID: req.EpisodeID,
		ParentID:  req.ParentID,
		Text:      strings.TrimSpace(req.Text),
	})
	if err != nil {
		log.Printf("comment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save comment"})
		return
	}

	event := live.Event{
		Type:     live.EventComment,
		Username: identity.User.Username,
		Content:  comment.Text,
		At:       time.Now().UTC(),
	}
	if comment.AnimeID != nil {
		event.AnimeID = *comment.AnimeID
	}
	if comment.EpisodeID != nil {
		event.EpisodeID = *comment.EpisodeID
	}
	h.broadcast(event)

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (h *Handler) create(c *gin.Context) {
	var req models.AnimeCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Slug) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and slug are required"})
		return
	}
	if req.Status == "" {
		req.Status = models.StatusOngoing
	}
	if req.Type == "" {
		req.Type = models.TypeTV
	}
	if !models.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if !models.ValidType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
		return
	}

	existing, err := h.Animes.GetBySlug(c.Request.Context(), req.Slug)
	if err != nil {
		log.Printf("create anime: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create anime"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug already in use"})
		return
	}

	a, err := h.Animes.Create(c.Request.Context(), req)
	if err != nil {
		log.Printf("create anime: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create anime"})
		return
	}

	h.Cache.Invalidate(c.Request.Context(), cacheKeyPopular, cacheKeyLatest)
	c.JSON(http.StatusCreated, gin.H{"anime": a})
}

func (h *Handler) update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid anime id"})
		return
	}

	var req models.AnimeUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Status != nil && !models.ValidStatus(*req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if req.Type != nil && !models.ValidType(*req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
		return
	}

	a, err := h.Animes.Update(c.Request.Context(), id, req)
	if err != nil {
		log.Printf("update anime: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update anime"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}

	h.Cache.Invalidate(c.Request.Context(), cacheKeyPopular, cacheKeyLatest)
	c.JSON(http.StatusOK, gin.H{"anime": a})
}

func (h *Handler) remove(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid anime id"})
		return
	}

	deleted, err := h.Animes.Delete(c.Request.Context(), id)
	if err != nil {
		log.Printf("delete anime: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete anime"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}

	h.Cache.Invalidate(c.Request.Context(), cacheKeyPopular, cacheKeyLatest)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) broadcast(ev live.Event) {
	if h.Hub == nil {
		return
	}
	go h.Hub.BroadcastJSON(ev)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
