// File: internal/catalog/handler.go
package catalog

import (
	"errors"
	"net/http"
	"strings"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/filestorage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	listMaxAge   = 300
	detailMaxAge = 600
)

// Handler struct holds dependencies for catalog handlers.
type Handler struct {
	service Service
	store   filestorage.ObjectStore
	logger  *zap.Logger
}

// NewHandler creates a new catalog handler. store may be nil, in which case stored PDFs
// are not served.
func NewHandler(service Service, store filestorage.ObjectStore, logger *zap.Logger) *Handler {
	return &Handler{service: service, store: store, logger: logger}
}

// RegisterRoutes sets up the catalog routes on the engine root.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/", h.apiInfo)
	router.GET("/health", h.health)

	v2 := router.Group("/api/v2")
	{
		v2.GET("/songs", h.listSongs)
		v2.GET("/songs/*title", h.songRoute)
		v2.GET("/catalog", h.catalog)
	}

	legacy := router.Group("/api")
	{
		legacy.GET("/songs", h.listSongsLegacy)
		legacy.GET("/songs/search", h.searchSongsLegacy)
		legacy.GET("/song/*title", h.getSongLegacy)
	}

	router.GET("/generated/*path", h.serveGenerated)
	router.GET("/pdf/*path", h.serveGenerated)
}

func (h *Handler) apiInfo(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondJSON(c, gin.H{
		"name":        "Jazz Picker API",
		"version":     "2.0",
		"description": "Browse and search the jazz lead sheet collection",
		"catalog":     stats,
		"endpoints": gin.H{
			"health":       "/health",
			"songs_v2":     "/api/v2/songs?limit=20&offset=0&instrument=All",
			"song_details": "/api/v2/songs/{title}",
			"cached_keys":  "/api/v2/songs/{title}/cached",
			"catalog":      "/api/v2/catalog",
			"generate":     "/api/v2/generate",
		},
	})
}

func (h *Handler) health(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails(err.Error()))
		return
	}
	common.RespondJSON(c, gin.H{
		"status":             "healthy",
		"total_songs":        stats.TotalSongs,
		"total_variations":   stats.TotalVariations,
		"storage_configured": h.service.StorageConfigured(),
		"search_configured":  h.service.SearchConfigured(),
	})
}

func (h *Handler) parseQuery(c *gin.Context, queryParam, rangeParam string) (SearchQuery, error) {
	page, err := common.GetPageParams(c)
	if err != nil {
		return SearchQuery{}, err
	}
	q := SearchQuery{
		Query:       c.Query(queryParam),
		Instrument:  c.DefaultQuery("instrument", "All"),
		SingerRange: c.DefaultQuery(rangeParam, "All"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	if err := ValidateQuery(q); err != nil {
		return SearchQuery{}, err
	}
	return q, nil
}

func (h *Handler) respondList(c *gin.Context, q SearchQuery) {
	etag := h.service.Version()
	if common.IfNoneMatch(c, etag) {
		common.RespondWithError(c, common.ErrNotModified)
		return
	}
	resp, err := h.service.ListSongs(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCached(c, listMaxAge, etag, resp)
}

func (h *Handler) listSongs(c *gin.Context) {
	q, err := h.parseQuery(c, "q", "singer_range")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondList(c, q)
}

func (h *Handler) listSongsLegacy(c *gin.Context) {
	q, err := h.parseQuery(c, "query", "singerRange")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondList(c, q)
}

// searchSongsLegacy returns a bare array of matching songs.
func (h *Handler) searchSongsLegacy(c *gin.Context) {
	q, err := h.parseQuery(c, "q", "singerRange")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp, err := h.service.ListSongs(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondJSON(c, resp.Songs)
}

// songRoute dispatches /songs/{title} and /songs/{title}/cached. Titles may contain slashes.
func (h *Handler) songRoute(c *gin.Context) {
	title := strings.TrimPrefix(c.Param("title"), "/")
	if strings.HasSuffix(title, "/cached") {
		h.cachedKeys(c, strings.TrimSuffix(title, "/cached"))
		return
	}
	h.getSong(c, title)
}

func (h *Handler) getSongLegacy(c *gin.Context) {
	h.getSong(c, strings.TrimPrefix(c.Param("title"), "/"))
}

func (h *Handler) getSong(c *gin.Context, title string) {
	if title == "" {
		common.RespondWithError(c, common.ErrNotFound.WithMessage("Song not found"))
		return
	}
	resp, err := h.service.GetSong(c.Request.Context(), title)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	etag := h.service.Version()
	if common.IfNoneMatch(c, etag) {
		common.RespondWithError(c, common.ErrNotModified)
		return
	}
	common.RespondCached(c, detailMaxAge, etag, resp)
}

func (h *Handler) cachedKeys(c *gin.Context, title string) {
	resp, err := h.service.CachedKeys(c.Request.Context(), title)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondJSON(c, resp)
}

func (h *Handler) catalog(c *gin.Context) {
	etag := h.service.Version()
	if common.IfNoneMatch(c, etag) {
		common.RespondWithError(c, common.ErrNotModified)
		return
	}
	resp, err := h.service.Catalog(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCached(c, listMaxAge, etag, resp)
}

// serveGenerated streams a stored PDF. Both /generated/x.pdf and /pdf/x.pdf resolve to the
// object generated/x.pdf.
func (h *Handler) serveGenerated(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("path"), "/")
	if h.store == nil || name == "" || strings.Contains(name, "..") {
		common.RespondWithError(c, common.ErrNotFound)
		return
	}
	key := GeneratedPrefix + name

	ctx := c.Request.Context()
	attrs, err := h.store.Attrs(ctx, key)
	if err != nil {
		if errors.Is(err, filestorage.ErrObjectNotFound) {
			common.RespondWithError(c, common.ErrNotFound.WithMessage("PDF not found"))
			return
		}
		common.RespondWithError(c, err)
		return
	}
	etag := attrs.Checksum()
	if common.IfNoneMatch(c, etag) {
		common.RespondWithError(c, common.ErrNotModified)
		return
	}
	r, err := h.store.Open(ctx, key)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	defer r.Close()

	var extra map[string]string
	if etag != "" {
		extra = map[string]string{"ETag": `"` + etag + `"`}
	}
	c.DataFromReader(http.StatusOK, attrs.Size, "application/pdf", r, extra)
}
