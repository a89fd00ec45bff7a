package catalog

import (
	"net/http"
	"strconv"

	"songmail/internal/domain"
	"songmail/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup) {
	songs := v1.Group("/songs")
	{
		songs.GET("", h.ListSongs)
		songs.GET("/lookup", h.LookupSong)
		songs.GET("/:id", h.GetSong)
	}

	v1.GET("/albums/:id/artists", h.ListAlbumArtists)
}

// ListSongs handles GET /api/v1/songs?limit=&offset=
func (h *Handler) ListSongs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	page, err := h.service.ListSongs(c.Request.Context(), limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// LookupSong handles GET /api/v1/songs/lookup?title=
func (h *Handler) LookupSong(c *gin.Context) {
	song, err := h.service.FindSongByTitle(c.Request.Context(), c.Query("title"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"song": song})
}

func (h *Handler) GetSong(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, domain.NotFound("catalog.GetSong"))
		return
	}

	song, err := h.service.GetSong(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"song": song})
}

// ListAlbumArtists handles GET /api/v1/albums/:id/artists
func (h *Handler) ListAlbumArtists(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.FromError(c, domain.NotFound("catalog.ListAlbumArtists"))
		return
	}

	artists, err := h.service.ListAlbumArtists(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"album_id": id, "artists": artists})
}
