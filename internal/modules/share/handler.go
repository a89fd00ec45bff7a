package share

import (
	"net/http"
	"strconv"

	"songmail/internal/middleware"
	"songmail/internal/pkg/response"
	"songmail/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/search", h.Search)

	shareGroup := v1.Group("/share")
	{
		shareGroup.GET("/selection", h.Selection)
		shareGroup.POST("/confirm", h.Confirm)
	}
}

// RegisterSendRoutes expects a group behind middleware.OptionalJWTAuth: an
// anonymous caller may mail a bare address, friends need a user.
func (h *Handler) RegisterSendRoutes(g *gin.RouterGroup) {
	g.POST("/share/send", h.Send)
}

// Search handles GET /api/v1/search?q=&limit=
// Without limit the configured default applies; the web client asks for 5.
func (h *Handler) Search(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", map[string]string{"limit": "must be a positive number"})
			return
		}
		limit = v
	}

	res, err := h.service.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Selection(c *gin.Context) {
	res, err := h.service.Select(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Details(err))
		return
	}

	res, err := h.service.Confirm(c.Request.Context(), req.Token)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Send answers 202: the email is queued, not delivered.
func (h *Handler) Send(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Details(err))
		return
	}

	actor := Actor{UserID: userID, Username: middleware.CurrentUsername(c)}
	res, err := h.service.Send(c.Request.Context(), actor, req.SavedToken, RecipientInput{
		FriendID: req.FriendID,
		Name:     req.Name,
		Email:    req.Email,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, res)
}
