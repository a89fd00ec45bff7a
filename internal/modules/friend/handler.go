package friend

import (
	"net/http"

	"songmail/internal/domain"
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

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	friends := protected.Group("/friends")
	{
		friends.GET("", h.List)
		friends.POST("", h.Add)
	}
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.FromError(c, domain.Auth("friend.List"))
		return
	}

	friends, err := h.service.ListFriends(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"friends": friends})
}

// Add finds or creates a friend by name for the current user.
func (h *Handler) Add(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.FromError(c, domain.Auth("friend.Add"))
		return
	}

	var req AddFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Details(err))
		return
	}

	f, err := h.service.FindOrCreateFriend(c.Request.Context(), userID, req.Name, req.Email)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"friend": f})
}
