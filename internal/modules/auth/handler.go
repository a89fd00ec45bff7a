package auth

import (
	"errors"
	"net/http"

	"songmail/internal/domain"
	"songmail/internal/middleware"
	"songmail/internal/pkg/response"
	"songmail/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.GET("/users/me", h.GetMe)
}

func toPublic(u *domain.User) UserPublic {
	return UserPublic{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Register godoc
// @Summary  Register a new account
// @Tags     Auth
// @Param    request body RegisterRequest true "username, email, password, password_confirm"
// @Success  201 {object} map[string]interface{}
// @Failure  400 {object} map[string]interface{}
// @Failure  409 {object} map[string]interface{}
// @Router   /auth/register [POST]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Details(err))
		return
	}

	user, token, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailAlreadyExists):
			response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "Email already registered")
		case errors.Is(err, ErrUsernameTaken):
			response.Error(c, http.StatusConflict, "USERNAME_TAKEN", "Username already in use")
		default:
			response.FromError(c, err)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"user":       toPublic(user),
		"token":      token,
		"expires_in": int(h.service.tokenLifetime(false).Seconds()),
	})
}

// Login godoc
// @Summary  Log in with email and password
// @Tags     Auth
// @Param    request body LoginRequest true "email, password, remember_me"
// @Success  200 {object} map[string]interface{}
// @Failure  401 {object} map[string]interface{}
// @Router   /auth/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Details(err))
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
			return
		}
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":       toPublic(user),
		"token":      token,
		"expires_in": int(h.service.tokenLifetime(req.RememberMe).Seconds()),
	})
}

func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.FromError(c, domain.Auth("auth.GetMe"))
		return
	}

	user, err := h.service.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": toPublic(user)})
}
