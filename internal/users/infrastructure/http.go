package infrastructure

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"user-service/internal/users/application"
	"user-service/internal/users/domain"
	"user-service/pkg/auth"
	"user-service/pkg/config"
	apperrors "user-service/pkg/errors"
	"user-service/pkg/logger"
	"user-service/pkg/middleware"
	"user-service/pkg/response"
)

// HTTPHandler handles HTTP requests for users
type HTTPHandler struct {
	svc *application.Service
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(svc *application.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// RegisterRoutes registers the user routes with their per-route gates:
// /users/find is reachable by sibling services only, everything under
// /users/me requires an authenticated user role.
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup, verifier *auth.Verifier, cfg *config.Config, log *logger.Logger) {
	userGate := middleware.RequireRoles(verifier, "role:user")
	userOrAdminGate := middleware.RequireRoles(verifier, "role:user", "role:admin")
	internalGate := middleware.InternalOnly(cfg.InternalServiceSecret, cfg.InternalServiceAllowlist, log)

	users := r.Group("/users")
	{
		users.GET("/hello", h.Hello)
		users.GET("/find", internalGate, h.FindByEmail)

		me := users.Group("/me")
		{
			me.GET("", userGate, h.GetByEmail)
			me.POST("/create", userGate, h.CreateUser)
			me.PUT("/update", userGate, h.UpdateUser)
			me.DELETE("/delete", userGate, h.DeleteCurrentUser)
			me.GET("/current", userOrAdminGate, h.CurrentUser)
		}
	}
}

// Hello handles GET /users/hello
func (h *HTTPHandler) Hello(c *gin.Context) {
	email := c.Query("email")
	response.JSON(c, http.StatusOK, "Hello, "+email+"!", nil)
}

// FindByEmail handles GET /users/find, the lookup sibling services use.
func (h *HTTPHandler) FindByEmail(c *gin.Context) {
	h.lookupByEmail(c)
}

// GetByEmail handles GET /users/me
func (h *HTTPHandler) GetByEmail(c *gin.Context) {
	h.lookupByEmail(c)
}

func (h *HTTPHandler) lookupByEmail(c *gin.Context) {
	email := c.Query("email")
	if !domain.ValidEmail(email) {
		response.JSON(c, http.StatusBadRequest, "Invalid or missing email format", nil)
		return
	}

	user, err := h.svc.GetByEmail(c.Request.Context(), email)
	if err != nil {
		c.Error(err)
		return
	}
	if user == nil {
		response.JSON(c, http.StatusNotFound, "User not found", nil)
		return
	}

	response.JSON(c, http.StatusOK, "User found", user)
}

// CreateUser handles POST /users/me/create
func (h *HTTPHandler) CreateUser(c *gin.Context) {
	var user domain.User
	if err := c.ShouldBindJSON(&user); err != nil {
		response.JSON(c, http.StatusBadRequest, "Invalid user data", nil)
		return
	}
	if user.Email == "" || user.FirstName == "" {
		response.JSON(c, http.StatusBadRequest, "Invalid user data", nil)
		return
	}

	exists, err := h.svc.ExistsByEmail(c.Request.Context(), user.Email)
	if err != nil {
		c.Error(err)
		return
	}
	if exists {
		response.JSON(c, http.StatusConflict, "User with this email already exists", nil)
		return
	}

	created, err := h.svc.Create(c.Request.Context(), &user)
	if err != nil {
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, "User created successfully", created)
}

// UpdateUser handles PUT /users/me/update
func (h *HTTPHandler) UpdateUser(c *gin.Context) {
	var user domain.User
	if err := c.ShouldBindJSON(&user); err != nil {
		response.JSON(c, http.StatusBadRequest, "Invalid user data", nil)
		return
	}
	if user.IsNew() {
		response.JSON(c, http.StatusBadRequest, "Invalid user data", nil)
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), &user)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeInvalidState) {
			response.JSON(c, http.StatusNotFound, "User not found", nil)
			return
		}
		c.Error(err)
		return
	}

	response.JSON(c, http.StatusOK, "User updated successfully", updated)
}

// DeleteCurrentUser handles DELETE /users/me/delete. The target is the
// caller itself, identified by the email claim of the verified token. A
// missing user is 404; a delete that does not stick after the user was
// found is a server fault, not a missing resource.
func (h *HTTPHandler) DeleteCurrentUser(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil || claims.Email == "" {
		response.JSON(c, http.StatusBadRequest, "Token carries no email claim", false)
		return
	}

	user, err := h.svc.GetByEmail(c.Request.Context(), claims.Email)
	if err != nil {
		c.Error(err)
		return
	}
	if user == nil {
		response.JSON(c, http.StatusNotFound, "User not found", false)
		return
	}

	deleted, err := h.svc.DeleteByEmail(c.Request.Context(), claims.Email)
	if err != nil {
		c.Error(err)
		return
	}
	if !deleted {
		c.Error(apperrors.NewInternal("user deletion did not take effect", nil))
		return
	}

	response.JSON(c, http.StatusOK, "User deleted successfully", true)
}

// CurrentUser handles GET /users/me/current
func (h *HTTPHandler) CurrentUser(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		response.JSON(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	response.JSON(c, http.StatusOK, "Current user information", gin.H{
		"subject":       claims.Subject,
		"email":         claims.Email,
		"name":          claims.Name,
		"roles":         claims.Roles,
		"authenticated": true,
	})
}
