package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/identity-api/internal/handler"
	"github.com/jwalitptl/identity-api/internal/middleware"
	"github.com/jwalitptl/identity-api/internal/model"
	"github.com/jwalitptl/identity-api/internal/service/user"
	"github.com/jwalitptl/identity-api/pkg/security"
)

// bindError renders binding failures, listing each failed field when the
// error came from request validation.
func bindError(c *gin.Context, err error) {
	if fields := middleware.FieldErrors(err); fields != nil {
		c.JSON(http.StatusBadRequest, handler.NewFieldErrorResponse(fields))
		return
	}
	c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
}

type Handler struct {
	service user.UserServicer
}

func NewHandler(service user.UserServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.POST("", h.Register)
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.DELETE("/:id", h.DeleteUser)
		users.POST("/:id/password", h.ChangePassword)
		users.POST("/:id/verify", h.VerifyContact)
		users.POST("/:id/resend", h.ResendCode)
	}

	r.POST("/authenticate", h.Authenticate)
	r.GET("/passphrase", h.GeneratePassphrase)
}

func (h *Handler) Register(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	u := &model.User{
		Email:    req.Email,
		Phone:    req.Phone,
		Name:     req.Name,
		Password: req.Password,
		Provider: req.Provider,
		Roles:    req.Roles,
	}

	if err := h.service.Register(c.Request.Context(), u); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(u))
}

func (h *Handler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	u, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(u))
}

func (h *Handler) ListUsers(c *gin.Context) {
	var filter model.UserFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, err)
		return
	}

	users, err := h.service.ListUsers(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(users))
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), id, req.Password, security.Algorithm(req.Algorithm)); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

type authenticateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Authenticate reports only a boolean outcome; a missing account and a
// wrong password are indistinguishable.
func (h *Handler) Authenticate(c *gin.Context) {
	var req authenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ok, err := h.service.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"authenticated": ok}))
}

func (h *Handler) GeneratePassphrase(c *gin.Context) {
	passphrase, err := h.service.GeneratePassphrase()
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"passphrase": passphrase}))
}

func (h *Handler) VerifyContact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	var req model.VerifyContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.service.VerifyContact(c.Request.Context(), id, req.Type, req.Code); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

type resendRequest struct {
	Type string `json:"type" binding:"required,oneof=email phone"`
}

func (h *Handler) ResendCode(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	delivered, err := h.service.ResendCode(c.Request.Context(), id, req.Type)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"delivered": delivered}))
}
