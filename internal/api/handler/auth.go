package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/localdeals_server/internal/model/dto"
	"github.com/qs3c/localdeals_server/internal/pkg/response"
	"github.com/qs3c/localdeals_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "registered", resp)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, resp)
}

// RequestPasswordReset 找回密码，邮箱是否存在都返回同样的结果
// POST /api/v1/auth/password-reset
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	h.authService.RequestPasswordReset(c.Request.Context(), &req)
	response.SuccessWithMessage(c, service.PasswordResetNotice, nil)
}

// ConfirmPasswordReset 使用邮件中的令牌设置新密码
// POST /api/v1/auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req dto.PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.ConfirmPasswordReset(c.Request.Context(), &req); err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "password updated", nil)
}
