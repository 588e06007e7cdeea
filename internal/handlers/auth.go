package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// loginRequest accepts JSON or an OAuth2 password form, where the email travels as "username".
type loginRequest struct {
	Email    string `json:"email" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates a new user and returns its first token pair.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if !h.saveRefreshToken(c, result.Tokens.RefreshToken) {
		return
	}
	c.JSON(http.StatusCreated, dto.Success(tokenResponse(result)))
}

// Login authenticates a user and keeps the refresh token in the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if !h.saveRefreshToken(c, result.Tokens.RefreshToken) {
		return
	}
	c.JSON(http.StatusOK, dto.Success(tokenResponse(result)))
}

// Refresh exchanges a refresh token from the body, or from the session when the body has none.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apierrors.RespondBinding(c, err)
		return
	}

	token := req.RefreshToken
	if token == "" {
		if v, ok := sessions.Default(c).Get(constants.SessionKeyRefreshToken).(string); ok {
			token = v
		}
	}

	result, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if !h.saveRefreshToken(c, result.Tokens.RefreshToken) {
		return
	}
	c.JSON(http.StatusOK, dto.Success(tokenResponse(result)))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Logged out successfully"))
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.Success(dto.ToUserDTO(*user)))
}

func (h *AuthHandler) saveRefreshToken(c *gin.Context, token string) bool {
	session := sessions.Default(c)
	session.Set(constants.SessionKeyRefreshToken, token)
	if err := session.Save(); err != nil {
		apierrors.Respond(c, err)
		return false
	}
	return true
}

func tokenResponse(result *services.AuthResult) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    result.Tokens.ExpiresIn,
	}
}
