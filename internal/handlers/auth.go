package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lifehubapp/lifehub/internal/models"
	"github.com/lifehubapp/lifehub/internal/session"
)

// AuthHandler exposes the identity provider over HTTP. Successful calls
// return a bearer token the client presents on every /api request.
type AuthHandler struct {
	sessions session.Provider
	tokens   *session.TokenService
}

func NewAuthHandler(sessions session.Provider, tokens *session.TokenService) *AuthHandler {
	return &AuthHandler{sessions: sessions, tokens: tokens}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	owner, err := h.sessions.Register(c.Request().Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrMissingFields):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Please fill in all fields."})
		case errors.Is(err, session.ErrEmailTaken):
			return c.JSON(http.StatusConflict, map[string]string{"error": "Email already registered."})
		default:
			log.Printf("register failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Registration failed."})
		}
	}

	return h.issueToken(c, http.StatusCreated, owner)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	owner, err := h.sessions.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrMissingFields):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Please fill in all fields."})
		case errors.Is(err, session.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid email or password."})
		default:
			log.Printf("login failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Login failed."})
		}
	}

	return h.issueToken(c, http.StatusOK, owner)
}

func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req models.GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	owner, err := h.sessions.LoginWithIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		log.Printf("google login failed: %v", err)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Google login failed."})
	}

	return h.issueToken(c, http.StatusOK, owner)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	h.sessions.Logout()
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) issueToken(c echo.Context, status int, owner *session.Owner) error {
	token, err := h.tokens.Issue(owner)
	if err != nil {
		log.Printf("failed to issue token: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Login failed."})
	}

	return c.JSON(status, map[string]any{
		"token": token,
		"user":  owner,
	})
}

const ownerContextKey = "owner"

// AuthMiddleware verifies the bearer token and stores the owner in the
// request context. Websocket clients cannot set headers, so a token query
// parameter is accepted as well.
func AuthMiddleware(tokens *session.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get("Authorization")
			if strings.HasPrefix(raw, "Bearer ") {
				raw = raw[len("Bearer "):]
			} else {
				raw = c.QueryParam("token")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authorization required"})
			}

			owner, err := tokens.Verify(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			}

			c.Set(ownerContextKey, owner)
			return next(c)
		}
	}
}

func ownerFrom(c echo.Context) *session.Owner {
	owner, _ := c.Get(ownerContextKey).(*session.Owner)
	return owner
}
