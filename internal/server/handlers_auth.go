package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/intisor/AnnounceHub/internal/domain"
	apperrors "github.com/intisor/AnnounceHub/internal/errors"
)

// Session keys
const (
	sessionName        = "announce"
	sessionKeyUsername = "username"
	sessionKeyRoles    = "roles"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 8
)

type credentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// --- Auth middleware ---

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.sessionStore.Get(c.Request(), sessionName)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}

		username, ok := session.Values[sessionKeyUsername].(string)
		if !ok || username == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}

		identity := domain.Identity{Name: username}
		if roles, ok := session.Values[sessionKeyRoles].(string); ok && roles != "" {
			identity.Roles = strings.Split(roles, ",")
		}

		c.Set("identity", identity)
		return next(c)
	}
}

// identityFromContext returns the identity set by requireAuth, or the
// anonymous identity when absent.
func identityFromContext(c echo.Context) domain.Identity {
	if identity, ok := c.Get("identity").(domain.Identity); ok {
		return identity
	}
	return domain.Identity{}
}

// --- Auth handlers ---

func (s *Server) handleRegister(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if len(req.Username) < minUsernameLength || len(req.Username) > maxUsernameLength {
		return apperrors.ValidationError("username must be between 3 and 50 characters")
	}
	if len(req.Password) < minPasswordLength {
		return apperrors.ValidationError("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.InternalError("failed to hash password", err)
	}

	user, err := s.users.Create(c.Request().Context(), req.Username, string(hash))
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return apperrors.ConflictError("username already taken")
		}
		return apperrors.InternalError("failed to create user", err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"username": user.Username})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := s.users.FindByUsername(c.Request().Context(), req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Same response as a wrong password: never reveal whether the
			// username exists.
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return apperrors.InternalError("failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	// New returns a usable fresh session even when the request carries an
	// undecodable cookie; a stale cookie at login is replaced, not an error.
	session, _ := s.sessionStore.New(c.Request(), sessionName)
	session.Values[sessionKeyUsername] = user.Username
	session.Values[sessionKeyRoles] = strings.Join(user.Roles, ",")
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	return c.JSON(http.StatusOK, user.Identity())
}

func (s *Server) handleLogout(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err == nil {
		session.Options.MaxAge = -1
		if err := session.Save(c.Request(), c.Response()); err != nil {
			return apperrors.InternalError("failed to clear session", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}
