package richdoc

import (
	"github.com/aisa-it/richdoc/internal/richdoc/apierrors"
	"github.com/aisa-it/richdoc/internal/richdoc/sessions"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
)

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "richdoc")
		return next(c)
	}
}

type SessionContext struct {
	echo.Context
	Session *sessions.Session
}

// SessionMiddleware находит сессию редактора по :sessionId и передает ее обработчику.
func (s *Services) SessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := uuid.FromString(c.Param("sessionId"))
		if err != nil {
			return EErrorDefined(c, apierrors.ErrSessionNotFound)
		}
		session, err := s.sessionsManager.Get(id)
		if err != nil {
			return EError(c, err)
		}
		return next(SessionContext{c, session})
	}
}
