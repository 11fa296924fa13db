package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core/user"
)

// typeMiddleware lets through callers whose `type` claim is one of types.
func typeMiddleware(types ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, typ := range types {
				if claims.Type == typ {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

var (
	teacherOnly = typeMiddleware(user.TypeTeacher)
	studentOnly = typeMiddleware(user.TypeStudent)
)
