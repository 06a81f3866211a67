package services

import (
	"log/slog"

	"schoolgate/internal/models"
)

// RoleRouter maps an authenticated account's role to its landing
// destination. A role outside the closed enumeration is a data-integrity
// fault and is surfaced as ErrUnknownRole, never silently defaulted.
type RoleRouter struct {
	logger *slog.Logger
}

// NewRoleRouter creates a new RoleRouter
func NewRoleRouter(logger *slog.Logger) *RoleRouter {
	return &RoleRouter{logger: logger}
}

// Destination returns the landing path for a role.
func (rr *RoleRouter) Destination(role models.Role) (string, error) {
	switch role {
	case models.RoleAdmin:
		return "/admin", nil
	case models.RoleFaculty:
		return "/faculty", nil
	case models.RoleStudent:
		return "/student", nil
	default:
		rr.logger.Error("authenticated account carries unrecognized role",
			slog.String("role", string(role)))
		return "", models.ErrUnknownRole
	}
}
