package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/veritrace/veritrace-backend/api/middleware"
	"github.com/veritrace/veritrace-backend/api/responses"
	"github.com/veritrace/veritrace-backend/api/validators"
	"github.com/veritrace/veritrace-backend/internal/registry"
	"github.com/veritrace/veritrace-backend/pkg/enums"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/types"
)

// GrantRole adds a principal to a role's membership table. Owner only;
// the domain layer enforces the gate.
func GrantRole(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		caller := middleware.PrincipalFromContext(r.Context())
		if caller.IsZero() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller context missing"))
			return
		}

		var payload grantRoleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseRole(strings.TrimSpace(payload.Role))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}

		principal := types.Principal(strings.TrimSpace(payload.Principal))
		if err := svc.Authorize(r.Context(), caller, role, principal); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, grantRoleResponse{
			Role:      role.String(),
			Principal: principal.String(),
		})
	}
}

// PrincipalGrants lists the roles held by a principal. Public read; an
// unknown principal simply holds no roles.
func PrincipalGrants(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		principal := types.Principal(strings.TrimSpace(chi.URLParam(r, "principal")))
		if principal.IsZero() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "principal is required"))
			return
		}

		grants := svc.Grants(r.Context(), principal)
		roles := make([]string, 0, len(grants))
		for _, role := range grants {
			roles = append(roles, role.String())
		}

		responses.WriteSuccess(w, principalGrantsResponse{
			Principal: principal.String(),
			Roles:     roles,
			IsOwner:   principal == svc.Owner(),
		})
	}
}

type grantRoleRequest struct {
	Role      string `json:"role" validate:"required"`
	Principal string `json:"principal" validate:"required"`
}

type grantRoleResponse struct {
	Role      string `json:"role"`
	Principal string `json:"principal"`
}

type principalGrantsResponse struct {
	Principal string   `json:"principal"`
	Roles     []string `json:"roles"`
	IsOwner   bool     `json:"isOwner"`
}
