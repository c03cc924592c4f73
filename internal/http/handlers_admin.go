package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/placementcell/portal-auth/internal/domain/auth"
	apperrors "github.com/placementcell/portal-auth/internal/errors"
	"github.com/placementcell/portal-auth/internal/service"
)

// AdminHandlers serves principal management endpoints. Routes are expected to
// sit behind RequireVerifiedRole(admin) and CSRFGuard.
type AdminHandlers struct {
	Svc    AuthServiceInterface
	Logger *slog.Logger
}

type setRoleRequest struct {
	Role        string `json:"role"`
	ProgramCode string `json:"programCode"`
}

// SetRole assigns a role and revokes the principal's sessions.
// POST /api/admin/users/{uid}/role.
func (h *AdminHandlers) SetRole(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	var req setRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	role, err := domainauth.ParseRole(req.Role)
	if err != nil {
		WriteAppError(w, apperrors.ValidationField("role", err.Error()))
		return
	}

	if err := h.Svc.SetRole(r.Context(), service.SetRoleInput{UID: uid, Role: role, ProgramCode: req.ProgramCode}); err != nil {
		WriteAppError(w, err)
		return
	}
	h.audit(r, "role assigned", uid, "role", string(role))
	WriteJSON(w, http.StatusOK, map[string]string{"uid": uid, "role": string(role), "programCode": req.ProgramCode})
}

// RevokeSessions signs a principal out everywhere.
// POST /api/admin/users/{uid}/revoke.
func (h *AdminHandlers) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	if err := h.Svc.RevokeSessions(r.Context(), uid); err != nil {
		WriteAppError(w, err)
		return
	}
	h.audit(r, "sessions revoked", uid)
	WriteJSON(w, http.StatusOK, map[string]string{"uid": uid, "status": "revoked"})
}

func (h *AdminHandlers) audit(r *http.Request, msg, uid string, args ...any) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	actor, _ := PrincipalFromContext(r.Context())
	args = append([]any{"request_id", RequestIDFromContext(r.Context()), "actor", actor.UID, "uid", uid}, args...)
	logger.InfoContext(r.Context(), msg, args...)
}
