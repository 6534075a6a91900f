package actions

import (
	"context"

	"github.com/desertthunder/encore/internal/models"
)

// SetUserRole grants or revokes admin access. Admins cannot demote themselves, so the school always keeps at
// least the acting admin.
func (a *Actions) SetUserRole(ctx context.Context, actorID, userID string, role models.Role) models.Result {
	if !role.Valid() {
		return models.Result{
			Status:      models.StatusError,
			Message:     "Please correct the highlighted fields.",
			FieldErrors: map[string]string{"role": "role must be a valid role"},
		}
	}
	if actorID == userID && role != models.RoleAdmin {
		return models.Failure("You cannot remove your own admin access.")
	}

	user, err := a.users.Get(ctx, userID)
	if err != nil {
		return a.fail("set user role", err, "Could not change the role.")
	}
	if user.Role == role {
		return models.Success(user.Name+" is already "+role.Label()+".", user.ID)
	}

	if err := a.users.UpdateRole(ctx, userID, role); err != nil {
		return a.fail("set user role", err, "Could not change the role.")
	}

	a.logger.Info("user role changed", "id", userID, "role", role, "by", actorID)
	return models.Success(user.Name+" is now "+role.Label()+".", user.ID)
}
