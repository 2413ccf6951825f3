package readstore

import (
	"context"
	"log/slog"

	"academy-booking/internal/domain/user"
	"academy-booking/internal/infra"
	"academy-booking/internal/infra/db"

	"github.com/google/uuid"
)

type CenterAccessReadStore struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewCenterAccessReadStore(db db.DBTX, logger *slog.Logger) *CenterAccessReadStore {
	return &CenterAccessReadStore{
		db:     db,
		logger: logger,
	}
}

const isCenterStaffSQL = `
SELECT EXISTS (SELECT 1 FROM center_staff WHERE center_id = $1 AND user_id = $2)`

// IsAuthorizedForCenter lets admins and the system through and checks staff
// membership for everyone else.
func (s *CenterAccessReadStore) IsAuthorizedForCenter(ctx context.Context, actor user.Actor, centerID uuid.UUID) (bool, error) {
	if actor.IsPrivileged() {
		return true, nil
	}
	if actor.Role != user.RoleAcademy {
		return false, nil
	}

	var ok bool
	if err := s.db.QueryRow(ctx, isCenterStaffSQL, centerID, actor.UserID).Scan(&ok); err != nil {
		return false, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to check center staff", err)
	}
	return ok, nil
}
