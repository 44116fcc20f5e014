package policies

import (
	"errors"

	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChangeParams describes an admin edit of another account.
// Empty TargetRole and nil Active mean the field is not being changed.
type ChangeParams struct {
	ActorUserID  uuid.UUID
	TargetUserID uuid.UUID
	TargetRole   string
	Active       *bool
}

// ValidateChange rejects role changes on the actor's own account, self-deactivation
// and any edit that would leave no active admin.
func ValidateChange(db *gorm.DB, params ChangeParams) error {
	roleChange := params.TargetRole != ""
	deactivation := params.Active != nil && !*params.Active
	if !roleChange && !deactivation {
		return nil
	}
	if params.ActorUserID == params.TargetUserID {
		if roleChange {
			return ErrUsersCannotModifyTheirOwnRole
		}
		return ErrUsersCannotDeactivateThemselves
	}
	target, err := findTarget(db, params.TargetUserID)
	if err != nil {
		return err
	}
	losesAdmin := (roleChange && params.TargetRole != constants.Admin) || deactivation
	if target.Role == constants.Admin && target.Active && losesAdmin {
		return lastAdminGuard(db)
	}
	return nil
}

// ValidateRemoval checks a soft delete of TargetUserID by ActorUserID.
func ValidateRemoval(db *gorm.DB, actorUserID, targetUserID uuid.UUID) error {
	if actorUserID == targetUserID {
		return ErrYouCannotRemoveYourself
	}
	target, err := findTarget(db, targetUserID)
	if err != nil {
		return err
	}
	if target.Role == constants.Admin && target.Active {
		return lastAdminGuard(db)
	}
	return nil
}

func findTarget(db *gorm.DB, id uuid.UUID) (*domain.User, error) {
	var target domain.User
	if err := db.Where("user_id = ?", id).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetUserNotFound
		}
		return nil, err
	}
	return &target, nil
}

func lastAdminGuard(db *gorm.DB) error {
	var count int64
	if err := db.Model(&domain.User{}).Where("role = ? AND active = ?", constants.Admin, true).Count(&count).Error; err != nil {
		return err
	}
	if count <= 1 {
		return ErrMustKeepOneActiveAdmin
	}
	return nil
}
