package policies

import "errors"

var (
	ErrUsersCannotModifyTheirOwnRole   = errors.New("Users cannot modify their own role")
	ErrUsersCannotDeactivateThemselves = errors.New("You cannot deactivate your own account")
	ErrYouCannotRemoveYourself         = errors.New("You cannot remove your own account")
	ErrTargetUserNotFound              = errors.New("User not found")
	ErrMustKeepOneActiveAdmin          = errors.New("At least one active admin must remain")
)
