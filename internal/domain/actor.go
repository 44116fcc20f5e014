package domain

import (
	"taxqual-backend/internal/pkg/constants"

	"github.com/google/uuid"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
	IP     string
}

// IsBroker reports whether the actor is restricted to broker-origin records.
func (a Actor) IsBroker() bool {
	return a.Role == constants.Broker
}
