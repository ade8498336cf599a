package users

import (
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const OperatorKey ContextKey = "operator"

// GuestID identifies the shared guest operator of local setups
var GuestID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Operator is an administrator allowed to edit the tournament and run the draw
type Operator struct {
	ID          uuid.UUID `db:"id"`
	Email       string    `db:"email"`
	Username    string    `db:"username"`
	CreatedAt   time.Time `db:"created_at"`
	LastLoginAt time.Time `db:"last_login_at"`
	Provider    *string   `db:"provider"`
	ProviderID  *string   `db:"provider_id"`
	AvatarURL   *string   `db:"avatar_url"`
}

func (o *Operator) IsGuest() bool {
	return o.ID == GuestID
}
