package types

import "time"

// Operator is an account allowed to modify the roster when authentication
// is enforced.
type Operator struct {
	// ID is the unique identifier of the operator.
	ID int64 `json:"id" db:"id"`

	// Username is the unique login name.
	Username string `json:"username" db:"username"`

	// Role is the operator role (e.g., "operator").
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
