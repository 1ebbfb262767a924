package auth

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleIndividual Role = "individual"
	RoleFoundation Role = "foundation"
	RoleDonor      Role = "donor"
)

// User is the domain representation of an account on the platform.
// It mirrors the users table and should not include JSON annotations so it
// can be reused by different presentation layers.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	Division     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest contains account registration data supplied by callers.
// AssistedByStaffID records which staff member helped an individual register;
// that staff member is later disqualified from reviewing the individual's
// events.
type RegisterRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	FullName          string `json:"full_name"`
	Role              Role   `json:"role"`
	Division          string `json:"division"`
	AssistedByStaffID string `json:"assisted_by_staff_id"`
}

// LoginRequest contains account login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
