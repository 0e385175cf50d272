package model

import "time"

// Roles a user can hold.  New registrations are always customers.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Account states.  The only transition is Pending -> active, performed by a
// successful OTP verification.
const (
	StatusPending = "Pending"
	StatusActive  = "active"
)

// User represents a row in the `users` table.  Password and OTP never leave
// the process: both are excluded from JSON.
//
// Fields:
//
//	ID           – primary key identifier.
//	Firstname    – given name.
//	Lastname     – family name.
//	Username     – unique login name.
//	Email        – unique email address, target of OTP mails.
//	PasswordHash – bcrypt hash of the password.
//	Role         – customer or admin.
//	Status       – Pending until the OTP is verified, then active.
//	OTP          – outstanding 6-digit code (nil once consumed).
//	Image        – relative media reference of the profile picture.
//	ImageURL     – public URL derived from Image; not persisted.
type User struct {
	ID           uint64    `json:"id"`
	Firstname    string    `json:"firstname"`
	Lastname     string    `json:"lastname"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	OTP          *string   `json:"-"`
	Image        *string   `json:"image"`
	ImageURL     *string   `json:"image_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsActive reports whether the account finished OTP verification.
func (u *User) IsActive() bool { return u.Status == StatusActive }
