package model

import (
	"regexp"
	"time"
)

// Roles stored in the users.role column. ADMIN unlocks the /v1/admin
// endpoints; everyone else is a regular USER.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like a deliverable address. The
// check is intentionally loose; the activation mail is the real proof.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool { return s == RoleUser || s == RoleAdmin }

// Avatar is a pointer to an asset on the external media host. This
// service only stores the reference; uploads happen elsewhere.
type Avatar struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// CourseRef links a user to a course they are entitled to.
type CourseRef struct {
	CourseID string `json:"course_id"`
}

// User represents a durable account record as stored in the `users`
// table (plus the `user_courses` entitlement rows).
//
// PasswordHash is excluded from JSON on purpose: the same struct is
// returned in API responses and serialized into the redis session
// snapshot, and the hash must appear in neither. Repository methods
// that need it say so in their name.
type User struct {
	ID           uint64      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Avatar       Avatar      `json:"avatar"`
	Role         string      `json:"role"`
	IsVerified   bool        `json:"is_verified"`
	Courses      []CourseRef `json:"courses"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// PendingRegistration is a signup that has not been confirmed yet. It
// is never written to the database; it lives only inside a signed
// activation token, so the 5-minute window expires by itself. The
// password travels in plain form because hashing happens when the
// durable record is created.
type PendingRegistration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
