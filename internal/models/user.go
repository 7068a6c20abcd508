// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// UserRole is the academic role a user registers with.
type UserRole string

const (
	// RoleInstructor marks teaching staff; instructors may moderate posts.
	RoleInstructor UserRole = "instructor"
	// RoleStudent is the default role.
	RoleStudent UserRole = "student"
)

// ParseUserRole accepts the canonical names case-insensitively, plus the
// Spanish labels used by the first client ("Profesor", "Estudiante").
func ParseUserRole(raw string) (UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "instructor", "profesor":
		return RoleInstructor, true
	case "student", "estudiante", "":
		return RoleStudent, true
	}
	return "", false
}

// User is a registered account. PasswordHash never leaves the process.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:120;not null" json:"name"`
	Username     string    `gorm:"size:60;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Role         UserRole  `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	PasswordHash string    `gorm:"not null" json:"-"`
	AvatarURL    *string   `json:"avatar_url"`
	Title        *string   `gorm:"size:120" json:"title"`
	Bio          *string   `gorm:"type:text" json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// Clone returns a deep copy; the optional profile strings are not shared.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.AvatarURL = cloneString(u.AvatarURL)
	out.Title = cloneString(u.Title)
	out.Bio = cloneString(u.Bio)
	return &out
}

// Public returns a copy of the user with the credential stripped.
func (u *User) Public() *User {
	out := u.Clone()
	if out != nil {
		out.PasswordHash = ""
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// IsInstructor reports whether the user holds the instructor role.
func (u *User) IsInstructor() bool {
	return u != nil && u.Role == RoleInstructor
}

// UserPatch carries a partial profile update; nil fields are left untouched.
type UserPatch struct {
	Name      *string `json:"name"`
	Title     *string `json:"title"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

// Apply merges the non-nil fields of the patch into u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Title != nil {
		u.Title = cloneString(p.Title)
	}
	if p.Bio != nil {
		u.Bio = cloneString(p.Bio)
	}
	if p.AvatarURL != nil {
		u.AvatarURL = cloneString(p.AvatarURL)
	}
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Title == nil && p.Bio == nil && p.AvatarURL == nil
}
