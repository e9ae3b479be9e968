package models

import (
	"strings"
	"time"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole accepts exactly the known role names.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Authority is the capability name granted by the role, e.g. ROLE_ADMIN.
func (r Role) Authority() string {
	return "ROLE_" + strings.ToUpper(string(r))
}

// User is an application account. Deleted accounts keep their row with DeletedAt set.
type User struct {
	ID           int64      `bson:"_id" json:"id"`
	Email        string     `bson:"email" json:"email"`
	PasswordHash string     `bson:"password" json:"-"`
	Nickname     string     `bson:"nickname" json:"nickname"`
	Role         Role       `bson:"role" json:"role"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt    *time.Time `bson:"deletedAt,omitempty" json:"-"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}
