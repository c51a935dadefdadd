package models

import "github.com/spf13/cast"

type Role string

const (
	RoleNone          Role = "none"
	RoleSellerRequest Role = "sellerRequest"
	RoleSeller        Role = "seller"
	RoleAdmin         Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleNone, RoleSellerRequest, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photoURL,omitempty"`
	Role     Role   `json:"role"`
	Created  string `json:"created,omitempty"`
	Updated  string `json:"updated,omitempty"`
}

func UserFromDocument(doc map[string]any) User {
	u := User{
		ID:       cast.ToString(doc["id"]),
		Email:    cast.ToString(doc["email"]),
		Name:     cast.ToString(doc["name"]),
		PhotoURL: cast.ToString(doc["photo_url"]),
		Role:     Role(cast.ToString(doc["role"])),
		Created:  cast.ToString(doc["created"]),
		Updated:  cast.ToString(doc["updated"]),
	}
	if u.Role == "" {
		u.Role = RoleNone
	}
	return u
}

// RoleInfo is the role summary returned to the client for its own account.
type RoleInfo struct {
	Role     Role `json:"role"`
	IsAdmin  bool `json:"isAdmin"`
	IsSeller bool `json:"isSeller"`
}

func (u User) RoleInfo() RoleInfo {
	return RoleInfo{
		Role:     u.Role,
		IsAdmin:  u.Role == RoleAdmin,
		IsSeller: u.Role == RoleSeller,
	}
}
