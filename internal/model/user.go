package model

// UserDetails is the profile record fetched after authentication. The
// checkout screen prefills its delivery form from it.
type UserDetails struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

// RoleAdmin is the role the back-office requires.
const RoleAdmin = "Admin"
