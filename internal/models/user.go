package models

const RoleAdmin = "admin"

type User struct {
	ID    string `json:"user_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
