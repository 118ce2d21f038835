package entity

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Identity is a user as reported by the hosted identity service.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type Session struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	Identity
	Role string `json:"role"`
}

func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
