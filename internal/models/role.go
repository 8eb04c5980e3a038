package models

// Role values stored in User.Rol.
const (
	RoleUser         = "user"
	RoleProfessional = "profesional"
	RoleAdmin        = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleProfessional, RoleAdmin:
		return true
	}
	return false
}
