package services

import "healthtrack-api/internal/models"

// Caller is the authenticated identity attached to a request.
type Caller struct {
	UID      string // identity provider uid
	DocID    string // local usuarios document id, "" when no profile exists
	Email    string
	Username string
	Role     string
}

func (c *Caller) IsAdmin() bool { return c != nil && c.Role == models.RoleAdmin }

// IsStaff reports whether the caller is an admin or a professional.
func (c *Caller) IsStaff() bool {
	return c != nil && (c.Role == models.RoleAdmin || c.Role == models.RoleProfessional)
}

// IsID reports whether ref is the caller's provider uid or document id.
func (c *Caller) IsID(ref string) bool {
	if c == nil || ref == "" {
		return false
	}
	return ref == c.UID || ref == c.DocID
}

// IsUsername reports whether ref is the caller's username.
func (c *Caller) IsUsername(ref string) bool {
	return c != nil && ref != "" && ref == c.Username
}

// CanActForID reports whether the caller may read or change data keyed by
// the provider uid or document id ref.
func (c *Caller) CanActForID(ref string) bool {
	return c.IsID(ref) || c.IsStaff()
}

// CanActForUsername reports whether the caller may read or change data
// owned by username.
func (c *Caller) CanActForUsername(username string) bool {
	return c.IsUsername(username) || c.IsStaff()
}

func callerFromUser(uid string, u *models.User) *Caller {
	c := &Caller{UID: uid, Role: models.RoleUser}
	if u != nil {
		c.DocID = u.ID
		c.Email = u.Email
		c.Username = u.Username
		if u.Rol != "" {
			c.Role = u.Rol
		}
	}
	return c
}
