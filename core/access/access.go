package access

import (
	"strings"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles    = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	ReviewerRoles = []string{RoleAdminOwner, RoleAdminPrincipal} // may approve results
	TeacherRoles  = []string{RoleTeacher}
	StudentRoles  = []string{RoleStudent}
	AllRoles      = getAllRoles()
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, TeacherRoles...)
	all = append(all, StudentRoles...)
	return all
}

// IsValidRole reports whether role is one of AllRoles.
func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
}

func (p Principal) RoleStartsWith(prefix string) bool {
	for _, role := range p.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool {
	return p.RoleStartsWith(RoleAdmin)
}

func (p Principal) IsTeacher() bool {
	return p.RoleStartsWith(RoleTeacher)
}

func (p Principal) IsStudent() bool {
	return p.RoleStartsWith(RoleStudent)
}

// HasAnyRole reports whether p holds one of roles. An empty roles list matches everyone.
func (p Principal) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, want := range roles {
		for _, have := range p.Roles {
			if want == have {
				return true
			}
		}
	}
	return false
}

// IsReviewer reports whether p may approve results.
func (p Principal) IsReviewer() bool {
	return p.HasAnyRole(ReviewerRoles...)
}
