package entity

// Role is the kind of account a user holds. Administrators are tracked
// separately through User.IsStaff.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// RoleFromDoctorFlag maps the registration flag onto a role
func RoleFromDoctorFlag(isDoctor bool) Role {
	if isDoctor {
		return RoleDoctor
	}
	return RolePatient
}
