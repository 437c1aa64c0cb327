package domain

// UserRole labels a back-office user's function. Roles are attribution only;
// access control lives outside this service.
type UserRole string

const (
	UserRoleAgent      UserRole = "AGENT"
	UserRoleValidator  UserRole = "VALIDATOR"
	UserRoleSupervisor UserRole = "SUPERVISOR"
	UserRoleAdmin      UserRole = "ADMIN"
)

// User is a user-directory entry resolved for transition attribution.
type User struct {
	ID         string
	Username   string
	FullName   string
	Role       UserRole
	AgencyCode string
	Active     bool
}
