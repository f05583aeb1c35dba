package access

// Role is the fixed set of staff and portal roles. The set is closed: session
// tokens carrying anything else are rejected at resolution time.
type Role string

const (
	RoleFrontDesk     Role = "front-desk"
	RoleVeterinarian  Role = "veterinarian"
	RoleVetTechnician Role = "vet-technician"
	RolePharmacist    Role = "pharmacist"
	RoleClinicManager Role = "clinic-manager"
	RoleClinicAdmin   Role = "clinic-admin"
	RoleSystemAdmin   Role = "system-admin"
	RoleOwnerPortal   Role = "owner-portal"
	RoleAuditor       Role = "auditor"
)

// roleRank orders roles for the manager-or-above check. Clinic-scoped roles
// sit below managerRank and are confined to their own clinic; auditors get
// tenant-wide read so they rank with managers.
var roleRank = map[Role]int{
	RoleOwnerPortal:   0,
	RoleFrontDesk:     1,
	RoleVetTechnician: 1,
	RolePharmacist:    1,
	RoleVeterinarian:  2,
	RoleAuditor:       3,
	RoleClinicManager: 3,
	RoleClinicAdmin:   4,
	RoleSystemAdmin:   5,
}

const managerRank = 3

// ParseRole validates a role string from an external source.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleRank[r]
	return r, ok
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// ManagerOrAbove reports whether r sees the whole tenant rather than a single
// clinic.
func (r Role) ManagerOrAbove() bool {
	return roleRank[r] >= managerRank
}
