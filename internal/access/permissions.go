package access

// Resource and action names used across handlers. Wildcard matches either
// side of a permission pair.
const (
	Wildcard = "*"

	ResourceAppointments  = "appointments"
	ResourcePatients      = "patients"
	ResourceOwners        = "owners"
	ResourceClinicalNotes = "clinical-notes"
	ResourceInventory     = "inventory"
	ResourceInvoices      = "invoices"
	ResourceUsers         = "users"
	ResourceClinics       = "clinics"
	ResourceTenants       = "tenants"
	ResourceReports       = "reports"
	ResourceSettings      = "settings"

	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Permission is one (resource, action) grant.
type Permission struct {
	Resource string
	Action   string
}

// grants is the static permission table. It is turned into a lookup set once
// at package init and never modified afterwards. Only system-admin holds the
// full ("*", "*") wildcard.
var grants = map[Role][]Permission{
	RoleSystemAdmin: {
		{Wildcard, Wildcard},
	},
	RoleClinicAdmin: {
		{ResourceAppointments, Wildcard},
		{ResourcePatients, Wildcard},
		{ResourceOwners, Wildcard},
		{ResourceClinicalNotes, ActionRead},
		{ResourceInventory, Wildcard},
		{ResourceInvoices, Wildcard},
		{ResourceUsers, Wildcard},
		{ResourceClinics, Wildcard},
		{ResourceReports, ActionRead},
		{ResourceSettings, Wildcard},
	},
	RoleClinicManager: {
		{ResourceAppointments, Wildcard},
		{ResourcePatients, Wildcard},
		{ResourceOwners, Wildcard},
		{ResourceInventory, Wildcard},
		{ResourceInvoices, Wildcard},
		{ResourceUsers, ActionRead},
		{ResourceReports, ActionRead},
		{ResourceSettings, ActionRead},
		{ResourceSettings, ActionUpdate},
	},
	RoleVeterinarian: {
		{ResourceAppointments, ActionCreate},
		{ResourceAppointments, ActionRead},
		{ResourceAppointments, ActionUpdate},
		{ResourcePatients, ActionRead},
		{ResourcePatients, ActionUpdate},
		{ResourceOwners, ActionRead},
		{ResourceClinicalNotes, Wildcard},
		{ResourceInventory, ActionRead},
		{ResourceInvoices, ActionRead},
	},
	RoleVetTechnician: {
		{ResourceAppointments, ActionRead},
		{ResourceAppointments, ActionUpdate},
		{ResourcePatients, ActionRead},
		{ResourcePatients, ActionUpdate},
		{ResourceOwners, ActionRead},
		{ResourceClinicalNotes, ActionCreate},
		{ResourceClinicalNotes, ActionRead},
		{ResourceClinicalNotes, ActionUpdate},
		{ResourceInventory, ActionRead},
		{ResourceInventory, ActionUpdate},
	},
	RolePharmacist: {
		{ResourceInventory, Wildcard},
		{ResourcePatients, ActionRead},
		{ResourceClinicalNotes, ActionRead},
		{ResourceInvoices, ActionRead},
	},
	RoleFrontDesk: {
		{ResourceAppointments, ActionCreate},
		{ResourceAppointments, ActionRead},
		{ResourceAppointments, ActionUpdate},
		{ResourcePatients, ActionCreate},
		{ResourcePatients, ActionRead},
		{ResourcePatients, ActionUpdate},
		{ResourceOwners, ActionCreate},
		{ResourceOwners, ActionRead},
		{ResourceOwners, ActionUpdate},
		{ResourceInvoices, ActionCreate},
		{ResourceInvoices, ActionRead},
	},
	RoleOwnerPortal: {
		{ResourceAppointments, ActionRead},
		{ResourcePatients, ActionRead},
		{ResourceInvoices, ActionRead},
	},
	RoleAuditor: {
		{Wildcard, ActionRead},
	},
}

var permissionTable map[Role]map[Permission]struct{}

func init() {
	permissionTable = make(map[Role]map[Permission]struct{}, len(grants))
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		permissionTable[role] = set
	}
}
