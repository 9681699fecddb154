package model

type Capability string

const (
	CapManageContests      Capability = "contests:manage"
	CapViewRegistrations   Capability = "registrations:view"
	CapExportRegistrations Capability = "registrations:export"
	CapManageUsers         Capability = "users:manage"
	CapRegisterForContests Capability = "contests:register"
)

// RoleCapabilities is the single source of truth for what each role may do.
var RoleCapabilities = map[Role][]Capability{
	RoleUser: {
		CapRegisterForContests,
	},
	RoleAdmin: {
		CapManageContests,
		CapViewRegistrations,
		CapExportRegistrations,
		CapManageUsers,
		CapRegisterForContests,
	},
}

// Can reports whether u holds capability c. A nil user holds nothing.
func (u *User) Can(c Capability) bool {
	if u == nil {
		return false
	}
	for _, granted := range RoleCapabilities[u.Role] {
		if granted == c {
			return true
		}
	}
	return false
}
