package model

type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RoleVendor     Role = "VENDOR"
	RoleDriver     Role = "DRIVER"
	RoleDispatcher Role = "DISPATCHER"
	RoleAdmin      Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleVendor, RoleDriver, RoleDispatcher, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// CanActForVendor reports whether the actor may run vendor-side order
// legs (confirm, reject, prepare, ready).
func (a Actor) CanActForVendor() bool {
	return a.Role == RoleVendor || a.Role == RoleAdmin
}

// CanDrive reports whether the actor may run driver-side dispatch legs.
func (a Actor) CanDrive() bool {
	return a.Role == RoleDriver
}

// CanDispatch reports whether the actor may assign drivers to orders.
func (a Actor) CanDispatch() bool {
	return a.Role == RoleDispatcher || a.Role == RoleAdmin
}

// CanModerate reports whether the actor may act on any order regardless
// of ownership.
func (a Actor) CanModerate() bool {
	return a.Role == RoleAdmin || a.Role == RoleDispatcher
}
