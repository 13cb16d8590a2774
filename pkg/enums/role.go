package enums

import "fmt"

// Role represents a supply-chain stage capability a principal can hold.
type Role string

const (
	RoleManufacturer Role = "manufacturer"
	RoleWarehouse    Role = "warehouse"
	RoleLogistics    Role = "logistics"
	RoleDistributor  Role = "distributor"
	RoleRetailer     Role = "retailer"
)

var validRoles = []Role{
	RoleManufacturer,
	RoleWarehouse,
	RoleLogistics,
	RoleDistributor,
	RoleRetailer,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStage reports whether the role corresponds to a post-registration
// journey stage. Manufacturer nodes only appear at registration.
func (r Role) IsStage() bool {
	switch r {
	case RoleWarehouse, RoleLogistics, RoleDistributor, RoleRetailer:
		return true
	}
	return false
}

// NodeType returns the journey node type recorded for this role.
func (r Role) NodeType() NodeType {
	return NodeType(r)
}

// Roles returns every known role in canonical supply-chain order.
func Roles() []Role {
	out := make([]Role, len(validRoles))
	copy(out, validRoles)
	return out
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
