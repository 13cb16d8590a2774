package enums

import "fmt"

// NodeType tags a journey entry with the stage that produced it.
type NodeType string

const (
	NodeTypeManufacturer NodeType = "manufacturer"
	NodeTypeWarehouse    NodeType = "warehouse"
	NodeTypeLogistics    NodeType = "logistics"
	NodeTypeDistributor  NodeType = "distributor"
	NodeTypeRetailer     NodeType = "retailer"
)

var validNodeTypes = []NodeType{
	NodeTypeManufacturer,
	NodeTypeWarehouse,
	NodeTypeLogistics,
	NodeTypeDistributor,
	NodeTypeRetailer,
}

// String implements fmt.Stringer.
func (n NodeType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NodeType.
func (n NodeType) IsValid() bool {
	for _, candidate := range validNodeTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNodeType converts raw input into a NodeType.
func ParseNodeType(value string) (NodeType, error) {
	for _, candidate := range validNodeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid node type %q", value)
}
