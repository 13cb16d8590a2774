package enums

import "fmt"

// EventType names the notifications the ledger emits toward external indexers.
type EventType string

const (
	EventTypeProductRegistered  EventType = "product.registered"
	EventTypeWarehouseUpdated   EventType = "warehouse.updated"
	EventTypeLogisticsUpdated   EventType = "logistics.updated"
	EventTypeDistributorUpdated EventType = "distributor.updated"
	EventTypeRetailerUpdated    EventType = "retailer.updated"
	EventTypeProductSold        EventType = "product.sold"
)

var validEventTypes = []EventType{
	EventTypeProductRegistered,
	EventTypeWarehouseUpdated,
	EventTypeLogisticsUpdated,
	EventTypeDistributorUpdated,
	EventTypeRetailerUpdated,
	EventTypeProductSold,
}

var stageEventTypes = map[Role]EventType{
	RoleWarehouse:   EventTypeWarehouseUpdated,
	RoleLogistics:   EventTypeLogisticsUpdated,
	RoleDistributor: EventTypeDistributorUpdated,
	RoleRetailer:    EventTypeRetailerUpdated,
}

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// StageEventType returns the update event emitted for the given stage role.
func StageEventType(role Role) (EventType, error) {
	if et, ok := stageEventTypes[role]; ok {
		return et, nil
	}
	return "", fmt.Errorf("role %q has no stage update event", role)
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
