package enums

import "fmt"

// SinkKind selects the event delivery backend wired at startup.
type SinkKind string

const (
	SinkKindLog    SinkKind = "log"
	SinkKindRedis  SinkKind = "redis"
	SinkKindPubSub SinkKind = "pubsub"
)

var validSinkKinds = []SinkKind{
	SinkKindLog,
	SinkKindRedis,
	SinkKindPubSub,
}

// String implements fmt.Stringer.
func (s SinkKind) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SinkKind.
func (s SinkKind) IsValid() bool {
	for _, candidate := range validSinkKinds {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSinkKind converts raw input into a SinkKind.
func ParseSinkKind(value string) (SinkKind, error) {
	for _, candidate := range validSinkKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sink kind %q", value)
}
