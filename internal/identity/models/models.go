package models

import "time"

// DefaultKey is the logical key the identifier is stored under in every tier.
const DefaultKey = "OS_DEVICE_ID"

// Side-key suffixes stored next to the identifier. _version tracks the app
// version that last wrote the durable tier; _created_version never changes.
const (
	TimestampSuffix      = "_timestamp"
	VersionSuffix        = "_version"
	CreatedVersionSuffix = "_created_version"
)

// DeviceIdentity is created once per device and only ever re-propagated.
type DeviceIdentity struct {
	ID                   string    `json:"id"`
	CreatedAt            time.Time `json:"createdAt"`
	AppVersionAtCreation string    `json:"appVersion"`
}

// TierName identifies a storage tier.
type TierName string

const (
	TierDurable   TierName = "durable"
	TierSession   TierName = "session"
	TierRedundant TierName = "redundant"
)

// Snapshot is what each tier currently holds for the identifier key. An empty
// value means the tier holds nothing or could not be read.
type Snapshot struct {
	Durable   string `json:"durable"`
	Session   string `json:"session"`
	Redundant string `json:"redundant"`
}

// Value returns the value held by tier.
func (s Snapshot) Value(tier TierName) string {
	switch tier {
	case TierDurable:
		return s.Durable
	case TierSession:
		return s.Session
	case TierRedundant:
		return s.Redundant
	default:
		return ""
	}
}

// Consistent reports whether every tier holds the same non-empty value.
func (s Snapshot) Consistent() bool {
	return s.Durable != "" && s.Durable == s.Session && s.Durable == s.Redundant
}

// Report describes the outcome of a consistency check.
type Report struct {
	Before     Snapshot   `json:"before"`
	Adopted    string     `json:"adopted,omitempty"`
	Source     TierName   `json:"source,omitempty"`
	Repaired   []TierName `json:"repaired,omitempty"`
	VersionSet bool       `json:"versionRefreshed,omitempty"`
}

// Changed reports whether the check rewrote anything.
func (r Report) Changed() bool {
	return len(r.Repaired) > 0 || r.VersionSet
}
