package sentinel

import "errors"

// Sentinel errors for storage facts. Identity tiers return these (optionally
// wrapped) so the resolver can tell "nothing stored" from "tier broken":
// - ErrNotFound: the tier holds no value for the key
// - ErrUnavailable: the tier cannot be read or written right now
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
