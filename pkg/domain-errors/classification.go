package domainerrors

// Classification is the user-facing family of a failure.
type Classification string

const (
	ClassNone                 Classification = ""
	ClassAbort                Classification = "abort"
	ClassTransient            Classification = "transient"
	ClassTerminal             Classification = "terminal"
	ClassPermissionDenied     Classification = "permission_denied"
	ClassConfigurationMissing Classification = "configuration_missing"
	ClassInvalidInput         Classification = "invalid_input"
	ClassInternal             Classification = "internal"
)

// Classify folds a Code into the taxonomy the UI collaborator renders.
func Classify(err error) Classification {
	if err == nil {
		return ClassNone
	}
	switch CodeOf(err) {
	case CodeAborted:
		return ClassAbort
	case CodeTimeout, CodeTransport:
		return ClassTransient
	case CodeTerminal, CodeBusy:
		return ClassTerminal
	case CodePermissionDenied:
		return ClassPermissionDenied
	case CodeConfigMissing:
		return ClassConfigurationMissing
	case CodeBadRequest:
		return ClassInvalidInput
	default:
		return ClassInternal
	}
}

// Retryable reports whether the classification may be retried.
func (c Classification) Retryable() bool {
	return c == ClassTransient
}

// IsError reports whether the classification renders as an error banner.
// Aborts are neutral and transients stay hidden behind progress notifications.
func (c Classification) IsError() bool {
	switch c {
	case ClassNone, ClassAbort, ClassTransient:
		return false
	default:
		return true
	}
}
