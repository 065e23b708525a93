package sync

// Status classifies the result of an engine operation so the interaction
// layer can render a specific explanation, never a generic error.
type Status int

const (
	// StatusSuccess means the operation completed.
	StatusSuccess Status = iota
	// StatusAlreadyExists means the user's calendar already holds a copy.
	StatusAlreadyExists
	// StatusNotRegistered means the user has no registered calendar account.
	StatusNotRegistered
	// StatusCredentialInvalid means the credential could not be refreshed;
	// the user must register again.
	StatusCredentialInvalid
	// StatusNotFound means the shared event or calendar link is missing.
	StatusNotFound
	// StatusUnauthorized means the user may not perform this operation.
	StatusUnauthorized
	// StatusRemoteError means the calendar API rejected or failed the call.
	StatusRemoteError
	// StatusStorageError means a local store write failed before any remote
	// side effect; nothing dangles.
	StatusStorageError
	// StatusPartialFailure means the remote side effect happened but local
	// bookkeeping could not be fully applied.
	StatusPartialFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAlreadyExists:
		return "already exists"
	case StatusNotRegistered:
		return "not registered"
	case StatusCredentialInvalid:
		return "credential invalid"
	case StatusNotFound:
		return "not found"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusRemoteError:
		return "remote error"
	case StatusStorageError:
		return "storage error"
	case StatusPartialFailure:
		return "partial failure"
	default:
		return "unknown"
	}
}

// Outcome is the reported result of one engine operation.
//
// SecondaryErr records a best-effort side action that failed while the
// primary operation still succeeded (a degraded success), so callers can
// assert the primary result independently.
type Outcome struct {
	Status       Status
	Detail       string
	Err          error
	SecondaryErr error

	// LinkOwners is populated by DeleteSharedEvent with the users who hold
	// calendar copies of the deleted event, so the interaction layer can
	// offer each of them the explicit removal affordance. The engine never
	// touches those copies itself.
	LinkOwners []string
}

// Ok reports whether the primary operation succeeded, degraded or not.
func (o Outcome) Ok() bool {
	return o.Status == StatusSuccess || o.Status == StatusAlreadyExists
}

func success(detail string) Outcome {
	return Outcome{Status: StatusSuccess, Detail: detail}
}

func failure(status Status, detail string, err error) Outcome {
	return Outcome{Status: status, Detail: detail, Err: err}
}
