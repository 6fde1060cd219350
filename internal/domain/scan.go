package domain

// ScanState is the visible status of a scan session.
type ScanState string

const (
	ScanIdle     ScanState = "idle"
	ScanScanning ScanState = "scanning"
	ScanSuccess  ScanState = "success"
	ScanError    ScanState = "error"
)

// OutcomeKind classifies what happened to a scan event or activation attempt.
type OutcomeKind string

const (
	OutcomeAdded            OutcomeKind = "added"
	OutcomeDuplicate        OutcomeKind = "duplicate"
	OutcomeNotFound         OutcomeKind = "not_found"
	OutcomeInvalidTag       OutcomeKind = "invalid_tag"
	OutcomeReadError        OutcomeKind = "read_error"
	OutcomeIgnored          OutcomeKind = "ignored"
	OutcomeInactive         OutcomeKind = "inactive"
	OutcomeActivated        OutcomeKind = "activated"
	OutcomePermissionDenied OutcomeKind = "permission_denied"
	OutcomeUnsupported      OutcomeKind = "device_unsupported"
	OutcomeDisabled         OutcomeKind = "device_disabled"
	OutcomeInUse            OutcomeKind = "device_in_use"
	OutcomeDeviceError      OutcomeKind = "device_error"
)

// Outcome is reported for every processed scan event.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Candidate string      `json:"candidate,omitempty"`
	Product   *Product    `json:"product,omitempty"`
	Message   string      `json:"message,omitempty"`
}
