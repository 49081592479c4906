package domain

import "errors"

// Request validation errors. All of them are detected before any mutation.
var (
	// ErrOutOfBounds is returned when a coordinate lies outside [0, N).
	ErrOutOfBounds = errors.New("coordinate out of bounds")

	// ErrInvalidValue is returned for cell values outside {-1, 0, 1}.
	ErrInvalidValue = errors.New("invalid cell value")

	// ErrInvalidSize is returned for non-positive (or over-limit) grid sizes.
	ErrInvalidSize = errors.New("invalid grid size")

	// ErrInvalidSeedMode is returned for unknown seed modes.
	ErrInvalidSeedMode = errors.New("invalid seed mode")

	// ErrInvalidThreshold is returned for thresholds outside [MinThreshold, MaxThreshold].
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidSnapshot is returned when an imported snapshot fails validation.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrInvalidSnapshotID is returned for snapshot ids no store can address.
	ErrInvalidSnapshotID = errors.New("invalid snapshot id")
)

// ErrSnapshotNotFound is returned when a snapshot ID cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrExperimentNotFound is returned when a preset name is not registered.
var ErrExperimentNotFound = errors.New("experiment not found")

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrOutOfBounds, "OutOfBounds"},
	{ErrInvalidValue, "InvalidValue"},
	{ErrInvalidSize, "InvalidSize"},
	{ErrInvalidSeedMode, "InvalidSeedMode"},
	{ErrInvalidThreshold, "InvalidThreshold"},
	{ErrInvalidSnapshotID, "InvalidSnapshotID"},
	{ErrInvalidSnapshot, "InvalidSnapshot"},
	{ErrSnapshotNotFound, "SnapshotNotFound"},
	{ErrExperimentNotFound, "ExperimentNotFound"},
}

// ErrorKind returns the taxonomy name of err ("OutOfBounds", "InvalidValue", ...),
// or "Internal" when err does not wrap a known sentinel.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}

// IsValidation reports whether err is a request-validation error.
func IsValidation(err error) bool {
	switch ErrorKind(err) {
	case "OutOfBounds", "InvalidValue", "InvalidSize", "InvalidSeedMode", "InvalidThreshold", "InvalidSnapshot", "InvalidSnapshotID":
		return true
	}
	return false
}

// IsNotFound reports whether err signals a missing snapshot or experiment.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound) || errors.Is(err, ErrExperimentNotFound)
}
