package offset

import "github.com/pkg/errors"

var (
	// ErrNoAxis is returned when neither X nor Y was requested.
	ErrNoAxis = errors.New("no axis selected")

	// ErrBothAxes is returned when X and Y were both requested.
	ErrBothAxes = errors.New("X and Y are mutually exclusive")

	// ErrNotHomed is returned when the printer has no reference frame.
	ErrNotHomed = errors.New("printer must be homed first")

	// ErrInvalidAxis is returned when probing is requested along Z.
	ErrInvalidAxis = errors.New("probe axis must be X or Y")
)

// UsageMessage is written to the report output for invalid axis selections.
const UsageMessage = "G429: nothing to do, specify exactly one of X or Y"

// IsUsage reports if err is a usage error. No motion has been performed
// when it is true.
func IsUsage(err error) bool {
	return errors.Is(err, ErrNoAxis) || errors.Is(err, ErrBothAxes)
}
