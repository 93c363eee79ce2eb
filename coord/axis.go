package coord

import "errors"

// Axis identifies a single machine axis.
type Axis byte

const (
	X Axis = 'X'
	Y Axis = 'Y'
	Z Axis = 'Z'
)

func (a Axis) String() string { return string(a) }

// Other returns the other horizontal axis. Z has no partner and is returned as-is.
func (a Axis) Other() Axis {
	switch a {
	case X:
		return Y
	case Y:
		return X
	}
	return a
}

// ParseAxis accepts a single axis letter in either case.
func ParseAxis(s string) (Axis, error) {
	if len(s) != 1 {
		return 0, errors.New("invalid axis: " + s)
	}
	switch s[0] {
	case 'X', 'x':
		return X, nil
	case 'Y', 'y':
		return Y, nil
	case 'Z', 'z':
		return Z, nil
	}
	return 0, errors.New("invalid axis: " + s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Axis) MarshalText() ([]byte, error) { return []byte{byte(a)}, nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Axis) UnmarshalText(b []byte) error {
	v, err := ParseAxis(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
