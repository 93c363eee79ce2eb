package gcode

type ModalGroup byte

// Only the groups a Marlin host needs to track are distinguished; every
// other command word falls into ModalGroupNonModal.
const (
	ModalGroupNone ModalGroup = iota
	ModalGroupNonModal
	ModalGroupMotion
	ModalGroupDistanceMode
	ModalGroupUnits
	ModalGroupStopping
	ModalGroupToolChange
	ModalGroupFeedRate
)

func (w Word) ModalGroup() ModalGroup {
	switch w.W {
	case 'G':
		switch w.Arg {
		case 0, 1, 2, 3, 38.2, 38.3, 38.4, 38.5:
			return ModalGroupMotion
		case 90, 91:
			return ModalGroupDistanceMode
		case 20, 21:
			return ModalGroupUnits
		}
		return ModalGroupNonModal
	case 'M':
		switch w.Arg {
		case 0, 1, 2, 30:
			return ModalGroupStopping
		}
		return ModalGroupNonModal
	case 'T':
		return ModalGroupToolChange
	case 'F':
		return ModalGroupFeedRate
	}

	return ModalGroupNone
}
