package eeprom

// Status is the role recorded in a page header.
type Status uint8

const (
	StatusEmpty Status = iota
	StatusReceiving
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusReceiving:
		return "receiving"
	case StatusActive:
		return "active"
	default:
		return "invalid"
	}
}

// MarshalText renders the status by name in JSON and YAML output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var statusBytes = [...][StatusSize]byte{
	StatusEmpty:     {0xFF, 0xFF},
	StatusReceiving: {0xEE, 0xEE},
	StatusActive:    {0x00, 0x00},
}

func (s Status) encode() []byte {
	b := statusBytes[s]
	return b[:]
}

// decodeStatus never fails: anything between erased and fully cleared,
// including a torn header, is Receiving.
func decodeStatus(b []byte) Status {
	erased, cleared := true, true
	for _, v := range b {
		if v != 0xFF {
			erased = false
		}
		if v != 0x00 {
			cleared = false
		}
	}
	switch {
	case erased:
		return StatusEmpty
	case cleared:
		return StatusActive
	default:
		return StatusReceiving
	}
}
