package telemetry

import "fmt"

// DataType identifies the stored encoding of a channel's samples. The set is
// closed: every channel resolves to one of these at decode time and keeps it
// for the channel's lifetime. Downstream code only ever sees physical float64
// values; the DataType matters for encoding and for round-trip fidelity.
type DataType uint8

const (
	U8 DataType = iota + 1
	S8
	U16
	S16
	U32
	S32
	F32
	F64
)

// Size returns the on-disk sample width in bytes.
func (d DataType) Size() int {
	switch d {
	case U8, S8:
		return 1
	case U16, S16:
		return 2
	case U32, S32, F32:
		return 4
	case F64:
		return 8
	}
	return 0
}

// Float reports whether samples are stored as IEEE floats rather than
// scaled integers.
func (d DataType) Float() bool {
	return d == F32 || d == F64
}

// Signed reports whether an integer encoding is signed. Float encodings are
// always signed.
func (d DataType) Signed() bool {
	switch d {
	case S8, S16, S32, F32, F64:
		return true
	}
	return false
}

// Valid reports whether d is one of the known datatypes.
func (d DataType) Valid() bool {
	return d >= U8 && d <= F64
}

func (d DataType) String() string {
	switch d {
	case U8:
		return "u8"
	case S8:
		return "s8"
	case U16:
		return "u16"
	case S16:
		return "s16"
	case U32:
		return "u32"
	case S32:
		return "s32"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}
	return fmt.Sprintf("datatype(%d)", uint8(d))
}

// ParseDataType maps the string form back to a DataType. Used by the
// interchange document reader.
func ParseDataType(s string) (DataType, error) {
	for d := U8; d <= F64; d++ {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown datatype %q", s)
}

// IntegerRange returns the representable raw range for integer encodings.
// Float encodings return (0, 0, false).
func (d DataType) IntegerRange() (min, max float64, ok bool) {
	switch d {
	case U8:
		return 0, 255, true
	case S8:
		return -128, 127, true
	case U16:
		return 0, 65535, true
	case S16:
		return -32768, 32767, true
	case U32:
		return 0, 4294967295, true
	case S32:
		return -2147483648, 2147483647, true
	}
	return 0, 0, false
}
