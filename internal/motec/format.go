// Package motec reads and writes the MoTeC-family logging formats: the .ld
// binary container, its .ldx XML companion (read-only), and the CSV export
// variant (read-only). All three decode into the same telemetry.Session
// shape.
package motec

import (
	"github.com/apexline-data/delta.report/internal/telemetry"
)

/*
.ld container layout (all integers little-endian):

HEADER (64 bytes at offset 0):
├── 0x00 magic        u32   0x40
├── 0x04 version      u32   format version (currently 420)
├── 0x08 meta ptr     u32   offset of the channel-descriptor table
├── 0x0C data ptr     u32   offset of the sample data block
├── 0x10 event ptr    u32   offset of the metadata block, 0 = absent
├── 0x14 channels     u32   descriptor count
├── 0x18 date         10b   "dd/mm/yyyy"
├── 0x22 time          8b   "hh:mm:ss"
└── 0x2A reserved     22b

METADATA BLOCK (320 bytes at event ptr):
└── driver[64] vehicle[64] venue[64] session[64] comment[64]
    each NUL-terminated and NUL-padded

CHANNEL DESCRIPTOR (80 bytes each, `channels` entries at meta ptr):
├── 0x00 id           u32   unique per file
├── 0x04 data ptr     u32   offset of this channel's raw samples
├── 0x08 count        u32   sample count
├── 0x0C type tag     u8    0x02 unsigned int, 0x03 signed int, 0x07 float
├── 0x0D type size    u8    1/2/4 for ints, 4/8 for floats
├── 0x0E reserved     u16
├── 0x10 frequency    f32   sample rate in Hz
├── 0x14 scale        f32   physical = raw*scale + offset
├── 0x18 offset       f32
├── 0x1C name         32b   NUL-terminated
├── 0x3C unit         12b   NUL-terminated
└── 0x48 reserved      8b

SAMPLE DATA: raw samples per channel at each descriptor's data ptr, in the
declared datatype, little-endian. Byte order and string encoding are fixed;
third-party tooling depends on them being reproduced exactly.
*/
const (
	Magic         = 0x40
	FormatVersion = 420

	headerSize     = 64
	eventBlockSize = 320
	descriptorSize = 80

	headerDateOff = 0x18
	headerTimeOff = 0x22

	descNameLen = 32
	descUnitLen = 12

	dateLayout = "02/01/2006"
	timeLayout = "15:04:05"

	tagUnsigned = 0x02
	tagSigned   = 0x03
	tagFloat    = 0x07
)

// dataTypeFor resolves a (tag, size) pair from a channel descriptor.
func dataTypeFor(tag, size uint8) (telemetry.DataType, bool) {
	switch tag {
	case tagUnsigned:
		switch size {
		case 1:
			return telemetry.U8, true
		case 2:
			return telemetry.U16, true
		case 4:
			return telemetry.U32, true
		}
	case tagSigned:
		switch size {
		case 1:
			return telemetry.S8, true
		case 2:
			return telemetry.S16, true
		case 4:
			return telemetry.S32, true
		}
	case tagFloat:
		switch size {
		case 4:
			return telemetry.F32, true
		case 8:
			return telemetry.F64, true
		}
	}
	return 0, false
}

// tagFor is the inverse of dataTypeFor.
func tagFor(d telemetry.DataType) (tag, size uint8) {
	switch d {
	case telemetry.U8, telemetry.U16, telemetry.U32:
		tag = tagUnsigned
	case telemetry.S8, telemetry.S16, telemetry.S32:
		tag = tagSigned
	case telemetry.F32, telemetry.F64:
		tag = tagFloat
	}
	return tag, uint8(d.Size())
}

// cstring decodes a NUL-terminated fixed-width field.
func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// putCString NUL-pads s into the fixed-width field dst, truncating to leave
// room for the terminator.
func putCString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	n := len(dst) - 1
	if len(s) < n {
		n = len(s)
	}
	copy(dst, s[:n])
}
