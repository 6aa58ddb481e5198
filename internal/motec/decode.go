package motec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/apexline-data/delta.report/internal/telemetry"
)

// Decode reads a complete .ld byte stream and returns the decoded session.
func Decode(r io.Reader) (*telemetry.Session, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("motec: read: %w", err)
	}
	return DecodeBytes(b)
}

// DecodeBytes decodes a .ld file held in memory. The returned session and
// all its channels are sealed.
func DecodeBytes(b []byte) (*telemetry.Session, error) {
	if len(b) < headerSize {
		return nil, &FormatError{Offset: 0, Msg: fmt.Sprintf("file too short for header: %d bytes", len(b))}
	}
	if magic := binary.LittleEndian.Uint32(b[0:4]); magic != Magic {
		return nil, &FormatError{Offset: 0, Msg: fmt.Sprintf("bad magic 0x%08X", magic)}
	}
	if version := binary.LittleEndian.Uint32(b[4:8]); version != FormatVersion {
		return nil, &FormatError{Offset: 4, Msg: fmt.Sprintf("unsupported version %d", version)}
	}

	metaPtr := int64(binary.LittleEndian.Uint32(b[8:12]))
	eventPtr := int64(binary.LittleEndian.Uint32(b[16:20]))
	count := int64(binary.LittleEndian.Uint32(b[20:24]))

	session := telemetry.NewSession()

	if start, err := parseHeaderClock(b); err != nil {
		return nil, err
	} else {
		session.Start = start
	}

	if eventPtr != 0 {
		if eventPtr+eventBlockSize > int64(len(b)) {
			return nil, &FormatError{Offset: eventPtr, Msg: "metadata block past end of file"}
		}
		ev := b[eventPtr:]
		session.Driver = cstring(ev[0:64])
		session.Vehicle = cstring(ev[64:128])
		session.Venue = cstring(ev[128:192])
		session.Comment = cstring(ev[256:320])
	}

	if count > 0 && (metaPtr < headerSize || metaPtr+count*descriptorSize > int64(len(b))) {
		return nil, &FormatError{Offset: metaPtr, Msg: fmt.Sprintf("descriptor table for %d channels past end of file", count)}
	}

	seen := make(map[string]telemetry.DataType, count)
	for i := int64(0); i < count; i++ {
		off := metaPtr + i*descriptorSize
		ch, err := decodeChannel(b, off, seen)
		if err != nil {
			return nil, err
		}
		if err := session.AddChannel(ch); err != nil {
			return nil, &FormatError{Offset: off, Msg: err.Error()}
		}
	}

	if beacon, ok := session.FindRole(telemetry.RoleLapBeacon); ok {
		_ = session.SetBeacon(beacon.Name)
	}
	return session, nil
}

// parseHeaderClock reads the creation date/time fields. All-zero fields are
// legal (no clock recorded); anything else must parse exactly.
func parseHeaderClock(b []byte) (time.Time, error) {
	date := cstring(b[headerDateOff : headerDateOff+10])
	clock := cstring(b[headerTimeOff : headerTimeOff+8])
	if date == "" && clock == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout+" "+timeLayout, date+" "+clock)
	if err != nil {
		return time.Time{}, &FormatError{Offset: headerDateOff, Msg: fmt.Sprintf("bad creation date/time %q %q", date, clock)}
	}
	return t, nil
}

func decodeChannel(b []byte, off int64, seen map[string]telemetry.DataType) (*telemetry.Channel, error) {
	d := b[off : off+descriptorSize]

	dataPtr := int64(binary.LittleEndian.Uint32(d[4:8]))
	n := int64(binary.LittleEndian.Uint32(d[8:12]))
	tag, size := d[12], d[13]
	freq := float64(math.Float32frombits(binary.LittleEndian.Uint32(d[16:20])))
	scale := float64(math.Float32frombits(binary.LittleEndian.Uint32(d[20:24])))
	offset := float64(math.Float32frombits(binary.LittleEndian.Uint32(d[24:28])))
	name := cstring(d[28 : 28+descNameLen])
	unit := cstring(d[60 : 60+descUnitLen])

	dtype, ok := dataTypeFor(tag, size)
	if !ok {
		return nil, &FormatError{Offset: off + 12, Msg: fmt.Sprintf("channel %q: unknown datatype tag 0x%02X size %d", name, tag, size)}
	}
	if prev, dup := seen[name]; dup {
		if prev != dtype {
			return nil, &ChannelMismatchError{Name: name, A: prev, B: dtype}
		}
		return nil, &FormatError{Offset: off, Msg: fmt.Sprintf("duplicate channel name %q", name)}
	}
	seen[name] = dtype
	if freq <= 0 {
		return nil, &FormatError{Offset: off + 16, Msg: fmt.Sprintf("channel %q: non-positive sample frequency %g", name, freq)}
	}

	want := n * int64(dtype.Size())
	if dataPtr < 0 || dataPtr+want > int64(len(b)) {
		return nil, &TruncatedError{Channel: name, Offset: dataPtr, Want: want, Have: int64(len(b)) - dataPtr}
	}

	ch := telemetry.NewChannel(name, unit, dtype, freq)
	ch.ID = binary.LittleEndian.Uint32(d[0:4])
	ch.Scale = scale
	ch.Offset = offset

	raw := b[dataPtr : dataPtr+want]
	for i := int64(0); i < n; i++ {
		v := readSample(raw[i*int64(dtype.Size()):], dtype)
		// scale/offset conversion into physical units
		if err := ch.Append(float64(i)/freq, v*scale+offset); err != nil {
			return nil, fmt.Errorf("motec: channel %q: %w", name, err)
		}
	}
	ch.Seal()
	return ch, nil
}

func readSample(b []byte, d telemetry.DataType) float64 {
	switch d {
	case telemetry.U8:
		return float64(b[0])
	case telemetry.S8:
		return float64(int8(b[0]))
	case telemetry.U16:
		return float64(binary.LittleEndian.Uint16(b))
	case telemetry.S16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case telemetry.U32:
		return float64(binary.LittleEndian.Uint32(b))
	case telemetry.S32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case telemetry.F32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case telemetry.F64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return math.NaN()
}
