package motec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/apexline-data/delta.report/internal/telemetry"
)

// Encode writes the selected channels of a session as a .ld byte stream. A
// nil or empty name list selects every channel, in session order. Channels
// carrying a nonzero ID keep it; the rest get the lowest unused ids, in
// output order. Two channels resolving to the same id fail with
// DuplicateChannelIDError before any bytes are written.
func Encode(w io.Writer, s *telemetry.Session, names []string) error {
	b, err := EncodeBytes(s, names)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(s *telemetry.Session, names []string) ([]byte, error) {
	if len(names) == 0 {
		names = s.ChannelNames()
	}
	channels := make([]*telemetry.Channel, 0, len(names))
	for _, name := range names {
		ch, ok := s.Channel(name)
		if !ok {
			return nil, &UnknownChannelError{Name: name}
		}
		channels = append(channels, ch)
	}

	ids, err := assignIDs(channels)
	if err != nil {
		return nil, err
	}

	// Fixed layout: header, metadata block, descriptor table, then sample
	// data per channel in output order.
	metaPtr := headerSize + eventBlockSize
	dataPtr := metaPtr + len(channels)*descriptorSize
	total := dataPtr
	for _, ch := range channels {
		total += ch.Len() * ch.Type.Size()
	}

	b := make([]byte, total)
	binary.LittleEndian.PutUint32(b[0:4], Magic)
	binary.LittleEndian.PutUint32(b[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(b[8:12], uint32(metaPtr))
	binary.LittleEndian.PutUint32(b[12:16], uint32(dataPtr))
	binary.LittleEndian.PutUint32(b[16:20], headerSize)
	binary.LittleEndian.PutUint32(b[20:24], uint32(len(channels)))
	if !s.Start.IsZero() {
		copy(b[headerDateOff:], s.Start.Format(dateLayout))
		copy(b[headerTimeOff:], s.Start.Format(timeLayout))
	}

	ev := b[headerSize : headerSize+eventBlockSize]
	putCString(ev[0:64], s.Driver)
	putCString(ev[64:128], s.Vehicle)
	putCString(ev[128:192], s.Venue)
	putCString(ev[192:256], "")
	putCString(ev[256:320], s.Comment)

	off := dataPtr
	for i, ch := range channels {
		d := b[metaPtr+i*descriptorSize:]
		tag, size := tagFor(ch.Type)
		binary.LittleEndian.PutUint32(d[0:4], ids[i])
		binary.LittleEndian.PutUint32(d[4:8], uint32(off))
		binary.LittleEndian.PutUint32(d[8:12], uint32(ch.Len()))
		d[12], d[13] = tag, size
		binary.LittleEndian.PutUint32(d[16:20], math.Float32bits(float32(nominalHz(ch))))
		binary.LittleEndian.PutUint32(d[20:24], math.Float32bits(float32(ch.Scale)))
		binary.LittleEndian.PutUint32(d[24:28], math.Float32bits(float32(ch.Offset)))
		putCString(d[28:28+descNameLen], ch.Name)
		putCString(d[60:60+descUnitLen], ch.Unit)

		if err := writeSamples(b[off:], ch); err != nil {
			return nil, err
		}
		off += ch.Len() * ch.Type.Size()
	}
	return b, nil
}

// assignIDs resolves the per-file channel ids: explicit ids first, then the
// lowest unused id for each channel without one.
func assignIDs(channels []*telemetry.Channel) ([]uint32, error) {
	used := make(map[uint32]string, len(channels))
	ids := make([]uint32, len(channels))
	for i, ch := range channels {
		if ch.ID == 0 {
			continue
		}
		if prev, dup := used[ch.ID]; dup {
			return nil, &DuplicateChannelIDError{ID: ch.ID, A: prev, B: ch.Name}
		}
		used[ch.ID] = ch.Name
		ids[i] = ch.ID
	}
	next := uint32(1)
	for i, ch := range channels {
		if ids[i] != 0 {
			continue
		}
		for used[next] != "" {
			next++
		}
		used[next] = ch.Name
		ids[i] = next
		next++
	}
	return ids, nil
}

// nominalHz returns the rate written to the descriptor. Channels decoded
// from irregular sources (CSV) carry Hz 0; the .ld container is
// uniform-rate, so a nominal rate is derived from the sampled span.
func nominalHz(ch *telemetry.Channel) float64 {
	if ch.Hz > 0 {
		return ch.Hz
	}
	if n := ch.Len(); n > 1 {
		start, end := ch.TimeRange()
		if end > start {
			return float64(n-1) / (end - start)
		}
	}
	return 1
}

// writeSamples converts physical values back to the raw encoding. Integer
// encodings invert the scale/offset mapping and round to the nearest
// representable integer with ties away from zero; out-of-range values clamp
// to the type bounds and missing samples (NaN) store as raw zero.
func writeSamples(dst []byte, ch *telemetry.Channel) error {
	scale := ch.Scale
	if scale == 0 {
		return fmt.Errorf("motec: channel %q: zero scale", ch.Name)
	}
	size := ch.Type.Size()
	for i := 0; i < ch.Len(); i++ {
		raw := (ch.Value(i) - ch.Offset) / scale
		if !ch.Type.Float() {
			if math.IsNaN(raw) {
				raw = 0
			} else {
				raw = math.Round(raw) // half away from zero
				if min, max, ok := ch.Type.IntegerRange(); ok {
					if raw < min {
						raw = min
					} else if raw > max {
						raw = max
					}
				}
			}
		}
		putSample(dst[i*size:], raw, ch.Type)
	}
	return nil
}

func putSample(b []byte, raw float64, d telemetry.DataType) {
	switch d {
	case telemetry.U8:
		b[0] = uint8(raw)
	case telemetry.S8:
		b[0] = uint8(int8(raw))
	case telemetry.U16:
		binary.LittleEndian.PutUint16(b, uint16(raw))
	case telemetry.S16:
		binary.LittleEndian.PutUint16(b, uint16(int16(raw)))
	case telemetry.U32:
		binary.LittleEndian.PutUint32(b, uint32(raw))
	case telemetry.S32:
		binary.LittleEndian.PutUint32(b, uint32(int32(raw)))
	case telemetry.F32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(raw)))
	case telemetry.F64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(raw))
	}
}
