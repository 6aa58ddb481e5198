package motec

import (
	"fmt"

	"github.com/apexline-data/delta.report/internal/telemetry"
)

// FormatError reports an unrecognized or corrupt container: bad magic,
// unsupported version, pointers outside the buffer, malformed companion
// text. Offset is the byte position the reader was looking at, -1 when the
// failure is not byte-addressable (CSV/XML).
type FormatError struct {
	Offset int64
	Msg    string
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("motec: invalid format: %s", e.Msg)
	}
	return fmt.Sprintf("motec: invalid format at offset %d: %s", e.Offset, e.Msg)
}

// TruncatedError reports a channel whose declared sample bytes run past the
// end of the buffer.
type TruncatedError struct {
	Channel string
	Offset  int64
	Want    int64 // bytes the descriptor declares
	Have    int64 // bytes remaining in the buffer
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("motec: channel %q truncated at offset %d: declared %d bytes, %d available",
		e.Channel, e.Offset, e.Want, e.Have)
}

// ChannelMismatchError reports two channel descriptors sharing a name but
// declaring conflicting datatypes.
type ChannelMismatchError struct {
	Name string
	A, B telemetry.DataType
}

func (e *ChannelMismatchError) Error() string {
	return fmt.Sprintf("motec: channel %q declared twice with conflicting datatypes %s and %s",
		e.Name, e.A, e.B)
}

// UnknownChannelError reports an encode request naming a channel the session
// does not contain.
type UnknownChannelError struct {
	Name string
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("motec: unknown channel %q", e.Name)
}

// DuplicateChannelIDError reports two channels that would share a numeric id
// in the output file. Ids must be unique per file.
type DuplicateChannelIDError struct {
	ID   uint32
	A, B string
}

func (e *DuplicateChannelIDError) Error() string {
	return fmt.Sprintf("motec: channels %q and %q share id %d", e.A, e.B, e.ID)
}
