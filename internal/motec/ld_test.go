package motec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/apexline-data/delta.report/internal/telemetry"
)

func testLDSession(t *testing.T) *telemetry.Session {
	t.Helper()
	s := telemetry.NewSession()
	s.Driver = "R. Keane"
	s.Vehicle = "Radical SR3"
	s.Venue = "Winton"
	s.Comment = "afternoon run"
	s.Start = time.Date(2026, 4, 11, 14, 30, 5, 0, time.UTC)

	beacon := telemetry.NewChannel("BEACON", "", telemetry.U8, 10)
	speed := telemetry.NewChannel("Ground Speed", "km/h", telemetry.S16, 10)
	speed.Scale = 0.1
	dist := telemetry.NewChannel("Distance", "m", telemetry.F32, 10)

	for i := 0; i < 100; i++ {
		ts := float64(i) / 10
		b := 0.0
		if i == 50 {
			b = 1
		}
		if err := beacon.Append(ts, b); err != nil {
			t.Fatal(err)
		}
		if err := speed.Append(ts, 100+float64(i)*0.5); err != nil {
			t.Fatal(err)
		}
		if err := dist.Append(ts, float64(i)*5); err != nil {
			t.Fatal(err)
		}
	}
	for _, ch := range []*telemetry.Channel{beacon, speed, dist} {
		ch.Seal()
		if err := s.AddChannel(ch); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestRoundTrip(t *testing.T) {
	src := testLDSession(t)

	var buf bytes.Buffer
	if err := Encode(&buf, src, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Driver != src.Driver || got.Vehicle != src.Vehicle ||
		got.Venue != src.Venue || got.Comment != src.Comment {
		t.Errorf("metadata mismatch: %q %q %q %q", got.Driver, got.Vehicle, got.Venue, got.Comment)
	}
	if !got.Start.Equal(src.Start) {
		t.Errorf("start = %v, want %v", got.Start, src.Start)
	}
	if got.Len() != src.Len() {
		t.Fatalf("channel count = %d, want %d", got.Len(), src.Len())
	}

	for _, want := range src.Channels() {
		ch, ok := got.Channel(want.Name)
		if !ok {
			t.Fatalf("channel %q missing after round trip", want.Name)
		}
		if ch.Unit != want.Unit || ch.Type != want.Type || ch.Hz != want.Hz {
			t.Errorf("channel %q: unit/type/hz = %q/%v/%v, want %q/%v/%v",
				want.Name, ch.Unit, ch.Type, ch.Hz, want.Unit, want.Type, want.Hz)
		}
		if ch.Len() != want.Len() {
			t.Fatalf("channel %q: %d samples, want %d", want.Name, ch.Len(), want.Len())
		}
		tol := 1e-6
		if _, _, isInt := want.Type.IntegerRange(); isInt {
			tol = want.Scale / 2
		}
		for i := 0; i < want.Len(); i++ {
			if math.Abs(ch.Value(i)-want.Value(i)) > tol {
				t.Fatalf("channel %q sample %d = %v, want %v (tol %v)",
					want.Name, i, ch.Value(i), want.Value(i), tol)
			}
			if math.Abs(ch.Time(i)-want.Time(i)) > 1e-9 {
				t.Fatalf("channel %q timestamp %d = %v, want %v", want.Name, i, ch.Time(i), want.Time(i))
			}
		}
	}

	// beacon channel auto-designated on decode
	if b, ok := got.Beacon(); !ok || b.Name != "BEACON" {
		t.Errorf("Beacon() = %v, %v; want BEACON channel", b, ok)
	}
}

// headerOnly builds a structurally valid file with zero channels.
func headerOnly() []byte {
	b := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(b[0:4], Magic)
	binary.LittleEndian.PutUint32(b[4:8], FormatVersion)
	return b
}

func TestDecodeHeaderOnly(t *testing.T) {
	s, err := DecodeBytes(headerOnly())
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("channel count = %d, want 0", s.Len())
	}
	if !s.Start.IsZero() {
		t.Errorf("Start = %v, want zero", s.Start)
	}
}

func TestDecodeErrors(t *testing.T) {
	badMagic := headerOnly()
	binary.LittleEndian.PutUint32(badMagic[0:4], 0xDEADBEEF)

	badVersion := headerOnly()
	binary.LittleEndian.PutUint32(badVersion[4:8], 999)

	badClock := headerOnly()
	copy(badClock[headerDateOff:], "31/02/20xx")

	eventPastEnd := headerOnly()
	binary.LittleEndian.PutUint32(eventPastEnd[16:20], 60)

	tests := []struct {
		name       string
		input      []byte
		wantOffset int64
	}{
		{"short file", []byte{0x40, 0x00}, 0},
		{"bad magic", badMagic, 0},
		{"bad version", badVersion, 4},
		{"bad clock", badClock, headerDateOff},
		{"metadata past end", eventPastEnd, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes(tt.input)
			var ferr *FormatError
			if !errors.As(err, &ferr) {
				t.Fatalf("err = %v, want FormatError", err)
			}
			if ferr.Offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", ferr.Offset, tt.wantOffset)
			}
		})
	}
}

func TestDecodeTruncatedSamples(t *testing.T) {
	src := testLDSession(t)
	b, err := EncodeBytes(src, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = DecodeBytes(b[:len(b)-10])
	var terr *TruncatedError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want TruncatedError", err)
	}
	if terr.Channel == "" {
		t.Error("TruncatedError does not name the channel")
	}
}

func TestDecodeChannelMismatch(t *testing.T) {
	src := testLDSession(t)
	b, err := EncodeBytes(src, nil)
	if err != nil {
		t.Fatal(err)
	}

	// rename the second descriptor (S16 speed) to collide with the first
	// channel (U8 beacon)
	metaPtr := int(binary.LittleEndian.Uint32(b[8:12]))
	nameOff := metaPtr + descriptorSize + 28
	putCString(b[nameOff:nameOff+descNameLen], "BEACON")

	_, err = DecodeBytes(b)
	var merr *ChannelMismatchError
	if !errors.As(err, &merr) {
		t.Fatalf("err = %v, want ChannelMismatchError", err)
	}
	if merr.Name != "BEACON" {
		t.Errorf("mismatch name = %q, want BEACON", merr.Name)
	}
}

func TestEncodeUnknownChannel(t *testing.T) {
	src := testLDSession(t)
	_, err := EncodeBytes(src, []string{"Distance", "Oil Temp"})
	var uerr *UnknownChannelError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want UnknownChannelError", err)
	}
	if uerr.Name != "Oil Temp" {
		t.Errorf("unknown name = %q, want Oil Temp", uerr.Name)
	}
}

func TestEncodeSubsetPreservesOrder(t *testing.T) {
	src := testLDSession(t)
	b, err := EncodeBytes(src, []string{"Distance", "BEACON"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	names := got.ChannelNames()
	if len(names) != 2 || names[0] != "Distance" || names[1] != "BEACON" {
		t.Errorf("ChannelNames() = %v, want [Distance BEACON]", names)
	}
}

func TestEncodeDuplicateIDs(t *testing.T) {
	s := telemetry.NewSession()
	for _, name := range []string{"A", "B"} {
		ch := telemetry.NewChannel(name, "", telemetry.F32, 10)
		ch.ID = 7
		_ = ch.Append(0, 1)
		ch.Seal()
		if err := s.AddChannel(ch); err != nil {
			t.Fatal(err)
		}
	}
	_, err := EncodeBytes(s, nil)
	var derr *DuplicateChannelIDError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v, want DuplicateChannelIDError", err)
	}
	if derr.ID != 7 {
		t.Errorf("duplicate id = %d, want 7", derr.ID)
	}
}

func TestEncodeAssignsLowestFreeIDs(t *testing.T) {
	s := telemetry.NewSession()
	with := telemetry.NewChannel("HasID", "", telemetry.F32, 10)
	with.ID = 2
	without := telemetry.NewChannel("NoID", "", telemetry.F32, 10)
	for _, ch := range []*telemetry.Channel{with, without} {
		_ = ch.Append(0, 1)
		ch.Seal()
		if err := s.AddChannel(ch); err != nil {
			t.Fatal(err)
		}
	}

	b, err := EncodeBytes(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	hasID, _ := got.Channel("HasID")
	noID, _ := got.Channel("NoID")
	if hasID.ID != 2 {
		t.Errorf("explicit id = %d, want 2", hasID.ID)
	}
	if noID.ID != 1 {
		t.Errorf("synthesized id = %d, want 1", noID.ID)
	}
}

func TestIntegerNaNStoresAsZero(t *testing.T) {
	s := telemetry.NewSession()
	ch := telemetry.NewChannel("Gap", "", telemetry.U16, 10)
	ch.Offset = 5
	_ = ch.Append(0, math.NaN())
	_ = ch.Append(0.1, 6)
	ch.Seal()
	if err := s.AddChannel(ch); err != nil {
		t.Fatal(err)
	}

	b, err := EncodeBytes(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	out, _ := got.Channel("Gap")
	// raw 0 decodes back through scale/offset
	if out.Value(0) != 5 {
		t.Errorf("missing sample decoded to %v, want offset 5", out.Value(0))
	}
	if out.Value(1) != 6 {
		t.Errorf("sample 1 = %v, want 6", out.Value(1))
	}
}

func TestIntegerClampAndRounding(t *testing.T) {
	s := telemetry.NewSession()
	ch := telemetry.NewChannel("Raw", "", telemetry.S8, 10)
	for i, v := range []float64{1.5, -1.5, 2.4, 500, -500} {
		_ = ch.Append(float64(i)/10, v)
	}
	ch.Seal()
	if err := s.AddChannel(ch); err != nil {
		t.Fatal(err)
	}

	b, err := EncodeBytes(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	out, _ := got.Channel("Raw")
	want := []float64{2, -2, 2, 127, -128} // ties away from zero, clamp at bounds
	for i, w := range want {
		if out.Value(i) != w {
			t.Errorf("sample %d = %v, want %v", i, out.Value(i), w)
		}
	}
}

func TestNominalHzDerived(t *testing.T) {
	s := telemetry.NewSession()
	ch := telemetry.NewChannel("Irregular", "", telemetry.F32, 0)
	for i := 0; i <= 20; i++ {
		_ = ch.Append(float64(i)*0.25, float64(i))
	}
	ch.Seal()
	if err := s.AddChannel(ch); err != nil {
		t.Fatal(err)
	}

	b, err := EncodeBytes(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	out, _ := got.Channel("Irregular")
	if math.Abs(out.Hz-4) > 1e-6 {
		t.Errorf("derived rate = %v, want 4", out.Hz)
	}
}
