package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/apexline-data/delta.report/internal/telemetry"
	"github.com/apexline-data/delta.report/internal/timeutil"
)

func openTestStore(t *testing.T) (*Store, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2026, 4, 11, 15, 0, 0, 0, time.UTC))
	st, err := Open(filepath.Join(t.TempDir(), "catalog.db"), clock)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, clock
}

func storedSession(t *testing.T) *telemetry.Session {
	t.Helper()
	s := telemetry.NewSession()
	s.Vehicle = "Radical SR3"
	s.Venue = "Winton"
	s.Driver = "R. Keane"
	s.Start = time.Date(2026, 4, 11, 14, 30, 5, 0, time.UTC)

	speed := telemetry.NewChannel("Ground Speed", "km/h", telemetry.F32, 10)
	if err := speed.Append(0, 100); err != nil {
		t.Fatal(err)
	}
	speed.Seal()
	if err := s.AddChannel(speed); err != nil {
		t.Fatal(err)
	}

	s.SetLaps([]telemetry.Lap{
		{Start: 0, End: 109.837, Complete: true, Sectors: []telemetry.Sector{
			{Index: 1, Start: 0, End: 50, Approximate: true},
			{Index: 2, Start: 50, End: 109.837, Approximate: true},
		}},
		{Start: 109.837, End: 150, Complete: false},
	})
	return s
}

func TestSaveAndGetSession(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()
	s := storedSession(t)

	if err := st.SaveSession(ctx, s, "/data/winton.ld"); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	rec, err := st.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if rec.ID != s.ID || rec.Vehicle != "Radical SR3" || rec.Venue != "Winton" {
		t.Errorf("record = %+v", rec)
	}
	if !rec.Start.Equal(s.Start) {
		t.Errorf("Start = %v, want %v", rec.Start, s.Start)
	}
	if rec.Channels != 1 || rec.LapCount != 2 || rec.SourcePath != "/data/winton.ld" {
		t.Errorf("channels/laps/source = %d/%d/%q", rec.Channels, rec.LapCount, rec.SourcePath)
	}
}

func TestSaveSessionUpsert(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()
	s := storedSession(t)

	if err := st.SaveSession(ctx, s, "a.ld"); err != nil {
		t.Fatal(err)
	}
	s.Comment = "re-segmented"
	s.SetLaps(s.Laps()[:1])
	if err := st.SaveSession(ctx, s, "a.ld"); err != nil {
		t.Fatal(err)
	}

	rec, err := st.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Comment != "re-segmented" {
		t.Errorf("Comment = %q", rec.Comment)
	}
	if rec.LapCount != 1 {
		t.Errorf("LapCount = %d, want 1 after laps replaced", rec.LapCount)
	}

	all, err := st.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("ListSessions returned %d rows, want 1", len(all))
	}
}

func TestListLapsRoundTrip(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()
	s := storedSession(t)

	if err := st.SaveSession(ctx, s, ""); err != nil {
		t.Fatal(err)
	}
	laps, err := st.ListLaps(ctx, s.ID)
	if err != nil {
		t.Fatalf("ListLaps: %v", err)
	}
	want := s.Laps()
	if len(laps) != len(want) {
		t.Fatalf("got %d laps, want %d", len(laps), len(want))
	}
	for i := range want {
		if laps[i].Index != want[i].Index || laps[i].Start != want[i].Start ||
			laps[i].End != want[i].End || laps[i].Complete != want[i].Complete {
			t.Errorf("lap %d = %+v, want %+v", i, laps[i], want[i])
		}
		if len(laps[i].Sectors) != len(want[i].Sectors) {
			t.Fatalf("lap %d has %d sectors, want %d", i, len(laps[i].Sectors), len(want[i].Sectors))
		}
		for j, sec := range want[i].Sectors {
			got := laps[i].Sectors[j]
			if got.Index != sec.Index || got.Start != sec.Start ||
				got.End != sec.End || got.Approximate != sec.Approximate {
				t.Errorf("lap %d sector %d = %+v, want %+v", i, j, got, sec)
			}
		}
	}
}

func TestListSessionsOrder(t *testing.T) {
	st, clock := openTestStore(t)
	ctx := context.Background()

	first := storedSession(t)
	if err := st.SaveSession(ctx, first, ""); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Hour)
	second := storedSession(t)
	if err := st.SaveSession(ctx, second, ""); err != nil {
		t.Fatal(err)
	}

	all, err := st.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d sessions, want 2", len(all))
	}
	if all[0].ID != second.ID {
		t.Errorf("newest session not first: %v", all[0].ID)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()
	s := storedSession(t)

	if err := st.SaveSession(ctx, s, ""); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteSession(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	if _, err := st.GetSession(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession after delete = %v, want ErrNotFound", err)
	}
	laps, err := st.ListLaps(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(laps) != 0 {
		t.Errorf("laps survived session delete: %+v", laps)
	}

	if err := st.DeleteSession(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting unknown session = %v, want ErrNotFound", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	st, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	s := storedSession(t)
	if err := st.SaveSession(context.Background(), s, ""); err != nil {
		t.Fatal(err)
	}
	st.Close()

	// reopening an already-migrated catalog must not fail or lose rows
	st, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	if _, err := st.GetSession(context.Background(), s.ID); err != nil {
		t.Errorf("GetSession after reopen: %v", err)
	}
}
