package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/usher/internal/jellyfin"
)

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	sessions := []jellyfin.SessionInfo{{ID: "s1", UserName: "ana"}, {ID: "s2"}}

	before := time.Now()
	s.Update(sessions, nil)

	snap := s.Snapshot()
	if !snap.HasSessions || len(snap.Sessions) != 2 || snap.Sessions[0].ID != "s1" {
		t.Fatalf("snapshot sessions = %#v, want 2 sessions", snap.Sessions)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Sessions[0].ID = "changed"
	snap2 := s.Snapshot()
	if snap2.Sessions[0].ID != "s1" {
		t.Fatalf("Snapshot should clone sessions; got id %q want s1", snap2.Sessions[0].ID)
	}
}

func TestStore_EmptySuccessStillHasSessions(t *testing.T) {
	var s Store
	s.Update(nil, nil)
	snap := s.Snapshot()
	if !snap.HasSessions {
		t.Fatal("HasSessions = false, want true after a successful empty poll")
	}
	if len(snap.Sessions) != 0 {
		t.Fatalf("Sessions = %#v, want empty", snap.Sessions)
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.Update([]jellyfin.SessionInfo{{ID: "s1"}}, nil)
	prev := s.Snapshot()

	before := time.Now()
	origErr := errors.New("boom")
	s.Update(nil, origErr)

	snap := s.Snapshot()
	if snap.HasSessions != prev.HasSessions {
		t.Fatalf("HasSessions changed on error: got %v want %v", snap.HasSessions, prev.HasSessions)
	}
	if len(snap.Sessions) != 1 || snap.Sessions[0].ID != "s1" {
		t.Fatalf("sessions changed on error: got %#v want %#v", snap.Sessions, prev.Sessions)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("zero store: failures=%d offline=%v, want 0/false", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update(nil, errors.New("fail 1"))
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false with 1 failure")
	}

	s.Update(nil, errors.New("fail 2"))
	snap = s.Snapshot()
	if !snap.IsOffline() {
		t.Fatal("IsOffline() = false, want true with 2 failures")
	}

	s.Update(nil, errors.New("fail 3"))
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 3 || !snap.IsOffline() {
		t.Fatalf("failures=%d offline=%v, want 3/true", snap.ConsecutiveFailures, snap.IsOffline())
	}

	// Success resets counter
	s.Update([]jellyfin.SessionInfo{{ID: "s1"}}, nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after success", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false after success")
	}
}

func TestSnapshot_NowPlaying(t *testing.T) {
	snap := Snapshot{Sessions: []jellyfin.SessionInfo{
		{ID: "idle"},
		{ID: "busy", NowPlayingItem: &jellyfin.Item{ID: "i1", Name: "Heat"}},
	}}
	got := snap.NowPlaying()
	if len(got) != 1 || got[0].ID != "busy" {
		t.Fatalf("NowPlaying = %#v, want only busy", got)
	}
}
