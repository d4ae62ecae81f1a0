package session

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/hcpdash/internal/ingest"
	"github.com/KaramelBytes/hcpdash/internal/table"
)

func TestCreateStartsLocked(t *testing.T) {
	st := NewStore(time.Hour)
	s := st.Create("provider")
	if s.ID == uuid.Nil {
		t.Fatalf("expected a session id")
	}
	if s.Authenticated {
		t.Fatalf("new session must not be authenticated")
	}
	if len(s.Mapping) != 0 {
		t.Fatalf("expected empty mapping, got %v", s.Mapping)
	}
	if s.Schema != "provider" || st.Len() != 1 {
		t.Fatalf("unexpected schema=%q len=%d", s.Schema, st.Len())
	}
}

func TestUpdateIsVisibleToLaterGets(t *testing.T) {
	st := NewStore(time.Hour)
	s := st.Create("normalized")
	if _, ok := st.Update(s.ID, func(x *Session) { x.Authenticated = true }); !ok {
		t.Fatalf("update of live session failed")
	}
	got, ok := st.Get(s.ID)
	if !ok || !got.Authenticated {
		t.Fatalf("expected authenticated session, got ok=%v %+v", ok, got)
	}
	if _, ok := st.Get(uuid.New()); ok {
		t.Fatalf("unknown id must not resolve")
	}
}

func TestRotateMovesSessionToFreshID(t *testing.T) {
	st := NewStore(time.Hour)
	s := st.Create("provider")
	st.Update(s.ID, func(x *Session) {
		x.AddUploads([]table.Raw{{Source: "a.csv"}}, nil)
	})

	rotated, ok := st.Rotate(s.ID, func(x *Session) { x.Authenticated = true })
	if !ok {
		t.Fatalf("rotate of live session failed")
	}
	if rotated.ID == s.ID {
		t.Fatalf("expected a new id")
	}
	if !rotated.Authenticated || len(rotated.Files) != 1 {
		t.Fatalf("rotation lost state: %+v", rotated)
	}
	if _, ok := st.Get(s.ID); ok {
		t.Fatalf("old id must stop resolving")
	}
	if got, ok := st.Get(rotated.ID); !ok || got.ID != rotated.ID {
		t.Fatalf("new id does not resolve: ok=%v id=%v", ok, got.ID)
	}
	if st.Len() != 1 {
		t.Fatalf("expected one session, got %d", st.Len())
	}
	if _, ok := st.Rotate(uuid.New(), func(*Session) {}); ok {
		t.Fatalf("rotating an unknown id must fail")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	st := NewStore(time.Hour)
	a, b := st.Create(""), st.Create("")
	st.Update(a.ID, func(x *Session) {
		x.AddUploads([]table.Raw{{Source: "a.csv"}}, nil)
	})
	if got, _ := st.Get(b.ID); len(got.Files) != 0 {
		t.Fatalf("uploads leaked across sessions: %v", got.Files)
	}
}

func TestIdleSessionsExpire(t *testing.T) {
	st := NewStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	s := st.Create("")
	now = now.Add(50 * time.Second)
	if _, ok := st.Get(s.ID); !ok {
		t.Fatalf("session expired too early")
	}
	// touching keeps the session alive
	now = now.Add(59 * time.Second)
	if _, ok := st.Get(s.ID); !ok {
		t.Fatalf("touched session expired")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := st.Get(s.ID); ok {
		t.Fatalf("idle session should have expired")
	}
	if st.Len() != 0 {
		t.Fatalf("expected empty store, got %d", st.Len())
	}
}

func TestDelete(t *testing.T) {
	st := NewStore(0)
	s := st.Create("")
	st.Delete(s.ID)
	if _, ok := st.Get(s.ID); ok {
		t.Fatalf("deleted session still resolves")
	}
}

func TestUploadsAndSources(t *testing.T) {
	var s Session
	s.AddUploads(
		[]table.Raw{{Source: "a.xlsx", Sheet: "One"}, {Source: "a.xlsx", Sheet: "Two"}, {Source: "b.csv"}},
		[]*ingest.FileError{{Name: "c.xls", Err: errors.New("boom")}},
	)
	if got := s.Sources(); !reflect.DeepEqual(got, []string{"a.xlsx", "b.csv"}) {
		t.Fatalf("unexpected sources: %v", got)
	}
	if want := []string{"error reading file `c.xls`: boom"}; !reflect.DeepEqual(s.FileErrors, want) {
		t.Fatalf("unexpected file errors: %v", s.FileErrors)
	}

	s.ClearUploads()
	if len(s.Files) != 0 || len(s.FileErrors) != 0 {
		t.Fatalf("clear left files=%v errors=%v", s.Files, s.FileErrors)
	}
}

func TestCheckPassword(t *testing.T) {
	if !CheckPassword("test123", "test123") {
		t.Fatalf("matching password rejected")
	}
	if CheckPassword("test1234", "test123") {
		t.Fatalf("wrong password accepted")
	}
	if CheckPassword("", "") {
		t.Fatalf("empty configured password must reject")
	}
}
