package models

import (
	"testing"
	"time"

	"parktrust/internal/geometry"
)

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		allowed  bool
	}{
		{StateFree, StateReserved, true},
		{StateFree, StateConfirmed, false},
		{StateFree, StateFree, true},
		{StateReserved, StateConfirmed, true},
		{StateReserved, StateReserved, false},
		{StateReserved, StateFree, true},
		{StateConfirmed, StateFree, true},
		{StateConfirmed, StateReserved, false},
		{StateConfirmed, StateConfirmed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestReserveConfirmReleaseLifecycle(t *testing.T) {
	now := time.Now()
	s := New("A1", geometry.Point{X: 0, Y: 10})

	if !s.IsFree() || s.TicketID != "" {
		t.Fatal("new slot must be free with no ticket")
	}
	if s.CanConfirm() {
		t.Fatal("free slot must not be confirmable")
	}

	if !s.CanReserve() {
		t.Fatal("free slot must be reservable")
	}
	s.ApplyReserve("tkt-1", now)
	if s.State != StateReserved || s.TicketID != "tkt-1" {
		t.Fatalf("after reserve: state=%s ticket=%s", s.State, s.TicketID)
	}
	if s.CanReserve() {
		t.Fatal("reserved slot must not be reservable again")
	}

	if !s.CanConfirm() {
		t.Fatal("reserved slot must be confirmable")
	}
	s.ApplyConfirm(now)
	if s.State != StateConfirmed {
		t.Fatalf("after confirm: state=%s", s.State)
	}
	if s.TicketID != "tkt-1" {
		t.Fatal("confirm must not change ticket linkage")
	}

	s.ApplyRelease(now)
	if !s.IsFree() || s.TicketID != "" {
		t.Fatalf("after release: state=%s ticket=%q", s.State, s.TicketID)
	}

	// Release is idempotent from Free.
	s.ApplyRelease(now)
	if !s.IsFree() {
		t.Fatal("release from free must stay free")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New("A1", geometry.Point{X: 0, Y: 10})
	c := s.Clone()
	c.ApplyReserve("tkt-1", time.Now())
	if !s.IsFree() {
		t.Fatal("mutating the clone must not affect the original")
	}
}
