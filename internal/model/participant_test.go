package model

import (
	"errors"
	"testing"
)

func TestParticipantKeyString(t *testing.T) {
	if got := AuthenticatedKey(42).String(); got != "user:42" {
		t.Fatalf("expected user:42, got %q", got)
	}
	if got := GuestKey("Alice").String(); got != "guest:alice" {
		t.Fatalf("expected guest:alice, got %q", got)
	}
	if got := GuestKey("  Bob  ").String(); got != "guest:bob" {
		t.Fatalf("expected trimmed guest:bob, got %q", got)
	}
}

func TestParticipantKeyPredicates(t *testing.T) {
	if !GuestKey("alice").IsGuest() {
		t.Fatal("guest key should report IsGuest")
	}
	if AuthenticatedKey(1).IsGuest() {
		t.Fatal("user key should not report IsGuest")
	}
	if !(ParticipantKey{}).IsZero() {
		t.Fatal("zero key should report IsZero")
	}
	if GuestKey("   ").IsZero() != true {
		t.Fatal("whitespace-only guest name normalizes to the zero key")
	}
	if AuthenticatedKey(1).IsZero() || GuestKey("x").IsZero() {
		t.Fatal("populated keys should not report IsZero")
	}
}

func TestParseParticipantKey(t *testing.T) {
	tests := []struct {
		in   string
		want ParticipantKey
	}{
		{"user:42", AuthenticatedKey(42)},
		{"guest:alice", GuestKey("alice")},
		{"guest:ALICE", GuestKey("alice")},
	}
	for _, tc := range tests {
		got, err := ParseParticipantKey(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: got %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseParticipantKeyInvalid(t *testing.T) {
	for _, in := range []string{"", "user:", "guest:", "user:abc", "user:-1", "user:0", "robot:3", "alice"} {
		if _, err := ParseParticipantKey(in); !errors.Is(err, ErrInvalidParticipantKey) {
			t.Fatalf("parse %q: expected ErrInvalidParticipantKey, got %v", in, err)
		}
	}
}

func TestParticipantKeyRoundTrip(t *testing.T) {
	for _, key := range []ParticipantKey{AuthenticatedKey(7), GuestKey("dana")} {
		parsed, err := ParseParticipantKey(key.String())
		if err != nil {
			t.Fatalf("round trip %v: %v", key, err)
		}
		if parsed != key {
			t.Fatalf("round trip %v: got %v", key, parsed)
		}
	}
}
