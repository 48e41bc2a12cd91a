package repo_test

import (
	"testing"

	"github.com/kmarcini/protrack/internal/repo"
)

func TestStarsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	stars := repo.NewStars(env.store, nil)

	starred, err := stars.List("jdoe")
	if err != nil {
		t.Fatalf("List on empty state: %v", err)
	}
	if len(starred) != 0 {
		t.Errorf("expected no stars initially, got %v", starred)
	}

	if err := stars.Set("jdoe", "PRJ-1", true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := stars.Set("jdoe", "PRJ-2", true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// Idempotent.
	if err := stars.Set("jdoe", "PRJ-1", true); err != nil {
		t.Fatalf("repeat Set: %v", err)
	}

	starred, err = stars.List("jdoe")
	if err != nil {
		t.Fatal(err)
	}
	if len(starred) != 2 || !starred["PRJ-1"] || !starred["PRJ-2"] {
		t.Errorf("List = %v", starred)
	}

	// Stars are per user.
	other, err := stars.List("asmith")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("stars leaked between users: %v", other)
	}

	if err := stars.Set("jdoe", "PRJ-1", false); err != nil {
		t.Fatalf("unstar: %v", err)
	}
	starred, err = stars.List("jdoe")
	if err != nil {
		t.Fatal(err)
	}
	if starred["PRJ-1"] || !starred["PRJ-2"] {
		t.Errorf("List after unstar = %v", starred)
	}
}
