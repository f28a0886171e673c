package data

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUsersCreateAndGet(t *testing.T) {
	c := setupDB(t)
	defer func() { _ = c.Close(context.Background()) }()

	users := NewUsersStore(c.UsersCollection())
	ctx := context.Background()

	email := time.Now().UTC().Format("20060102-150405") + "-it@example.com"
	created, err := users.CreateUser(ctx, email, "Test User", "hashed-password")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if created.ID.IsZero() {
		t.Fatal("expected store-assigned id")
	}

	// lookups normalize the email
	got, err := users.GetUserByEmail(ctx, "  "+email+"  ")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected id %s, got %s", created.ID.Hex(), got.ID.Hex())
	}

	byID, err := users.GetUserByID(ctx, created.ID.Hex())
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.FullName != "Test User" {
		t.Fatalf("unexpected full name %q", byID.FullName)
	}

	exists, err := users.UserExists(ctx, created.ID.Hex())
	if err != nil || !exists {
		t.Fatalf("expected user to exist, got exists=%v err=%v", exists, err)
	}

	// duplicate signup maps to ErrUserExists via the unique email index
	if err := c.CreateIndexes(ctx); err != nil {
		t.Fatalf("CreateIndexes failed: %v", err)
	}
	if _, err := users.CreateUser(ctx, email, "Other Name", "other-hash"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUsersListOthers(t *testing.T) {
	c := setupDB(t)
	defer func() { _ = c.Close(context.Background()) }()

	users := NewUsersStore(c.UsersCollection())
	ctx := context.Background()

	me, err := users.CreateUser(ctx, "me@example.com", "Me", "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := users.CreateUser(ctx, "friend@example.com", "Friend", "hash"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	others, err := users.ListOthers(ctx, me.ID.Hex())
	if err != nil {
		t.Fatalf("ListOthers failed: %v", err)
	}
	if len(others) != 1 {
		t.Fatalf("expected 1 other user, got %d", len(others))
	}
	if others[0].Email != "friend@example.com" {
		t.Fatalf("unexpected user %q in sidebar", others[0].Email)
	}
	if others[0].Password != "" {
		t.Fatal("password hash must be stripped from sidebar results")
	}
}

func TestUsersNotFound(t *testing.T) {
	c := setupDB(t)
	defer func() { _ = c.Close(context.Background()) }()

	users := NewUsersStore(c.UsersCollection())
	ctx := context.Background()

	if _, err := users.GetUserByEmail(ctx, "ghost@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := users.GetUserByID(ctx, "not-a-hex-id"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for malformed id, got %v", err)
	}
	exists, err := users.UserExists(ctx, "not-a-hex-id")
	if err != nil || exists {
		t.Fatalf("malformed id must not exist, got exists=%v err=%v", exists, err)
	}
}
