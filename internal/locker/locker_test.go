package locker

import (
	"testing"

	"github.com/google/uuid"
)

func TestLockKeyFormats(t *testing.T) {
	accountID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	got := AccountLockKey(accountID)
	want := "plexify:lock:account:11111111-2222-3333-4444-555555555555"
	if got != want {
		t.Errorf("AccountLockKey = %q, want %q", got, want)
	}

	got = LibraryLockKey(accountID, "machine-1", "3")
	want = "plexify:lock:library:11111111-2222-3333-4444-555555555555:machine-1:3"
	if got != want {
		t.Errorf("LibraryLockKey = %q, want %q", got, want)
	}
}

func TestLockKeysDistinguishSections(t *testing.T) {
	accountID := uuid.New()
	a := LibraryLockKey(accountID, "m1", "1")
	b := LibraryLockKey(accountID, "m1", "2")
	c := LibraryLockKey(accountID, "m2", "1")
	if a == b || a == c || b == c {
		t.Errorf("library lock keys collide: %q %q %q", a, b, c)
	}
}
