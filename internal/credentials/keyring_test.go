package credentials

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func fakeKeyring(t *testing.T) map[string]string {
	t.Helper()
	store := map[string]string{}
	origSet, origGet, origDelete := keyringSet, keyringGet, keyringDelete
	t.Cleanup(func() {
		keyringSet, keyringGet, keyringDelete = origSet, origGet, origDelete
	})
	keyringSet = func(service, user, secret string) error {
		store[service+"/"+user] = secret
		return nil
	}
	keyringGet = func(service, user string) (string, error) {
		s, ok := store[service+"/"+user]
		if !ok {
			return "", keyring.ErrNotFound
		}
		return s, nil
	}
	keyringDelete = func(service, user string) error {
		if _, ok := store[service+"/"+user]; !ok {
			return keyring.ErrNotFound
		}
		delete(store, service+"/"+user)
		return nil
	}
	return store
}

func TestKeyringRoundTrip(t *testing.T) {
	store := fakeKeyring(t)
	k := NewKeyring("autoclock", "jdoe")

	if err := k.Set("s3cret"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if store["autoclock/jdoe"] != "s3cret" {
		t.Errorf("secret not stored under service/user, store: %v", store)
	}
	got, err := k.Get()
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("Get() = %q; want %q", got, "s3cret")
	}
	if err := k.Delete(); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := k.Get(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v; want ErrNotFound", err)
	}
}

func TestKeyringDeleteMissing(t *testing.T) {
	fakeKeyring(t)
	if err := NewKeyring("autoclock", "nobody").Delete(); err != nil {
		t.Errorf("Delete of a missing secret returned %v; want nil", err)
	}
}

func TestKeyringSetEmpty(t *testing.T) {
	fakeKeyring(t)
	if err := NewKeyring("autoclock", "jdoe").Set(""); err == nil {
		t.Error("expected error when storing an empty password")
	}
}
