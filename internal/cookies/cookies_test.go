package cookies

import (
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

var testCookies = []Cookie{
	{Name: "access_token", Value: "abc<>&123", Domain: "acme.greythr.com", Path: "/", Expires: 1767225600, HTTPOnly: true, Secure: true, SameSite: "Lax"},
	{Name: "PLAY_SESSION", Value: "xyz", Domain: ".greythr.com", Path: "/", Expires: -1},
	{Name: "locale", Value: "en", Domain: "acme.greythr.com", Path: "/v3", Expires: 1767225600, SameSite: "Strict"},
}

func TestRoundTrip(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "cookies.json")
	if err := s.Save(testCookies); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(got, testCookies) {
		t.Errorf("Load() = %+v; want %+v", got, testCookies)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "cookies.json")
	if err := s.Save(testCookies); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(testCookies[:1]); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "access_token" {
		t.Errorf("expected only the last saved cookie set, got %+v", got)
	}
}

func TestLoadMissingOrMalformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "broken.json", []byte(`[{"name": "a",`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "object.json", []byte(`{"name": "a"}`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "empty.json", []byte{}, 0600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"missing.json", "broken.json", "object.json", "empty.json"} {
		got, err := NewStore(fs, path).Load()
		if err != nil {
			t.Errorf("Load(%s) returned error: %v", path, err)
		}
		if len(got) != 0 {
			t.Errorf("Load(%s) = %+v; want no cookies", path, got)
		}
	}
}

func TestReadOnlyFs(t *testing.T) {
	s := NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "cookies.json")
	if err := s.Save(testCookies); err == nil {
		t.Error("expected error when saving to a read-only file system")
	}
}
