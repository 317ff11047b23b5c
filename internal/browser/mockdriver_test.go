package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/jakopako/autoclock/internal/cookies"
)

const (
	loginPage = `<html><body><form>
<input name="username"><input name="password" type="password">
<button type="submit">Login</button></form></body></html>`
	homePage = `<html><body><a title="Logout" href="/logout">Logout</a>
<button name="primary" type="button">  Sign In </button></body></html>`
)

func TestMockDriver(t *testing.T) {
	ctx := context.Background()
	d := NewMockDriver(map[string]string{"https://acme.example.com/": loginPage})
	d.AuthPages["https://acme.example.com/"] = homePage
	d.SessionCookie = "session"
	d.Actions[`button[type="submit"]`] = func(d *MockDriver) error {
		d.Jar = append(d.Jar, cookies.Cookie{Name: "session", Value: "1"})
		return d.Load(homePage)
	}

	if err := d.Navigate(ctx, "https://acme.example.com/missing"); err == nil {
		t.Error("expected error for unknown page")
	}
	if err := d.Navigate(ctx, "https://acme.example.com/"); err != nil {
		t.Fatalf("Navigate returned error: %v", err)
	}
	if err := d.WaitVisible(ctx, `a[title="Logout"]`, 0); !errors.Is(err, ErrTimeout) {
		t.Errorf("WaitVisible on login page error = %v; want ErrTimeout", err)
	}
	if err := d.Fill(ctx, `input[name="username"]`, "jdoe"); err != nil {
		t.Fatalf("Fill returned error: %v", err)
	}
	if d.Filled[`input[name="username"]`] != "jdoe" {
		t.Errorf("Fill not recorded: %v", d.Filled)
	}
	if err := d.Click(ctx, `button[type="submit"]`); err != nil {
		t.Fatalf("Click returned error: %v", err)
	}
	if err := d.WaitVisible(ctx, `a[title="Logout"]`, 0); err != nil {
		t.Errorf("WaitVisible after login returned error: %v", err)
	}
	text, err := d.Text(ctx, `button[name="primary"][type="button"]`)
	if err != nil {
		t.Fatalf("Text returned error: %v", err)
	}
	if text != "  Sign In " {
		t.Errorf("Text = %q; want %q", text, "  Sign In ")
	}

	// a fresh navigation with the session cookie serves the authenticated page
	if err := d.Navigate(ctx, "https://acme.example.com/"); err != nil {
		t.Fatal(err)
	}
	if err := d.WaitVisible(ctx, `a[title="Logout"]`, 0); err != nil {
		t.Errorf("expected authenticated page after navigation, got %v", err)
	}
	if err := d.Click(ctx, "#does-not-exist"); err == nil {
		t.Error("expected error when clicking a missing element")
	}
}

func TestToCookieParams(t *testing.T) {
	params := toCookieParams([]cookies.Cookie{
		{Name: "a", Value: "1", Domain: "example.com", Path: "/", Expires: 1700000000.5, Secure: true, SameSite: "Lax"},
		{Name: "b", Value: "2", Domain: "example.com", Path: "/", Expires: -1},
	})
	if len(params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(params))
	}
	if params[0].Expires == nil {
		t.Fatal("expected expiry on persistent cookie")
	}
	if got := params[0].Expires.Time().UnixMilli(); got != 1700000000500 {
		t.Errorf("Expires = %d; want %d", got, 1700000000500)
	}
	if string(params[0].SameSite) != "Lax" || !params[0].Secure {
		t.Errorf("attributes not converted: %+v", params[0])
	}
	if params[1].Expires != nil {
		t.Errorf("session cookie should not carry an expiry, got %v", params[1].Expires)
	}
}
