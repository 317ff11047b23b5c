package browser

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jakopako/autoclock/internal/config"
	"github.com/jakopako/autoclock/internal/cookies"
)

// MockPNG is what MockDriver returns as screenshot, the png file signature.
var MockPNG = []byte("\x89PNG\r\n\x1a\n")

// MockDriver serves canned html pages and resolves selectors with goquery.
// Clicking an element runs the action registered for its selector, which is
// how tests script page transitions such as a successful login.
type MockDriver struct {
	// Pages maps urls to html content.
	Pages map[string]string
	// AuthPages is served instead of Pages once the jar holds SessionCookie.
	AuthPages     map[string]string
	SessionCookie string
	Actions       map[string]func(d *MockDriver) error

	URL     string
	Jar     []cookies.Cookie
	Filled  map[string]string
	Clicks  []string
	Idles   int
	Shots   int
	Closed  bool
	Visited []string

	doc *goquery.Document
}

func NewMockDriver(pages map[string]string) *MockDriver {
	return &MockDriver{
		Pages:     pages,
		AuthPages: map[string]string{},
		Actions:   map[string]func(d *MockDriver) error{},
		Filled:    map[string]string{},
	}
}

// Launcher returns a Launcher that always hands out d.
func (d *MockDriver) Launcher() Launcher {
	return func(ctx context.Context, c *config.Config) (Driver, error) {
		return d, nil
	}
}

// Load replaces the current document.
func (d *MockDriver) Load(content string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return err
	}
	d.doc = doc
	return nil
}

func (d *MockDriver) authenticated() bool {
	return d.SessionCookie != "" && slices.ContainsFunc(d.Jar, func(c cookies.Cookie) bool {
		return c.Name == d.SessionCookie
	})
}

func (d *MockDriver) find(selector string) (*goquery.Selection, error) {
	if d.doc == nil {
		return nil, errors.New("no page loaded")
	}
	s := d.doc.Find(selector)
	if s.Length() == 0 {
		return nil, fmt.Errorf("no element matches selector %s", selector)
	}
	return s.First(), nil
}

func (d *MockDriver) SetCookies(ctx context.Context, cs []cookies.Cookie) error {
	d.Jar = append(d.Jar, cs...)
	return nil
}

func (d *MockDriver) Navigate(ctx context.Context, url string) error {
	if p, ok := d.AuthPages[url]; ok && d.authenticated() {
		d.URL = url
		d.Visited = append(d.Visited, url)
		return d.Load(p)
	}
	if p, ok := d.Pages[url]; ok {
		d.URL = url
		d.Visited = append(d.Visited, url)
		return d.Load(p)
	}
	return errors.New("page not found")
}

func (d *MockDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if _, err := d.find(selector); err != nil {
		return fmt.Errorf("%w after %v: %v", ErrTimeout, timeout, err)
	}
	return nil
}

func (d *MockDriver) Fill(ctx context.Context, selector, value string) error {
	s, err := d.find(selector)
	if err != nil {
		return err
	}
	s.SetAttr("value", value)
	d.Filled[selector] = value
	return nil
}

func (d *MockDriver) Click(ctx context.Context, selector string) error {
	if _, err := d.find(selector); err != nil {
		return err
	}
	d.Clicks = append(d.Clicks, selector)
	if action, ok := d.Actions[selector]; ok {
		return action(d)
	}
	return nil
}

func (d *MockDriver) Text(ctx context.Context, selector string) (string, error) {
	s, err := d.find(selector)
	if err != nil {
		return "", err
	}
	return s.Text(), nil
}

func (d *MockDriver) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	d.Idles++
	return nil
}

func (d *MockDriver) Cookies(ctx context.Context) ([]cookies.Cookie, error) {
	return slices.Clone(d.Jar), nil
}

func (d *MockDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if d.doc == nil {
		return nil, errors.New("no page loaded")
	}
	d.Shots++
	return MockPNG, nil
}

// To comply with the Driver interface
func (d *MockDriver) Close() error {
	d.Closed = true
	return nil
}
