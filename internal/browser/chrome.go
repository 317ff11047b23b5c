package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/jakopako/autoclock/internal/config"
	"github.com/jakopako/autoclock/internal/cookies"
	"github.com/jakopako/autoclock/internal/log"
)

// the network counts as idle once no request was in flight for this long
const networkQuietPeriod = 500 * time.Millisecond

// ChromeDriver drives a headless chrome through the devtools protocol.
type ChromeDriver struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	actionWait  time.Duration

	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
}

// LaunchChrome is a Launcher starting a local chrome instance.
func LaunchChrome(ctx context.Context, c *config.Config) (Driver, error) {
	d, err := NewChromeDriver(ctx, c.Browser, c.Timeouts.Action)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewChromeDriver starts chrome and opens a tab. actionWait bounds navigation,
// fills and clicks; zero means no bound apart from ctx.
func NewChromeDriver(ctx context.Context, bc config.Browser, actionWait time.Duration) (*ChromeDriver, error) {
	logger := log.LoggerFromContext(ctx).With(slog.String("driver", "chrome"))
	width, height := bc.WindowWidth, bc.WindowHeight
	if width == 0 || height == 0 {
		width, height = 1920, 1080
	}
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(width, height), // init with a desktop view, the portal hides controls on mobile
	)
	if !bc.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if bc.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(bc.ExecPath))
	}
	if bc.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(bc.UserAgent))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	d := &ChromeDriver{
		ctx:          tabCtx,
		cancelTab:    cancelTab,
		cancelAlloc:  cancelAlloc,
		actionWait:   actionWait,
		inflight:     map[network.RequestID]struct{}{},
		lastActivity: time.Now(),
	}
	chromedp.ListenTarget(tabCtx, d.onEvent)

	// the first Run allocates the browser
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if !log.Debug {
				return nil
			}
			protocolVersion, product, revision, userAgent, jsVersion, err := cdpbrowser.GetVersion().Do(ctx)
			if err != nil {
				logger.Warn("failed to get chrome version", slog.String("err", err.Error()))
				return nil
			}
			logger.Debug(fmt.Sprintf("chrome version: protocolVersion=%s, product=%s, revision=%s, userAgent=%s, jsVersion=%s",
				protocolVersion, product, revision, userAgent, jsVersion))
			return nil
		}),
	)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return d, nil
}

func (d *ChromeDriver) onEvent(ev any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		d.inflight[e.RequestID] = struct{}{}
		d.lastActivity = time.Now()
	case *network.EventLoadingFinished:
		delete(d.inflight, e.RequestID)
		d.lastActivity = time.Now()
	case *network.EventLoadingFailed:
		delete(d.inflight, e.RequestID)
		d.lastActivity = time.Now()
	}
}

// run executes actions on the tab, bounded by timeout (if > 0) and ctx.
func (d *ChromeDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(d.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(d.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %v: %v", ErrTimeout, timeout, err)
	}
	return err
}

func (d *ChromeDriver) SetCookies(ctx context.Context, cs []cookies.Cookie) error {
	if len(cs) == 0 {
		return nil
	}
	return d.run(ctx, d.actionWait, network.SetCookies(toCookieParams(cs)))
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, d.actionWait, chromedp.Navigate(url))
}

func (d *ChromeDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return d.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (d *ChromeDriver) Fill(ctx context.Context, selector, value string) error {
	return d.run(ctx, d.actionWait,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (d *ChromeDriver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, d.actionWait, chromedp.Click(selector, chromedp.ByQuery))
}

func (d *ChromeDriver) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := d.run(ctx, d.actionWait, chromedp.Text(selector, &text, chromedp.ByQuery))
	return text, err
}

func (d *ChromeDriver) idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight) == 0 && time.Since(d.lastActivity) >= networkQuietPeriod
}

// WaitNetworkIdle waits until no request has been in flight for 500ms.
func (d *ChromeDriver) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for !d.idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.ctx.Done():
			return d.ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w after %v waiting for network idle", ErrTimeout, timeout)
		case <-ticker.C:
		}
	}
	return nil
}

func (d *ChromeDriver) Cookies(ctx context.Context) ([]cookies.Cookie, error) {
	var ncs []*network.Cookie
	err := d.run(ctx, d.actionWait, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		ncs, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return fromNetworkCookies(ncs), nil
}

func (d *ChromeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	// quality 100 produces a png
	err := d.run(ctx, d.actionWait, chromedp.FullScreenshot(&buf, 100))
	return buf, err
}

func (d *ChromeDriver) Close() error {
	err := chromedp.Cancel(d.ctx)
	d.cancelTab()
	d.cancelAlloc()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func toCookieParams(cs []cookies.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cs))
	for _, c := range cs {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		// session cookies carry a negative expiry
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.UnixMilli(int64(c.Expires * 1000)))
			p.Expires = &expires
		}
		params = append(params, p)
	}
	return params
}

func fromNetworkCookies(ncs []*network.Cookie) []cookies.Cookie {
	cs := make([]cookies.Cookie, 0, len(ncs))
	for _, c := range ncs {
		cs = append(cs, cookies.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return cs
}
