package browser

import (
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"outletscraper/internal/scraper"
)

// UserAgent is sent on every page.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// launchFlags are applied to every Chrome instance to reduce automation
// fingerprinting.
var launchFlags = []struct {
	name  flags.Flag
	value string
}{
	{"no-sandbox", ""},
	{"disable-dev-shm-usage", ""},
	{"disable-gpu", ""},
	{"disable-web-security", ""},
	{"disable-features", "VizDisplayCompositor"},
	{"disable-blink-features", "AutomationControlled"},
}

const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Config controls how the browser is launched.
type Config struct {
	Headless bool
	ProxyURL string
	Bin      string // Chrome binary; empty lets the launcher locate or download one
}

// Browser wraps a rod.Browser and the launcher process behind it.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	proxyURL string
}

// New launches Chrome and connects to it.
func New(config Config) (*Browser, error) {
	l := launcher.New().Headless(config.Headless).Delete("enable-automation")
	for _, f := range launchFlags {
		if f.value == "" {
			l = l.Set(f.name)
		} else {
			l = l.Set(f.name, f.value)
		}
	}
	if config.ProxyURL != "" {
		l = l.Proxy(config.ProxyURL)
	}
	if config.Bin != "" {
		l = l.Bin(config.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, &scraper.SessionError{Op: "launch", Err: err}
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, &scraper.SessionError{Op: "connect", Err: err}
	}

	return &Browser{
		browser:  b,
		launcher: l,
		proxyURL: config.ProxyURL,
	}, nil
}

// ProxyURL returns the proxy the browser was launched with.
func (b *Browser) ProxyURL() string {
	return b.proxyURL
}

// NewPage opens a tab with the fixed user agent and webdriver flag hidden.
func (b *Browser) NewPage() (*rod.Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &scraper.SessionError{Op: "new page", Err: err}
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: UserAgent}); err != nil {
		slog.Debug("set user agent failed", slog.Any("error", err))
	}
	if _, err := page.EvalOnNewDocument(hideWebdriver); err != nil {
		slog.Debug("install webdriver shim failed", slog.Any("error", err))
	}
	return page, nil
}

// Close shuts the browser down and kills the launched process.
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
	}
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
