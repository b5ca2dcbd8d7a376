// pkg/browser/browser.go
package browser

import (
	"context"
	"errors"
	"os/exec"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"campushours/pkg/log"
)

func defaultExecPath() string {
	if path, _ := exec.LookPath("google-chrome"); path != "" {
		return path
	}
	if path, _ := exec.LookPath("chromium"); path != "" {
		return path
	}
	return "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
}

// Manager owns the one browser process shared by a run. The process is
// created lazily on the first Acquire and reused afterwards; pages are
// per-call tab contexts that callers must close on every exit path.
type Manager struct {
	mutex         sync.Mutex
	execPath      string
	headless      bool
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	browserCtx    context.Context
}

// NewManager configures a manager without launching anything. An empty
// execPath falls back to the first Chrome/Chromium found on PATH.
func NewManager(execPath string, headless bool) *Manager {
	if execPath == "" {
		execPath = defaultExecPath()
	}
	return &Manager{execPath: execPath, headless: headless}
}

// Acquire launches the browser process on first call and is a no-op after.
// A launch failure is fatal for the whole run.
func (m *Manager) Acquire(parent context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.browserCtx != nil {
		return nil
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(
		parent,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.ExecPath(m.execPath),
			chromedp.Flag("headless", m.headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("no-sandbox", true),
		)...,
	)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return err
	}

	m.allocCancel = allocatorCancel
	m.browserCancel = browserCancel
	m.browserCtx = browserCtx
	log.L().Info("browser_started", zap.String("exec", m.execPath), zap.Bool("headless", m.headless))
	return nil
}

// Page is one tab scoped to a single extraction call.
type Page struct {
	Ctx    context.Context
	cancel context.CancelFunc
}

// Close releases the tab. Safe to call more than once.
func (p *Page) Close() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// NewPage opens a fresh tab on the shared browser. Acquire must have
// succeeded first.
func (m *Manager) NewPage() (*Page, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.browserCtx == nil {
		return nil, errors.New("browser not acquired")
	}
	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)
	return &Page{Ctx: tabCtx, cancel: tabCancel}, nil
}

// WithPage runs fn against a fresh tab and guarantees the tab is closed on
// every exit path. A fault inside fn never tears down the shared browser.
func (m *Manager) WithPage(fn func(pageCtx context.Context) error) error {
	page, err := m.NewPage()
	if err != nil {
		return err
	}
	defer page.Close()
	return fn(page.Ctx)
}

// Shutdown terminates the browser process and clears the handle, so a later
// Acquire would launch a new one.
func (m *Manager) Shutdown() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.browserCtx == nil {
		return
	}
	m.browserCancel()
	m.allocCancel()
	m.browserCtx = nil
	m.browserCancel = nil
	m.allocCancel = nil
	log.L().Info("browser_stopped")
}
