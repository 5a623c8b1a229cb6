package browser

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/harvest-cli/internal/detect"
)

// ChromeOptions configures a Chrome session.
type ChromeOptions struct {
	DownloadDir string
	Headless    bool
	ExecPath    string
	UserAgent   string
	// PromptWait bounds how long DismissBlockingPrompt waits for a dialog.
	PromptWait time.Duration
	// Poll is the interval for WaitPresent/Activate. Default: 250ms.
	Poll  time.Duration
	Clock detect.Clock
}

// Chrome is a Session backed by a chromedp-controlled browser.
type Chrome struct {
	opts        ChromeOptions
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	log         *zap.Logger

	mu      sync.Mutex
	dialog  *page.EventJavascriptDialogOpening
	dialogC chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewChrome launches a browser and points its downloads at opts.DownloadDir.
// Failure here is a setup failure and aborts the run.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	if opts.Clock == nil {
		opts.Clock = detect.RealClock{}
	}
	if opts.Poll <= 0 {
		opts.Poll = 250 * time.Millisecond
	}
	dir, err := filepath.Abs(opts.DownloadDir)
	if err != nil {
		return nil, eris.Wrap(err, "browser: resolve download dir")
	}
	opts.DownloadDir = dir

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	c := &Chrome{
		opts:        opts,
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		dialogC:     make(chan struct{}, 1),
		log:         zap.L().With(zap.String("component", "browser.chrome")),
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if d, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			c.mu.Lock()
			c.dialog = d
			c.mu.Unlock()
			select {
			case c.dialogC <- struct{}{}:
			default:
			}
		}
	})

	err = chromedp.Run(tabCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(dir).
			WithEventsEnabled(true),
	)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, eris.Wrap(err, "browser: start chrome")
	}

	c.log.Info("browser session started", zap.String("download_dir", dir), zap.Bool("headless", opts.Headless))
	return c, nil
}

// run executes actions on the tab, honouring cancellation of the caller's ctx.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return eris.Wrapf(err, "browser: navigate %s", url)
	}
	return nil
}

func (c *Chrome) poll(ctx context.Context, script string, timeout time.Duration) bool {
	deadline := c.opts.Clock.Now().Add(timeout)
	for {
		var ok bool
		if err := c.run(ctx, chromedp.Evaluate(script, &ok)); err == nil && ok {
			return true
		}
		remaining := deadline.Sub(c.opts.Clock.Now())
		if remaining <= 0 {
			return false
		}
		if err := c.opts.Clock.Sleep(ctx, min(c.opts.Poll, remaining)); err != nil {
			return false
		}
	}
}

func (c *Chrome) WaitPresent(ctx context.Context, selector string, timeout time.Duration) bool {
	return c.poll(ctx, countScript(selector)+" > 0", timeout)
}

func (c *Chrome) Activate(ctx context.Context, selector string, timeout time.Duration) bool {
	if !c.poll(ctx, clickableScript(selector), timeout) {
		c.log.Debug("control not clickable", zap.String("selector", selector))
		return false
	}
	return c.Click(ctx, selector) == nil
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	var found bool
	if err := c.run(ctx, chromedp.Evaluate(clickScript(selector), &found)); err != nil {
		return eris.Wrapf(err, "browser: click %s", selector)
	}
	if !found {
		return eris.Errorf("browser: no element matches %s", selector)
	}
	return nil
}

func (c *Chrome) Labels(ctx context.Context, selector string) ([]Label, error) {
	var out []Label
	if err := c.run(ctx, chromedp.Evaluate(labelsScript(selector), &out)); err != nil {
		return nil, eris.Wrapf(err, "browser: labels %s", selector)
	}
	return out, nil
}

func (c *Chrome) ListEntries(ctx context.Context, selector string) ([]Entry, error) {
	var out []Entry
	if err := c.run(ctx, chromedp.Evaluate(entriesScript(selector), &out)); err != nil {
		return nil, eris.Wrapf(err, "browser: list entries %s", selector)
	}
	return out, nil
}

func (c *Chrome) ScrollIntoView(ctx context.Context, selector string, index int) error {
	var found bool
	if err := c.run(ctx, chromedp.Evaluate(scrollScript(selector, index), &found)); err != nil {
		return eris.Wrapf(err, "browser: scroll %s", selector)
	}
	if !found {
		return eris.Errorf("browser: no element %d for %s", index, selector)
	}
	return nil
}

func (c *Chrome) DismissBlockingPrompt(ctx context.Context) (string, bool, error) {
	c.mu.Lock()
	pending := c.dialog
	c.mu.Unlock()

	if pending == nil && c.opts.PromptWait > 0 {
		timer := time.NewTimer(c.opts.PromptWait)
		select {
		case <-c.dialogC:
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", false, ctx.Err()
		}
		timer.Stop()
		c.mu.Lock()
		pending = c.dialog
		c.mu.Unlock()
	}
	if pending == nil {
		return "", false, nil
	}

	if err := c.run(ctx, page.HandleJavaScriptDialog(true)); err != nil {
		return pending.Message, true, eris.Wrap(err, "browser: dismiss dialog")
	}
	c.mu.Lock()
	c.dialog = nil
	c.mu.Unlock()
	// Drain a signal left by the dialog just handled.
	select {
	case <-c.dialogC:
	default:
	}

	c.log.Info("dismissed blocking prompt", zap.String("text", pending.Message))
	return pending.Message, true, nil
}

func (c *Chrome) DownloadDir() string { return c.opts.DownloadDir }

func (c *Chrome) Teardown() error {
	c.closeOnce.Do(func() {
		c.closeErr = chromedp.Cancel(c.ctx)
		c.cancelTab()
		c.cancelAlloc()
		if c.closeErr != nil {
			c.closeErr = eris.Wrap(c.closeErr, "browser: close chrome")
		}
	})
	return c.closeErr
}

var _ Session = (*Chrome)(nil)
