package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

const (
	defaultActionTimeout = 15 * time.Second
	mouseSteps           = 10
)

const chatItemsJS = `Array.from(document.querySelectorAll('` + ChatItemSelector + `')).map(el => {
	const q = s => { const n = el.querySelector(s); return n ? n.innerText.trim() : null; };
	const author = q('` + AuthorSelector + `'), ts = q('` + TimestampSelector + `'), text = q('` + MessageSelector + `');
	return {id: el.id || '', author: author || '', timestamp: ts || '', text: text || '',
		incomplete: author === null || ts === null || text === null};
})`

const scrollBottomJS = `(() => {
	window.scrollTo(0, document.body.scrollHeight);
	const s = document.querySelector('` + ScrollerSelector + `');
	if (s) { s.scrollTop = s.scrollHeight; }
	return true;
})()`

// visibleBoxesJS returns the centre points of chat items inside the viewport.
const visibleBoxesJS = `Array.from(document.querySelectorAll('` + ChatItemSelector + `')).map(el => el.getBoundingClientRect())
	.filter(r => r.top >= 10 && r.left >= 10 &&
		r.bottom <= (window.innerHeight || document.documentElement.clientHeight) - 10 &&
		r.right <= (window.innerWidth || document.documentElement.clientWidth) - 10)
	.map(r => ({x: r.left + r.width / 2, y: r.top + r.height / 2}))`

const hideWebdriverJS = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined}); true`

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChromeBrowser drives a local Chrome through chromedp.
type ChromeBrowser struct {
	headless bool

	mu          sync.Mutex
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	mouse       point
}

// NewChromeBrowser creates a browser; Chrome is launched on Open.
func NewChromeBrowser(headless bool) *ChromeBrowser {
	return &ChromeBrowser{headless: headless}
}

// Open launches Chrome and navigates to url.
func (b *ChromeBrowser) Open(ctx context.Context, url string) error {
	b.mu.Lock()
	launch := b.ctx == nil
	if launch {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", b.headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("enable-automation", false),
			chromedp.Flag("ignore-certificate-errors", true),
			chromedp.WindowSize(383, 600),
		)
		// the session outlives any single call, so it hangs off Background
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
		tabCtx, cancelTab := chromedp.NewContext(allocCtx)
		b.ctx, b.cancelTab, b.cancelAlloc = tabCtx, cancelTab, cancelAlloc
	}
	tab := b.ctx
	b.mu.Unlock()

	// The first Run starts Chrome bound to the context it is given, so it
	// must not carry a timeout or the process dies with it.
	if launch {
		if err := chromedp.Run(tab); err != nil {
			_ = b.Close()
			return fmt.Errorf("launch chrome: %w", err)
		}
	}

	return b.run(ctx, defaultActionTimeout,
		chromedp.Navigate(url),
		chromedp.Evaluate(hideWebdriverJS, nil),
	)
}

// ClickWhenReady waits for the xpath element to be visible and clicks it.
func (b *ChromeBrowser) ClickWhenReady(ctx context.Context, xpath string, timeout time.Duration) error {
	err := b.run(ctx, timeout,
		chromedp.WaitVisible(xpath, chromedp.BySearch),
		chromedp.Click(xpath, chromedp.BySearch),
	)
	return b.setupErr(ctx, xpath, err)
}

// WaitPresent waits until an element matching css exists.
func (b *ChromeBrowser) WaitPresent(ctx context.Context, css string, timeout time.Duration) error {
	err := b.run(ctx, timeout, chromedp.WaitReady(css, chromedp.ByQuery))
	return b.setupErr(ctx, css, err)
}

// ChatItems reads every rendered chat item in one round trip.
func (b *ChromeBrowser) ChatItems(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := b.run(ctx, defaultActionTimeout, chromedp.Evaluate(chatItemsJS, &items)); err != nil {
		return nil, err
	}
	return items, nil
}

// Humanize scrolls by a random amount, pauses and glides the mouse to a
// random visible chat item.
func (b *ChromeBrowser) Humanize(ctx context.Context, rng *rand.Rand) error {
	scroll := rng.Intn(201) - 100
	pause := time.Duration(100+rng.Intn(1900)) * time.Millisecond

	var boxes []point
	err := b.run(ctx, defaultActionTimeout,
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d); true", scroll), nil),
		chromedp.Sleep(pause),
		chromedp.Evaluate(visibleBoxesJS, &boxes),
	)
	if err != nil || len(boxes) == 0 {
		return err
	}

	target := boxes[rng.Intn(len(boxes))]
	b.mu.Lock()
	from := b.mouse
	b.mu.Unlock()

	var moves chromedp.Tasks
	for i := 1; i <= mouseSteps; i++ {
		x := from.X + (target.X-from.X)*float64(i)/mouseSteps
		y := from.Y + (target.Y-from.Y)*float64(i)/mouseSteps
		if i < mouseSteps {
			x += rng.Float64()*20 - 10
			y += rng.Float64()*20 - 10
		}
		moves = append(moves,
			input.DispatchMouseEvent(input.MouseMoved, x, y),
			chromedp.Sleep(time.Duration(10+rng.Intn(40))*time.Millisecond),
		)
	}
	if err := b.run(ctx, defaultActionTimeout, moves); err != nil {
		return err
	}

	b.mu.Lock()
	b.mouse = target
	b.mu.Unlock()
	return nil
}

// ScrollToBottom keeps the newest messages rendered.
func (b *ChromeBrowser) ScrollToBottom(ctx context.Context) error {
	return b.run(ctx, defaultActionTimeout, chromedp.Evaluate(scrollBottomJS, nil))
}

// Close shuts the tab and the Chrome process down.
func (b *ChromeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return nil
	}
	b.cancelTab()
	b.cancelAlloc()
	b.ctx = nil
	return nil
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (b *ChromeBrowser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	b.mu.Lock()
	tab := b.ctx
	b.mu.Unlock()
	if tab == nil {
		return ErrBrowserGone
	}

	cctx, cancel := context.WithTimeout(tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(cctx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func (b *ChromeBrowser) setupErr(ctx context.Context, what string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrSetupTimeout, what)
	}
	return err
}
