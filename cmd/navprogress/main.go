package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sigman78/navprogress/internal/navprogress"
	"github.com/sigman78/navprogress/internal/termdoc"
	"github.com/sigman78/navprogress/internal/tuidoc"
)

// samplePage is used when no -page file is given. It mixes qualifying
// in-app links with every skip case the interceptor knows about.
const samplePage = `<!DOCTYPE html>
<html>
<head><title>navprogress demo</title></head>
<body>
  <nav>
    <a href="/products">Products</a>
    <a href="/pricing">Pricing</a>
    <a href="/docs/getting-started">Docs</a>
    <a href="#features">Features</a>
    <a href="https://status.example.test/">Status</a>
    <a href="https://example.test/careers" target="_blank">Careers</a>
    <a href="mailto:hello@example.test">Contact</a>
  </nav>
  <main>
    <p>Simulated clicks drive the top progress bar.</p>
  </main>
</body>
</html>
`

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: navprogress [page.html] [options]

Simulates a single-page-app browsing session over an HTML page and renders
the navigation progress indicator while simulated fetches are in flight.

Arguments:
  page.html               HTML page to load (same as -page)

Options:
  -page string            HTML page to load (default: built-in sample)
  -url string             Document start URL (default: https://example.test/home)
  -clicks int             Link activations to simulate (default: one per anchor)
  -latency duration       Simulated fetch latency (default: 400ms)
  -workers int            Concurrent fetch workers (default: 3)
  -click-rate int         Click activations per minute (default: 60)
  -renderer string        Renderer: auto|term|tui|headless (default: auto)
  -color string           Bar color (default: #29d)
  -height int             Bar height in pixels (default: 3)
  -zindex int             Bar z-index (default: 1600)
  -initial float          Starting fraction for a cycle (default: 0.08)
  -speed duration         Width transition duration (default: 300ms)
  -trickle-speed duration Interval between automatic increments (default: 200ms)
  -no-trickle             Disable automatic increments
  -easing string          Transition timing function (default: ease)
  -debug                  Enable verbose debug logging
  -version                Print version and exit
  -h / -help              Show this help and exit
`)
}

func main() {
	// Use ContinueOnError so we can intercept ErrHelp and unknown-flag errors
	// and control the exit code ourselves.
	fs := flag.NewFlagSet("navprogress", flag.ContinueOnError)
	fs.Usage = usage

	var (
		pageFlag     string
		urlFlag      string
		clicksFlag   int
		latencyFlag  time.Duration
		workersFlag  int
		clickRate    int
		rendererFlag string
		colorFlag    string
		heightFlag   int
		zIndexFlag   int
		initialFlag  float64
		speedFlag    time.Duration
		trickleSpeed time.Duration
		noTrickle    bool
		easingFlag   string
		debug        bool
	)

	fs.StringVar(&pageFlag, "page", "", "HTML page to load")
	fs.StringVar(&urlFlag, "url", "https://example.test/home", "Document start URL")
	fs.IntVar(&clicksFlag, "clicks", 0, "Link activations to simulate")
	fs.DurationVar(&latencyFlag, "latency", 400*time.Millisecond, "Simulated fetch latency")
	fs.IntVar(&workersFlag, "workers", 3, "Concurrent fetch workers")
	fs.IntVar(&clickRate, "click-rate", 60, "Click activations per minute")
	fs.StringVar(&rendererFlag, "renderer", "auto", "Renderer: auto|term|tui|headless")
	fs.StringVar(&colorFlag, "color", "#29d", "Bar color")
	fs.IntVar(&heightFlag, "height", 3, "Bar height in pixels")
	fs.IntVar(&zIndexFlag, "zindex", 1600, "Bar z-index")
	fs.Float64Var(&initialFlag, "initial", 0.08, "Starting fraction for a cycle")
	fs.DurationVar(&speedFlag, "speed", 300*time.Millisecond, "Width transition duration")
	fs.DurationVar(&trickleSpeed, "trickle-speed", 200*time.Millisecond, "Interval between automatic increments")
	fs.BoolVar(&noTrickle, "no-trickle", false, "Disable automatic increments")
	fs.StringVar(&easingFlag, "easing", "ease", "Transition timing function")
	fs.BoolVar(&debug, "debug", false, "Enable verbose debug logging")

	// Handle -version / -h / -help before the flag parser so we control the exit code.
	for _, a := range os.Args[1:] {
		if a == "-version" || a == "--version" {
			fmt.Printf("navprogress %s (commit %s, built %s)\n", version, commit, date)
			os.Exit(0)
		}
		if a == "-h" || a == "-help" || a == "--help" {
			usage()
			os.Exit(0)
		}
	}

	// Extract a leading positional page argument before flag parsing so that
	// "navprogress page.html -renderer tui" works.
	args := os.Args[1:]
	var positionalPage string
	if len(args) > 0 && args[0] != "" && !strings.HasPrefix(args[0], "-") {
		positionalPage = args[0]
		args = args[1:]
	}

	if err := fs.Parse(args); err != nil {
		// Unknown/malformed flag: fs already printed the error message
		os.Exit(2)
	}

	if pageFlag == "" {
		pageFlag = positionalPage
	}

	if workersFlag <= 0 {
		fmt.Fprintln(os.Stderr, "error: -workers must be greater than 0")
		os.Exit(1)
	}
	if clickRate <= 0 {
		fmt.Fprintln(os.Stderr, "error: -click-rate must be greater than 0")
		os.Exit(1)
	}
	rendererFlag = strings.ToLower(rendererFlag)
	switch rendererFlag {
	case "auto", "term", "tui", "headless":
	default:
		fmt.Fprintln(os.Stderr, "error: -renderer must be auto, term, tui or headless")
		os.Exit(1)
	}

	page, err := loadPage(pageFlag, urlFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := navprogress.Config{
		Color:           colorFlag,
		InitialPosition: initialFlag,
		TrickleSpeed:    trickleSpeed,
		Height:          heightFlag,
		Trickle:         !noTrickle,
		Easing:          easingFlag,
		Speed:           speedFlag,
		ZIndex:          zIndexFlag,
	}

	var doc navprogress.Document
	switch rendererFlag {
	case "headless":
		doc = page
	case "tui":
		doc = tuidoc.New(page)
	case "term":
		doc = termdoc.New(page, termdoc.Options{ForceTTY: true})
	default:
		doc = termdoc.New(page, termdoc.Options{})
	}

	engine := navprogress.NewEngine(cfg, doc, navprogress.WallClock{})
	hist := navprogress.NewMemHistory(page)
	interceptor := navprogress.NewInterceptor(engine, doc, hist)
	interceptor.Attach()

	if err := simulate(page, hist, clicksFlag, latencyFlag, workersFlag, clickRate, debug); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	interceptor.Detach()
	engine.Close()

	entries := hist.Entries()
	fmt.Printf("Committed %d navigation(s):\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s\n", e.URL)
	}
}

// loadPage parses the page file, or the built-in sample when path is empty.
func loadPage(path, loc string) (*navprogress.HTMLDocument, error) {
	if path == "" {
		return navprogress.ParseDocument(strings.NewReader(samplePage), loc)
	}
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = f.Close() }()
	doc, err := navprogress.ParseDocument(f, loc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return doc, nil
}

// simulate dispatches click activations over the page's anchors at the
// configured rate, playing the SPA router: every qualifying navigation runs
// a simulated fetch on the worker pool and then commits via history push,
// which is what completes the indicator cycle.
func simulate(page *navprogress.HTMLDocument, hist *navprogress.MemHistory, clicks int, latency time.Duration, workers, perMinute int, debug bool) error {
	links := page.Links()
	if len(links) == 0 {
		fmt.Println("No links on page.")
		return nil
	}
	if clicks <= 0 {
		clicks = len(links)
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	limiter := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
	g, ctx := errgroup.WithContext(context.Background())

	for n := 0; n < clicks; n++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		link := links[n%len(links)]
		loc := page.Location()
		if debug {
			log.Printf("click %q on %s", link.Href, loc)
		}

		page.Click(navprogress.Activation{Target: link.Node})

		// Router side: only qualifying navigations get a fetch + commit.
		target, ok := routeTarget(link, loc)
		if !ok {
			if debug {
				log.Printf("skip %q", link.Href)
			}
			continue
		}
		g.Go(func() error {
			errCh := make(chan error, 1)
			if err := pool.Submit(func() {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case <-time.After(latency):
				}
				hist.Push(nil, "", target)
				errCh <- nil
			}); err != nil {
				return fmt.Errorf("submit task: %w", err)
			}
			return <-errCh
		})
	}

	return g.Wait()
}

// routeTarget mirrors the interceptor's qualification rules for the demo
// router: it returns the absolute URL to commit when the click is an
// in-app, same-origin, non-fragment http(s) navigation.
func routeTarget(link navprogress.Link, loc string) (string, bool) {
	if link.Target != "" && !strings.EqualFold(link.Target, "_self") {
		return "", false
	}
	abs, err := navprogress.AbsoluteURL(link.Href, loc)
	if err != nil || !navprogress.IsWebScheme(abs) {
		return "", false
	}
	if same, err := navprogress.SameOrigin(abs, loc); err != nil || !same {
		return "", false
	}
	if frag, err := navprogress.SamePageAnchor(abs, loc); err != nil || frag {
		return "", false
	}
	return abs, true
}
