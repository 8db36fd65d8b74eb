// Package progress reports discovery and sync
// progress. The reporter is passed explicitly to the
// components that need it; there is no process-wide
// singleton.
package progress

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives progress events from the tree
// builder and the sync engine. Implementations must be
// safe for concurrent callers.
type Reporter interface {
	// Start begins a run with the initially known
	// number of items.
	Start(total int)
	// Grow raises the expected total by n.
	Grow(n int)
	// Step records one processed item.
	Step(name, kind, verb string)
	// Finish closes the run and returns its elapsed
	// time.
	Finish() time.Duration
}

// Nop discards all progress events.
type Nop struct{}

// Start implements Reporter.
func (Nop) Start(int) {}

// Grow implements Reporter.
func (Nop) Grow(int) {}

// Step implements Reporter.
func (Nop) Step(string, string, string) {}

// Finish implements Reporter.
func (Nop) Finish() time.Duration { return 0 }

// Bar renders a terminal progress bar on stderr.
type Bar struct {
	mu      sync.Mutex
	desc    string
	bar     *progressbar.ProgressBar
	started time.Time
}

// NewBar creates a Bar with the given description
// prefix.
func NewBar(desc string) *Bar {
	return &Bar{desc: desc}
}

// Start implements Reporter.
func (b *Bar) Start(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		return
	}

	b.started = time.Now()
	b.bar = progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription(b.desc),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// Grow implements Reporter.
func (b *Bar) Grow(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil || n == 0 {
		return
	}

	b.bar.ChangeMax(b.bar.GetMax() + n)
}

// Step implements Reporter.
func (b *Bar) Step(name, kind, verb string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return
	}

	b.bar.Describe(fmt.Sprintf(
		"%s: %s %s %s", b.desc, verb, kind, name,
	))
	_ = b.bar.Add(1)
}

// Finish implements Reporter.
func (b *Bar) Finish() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return 0
	}

	_ = b.bar.Finish()

	return time.Since(b.started)
}
