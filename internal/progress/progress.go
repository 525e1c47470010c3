package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Options configures progress bar behavior
type Options struct {
	Quiet   bool
	Verbose bool
	// Output receives PrintInfo and PrintVerbose text. Defaults to stdout.
	Output io.Writer
}

// Manager handles progress bars and cancellation
type Manager struct {
	options    Options
	out        io.Writer
	bars       bool
	itemBar    *progressbar.ProgressBar
	cancelFunc context.CancelFunc
	cancelled  bool
	cancelMux  sync.Mutex
	signalChan chan os.Signal
}

// NewManager creates a new progress manager. Bars are only drawn when stderr
// is a terminal and quiet mode is off.
func NewManager(options Options) *Manager {
	out := options.Output
	if out == nil {
		out = os.Stdout
	}
	return &Manager{
		options:    options,
		out:        out,
		bars:       !options.Quiet && term.IsTerminal(int(os.Stderr.Fd())),
		signalChan: make(chan os.Signal, 1),
	}
}

// SetupCancellation sets up signal handling for cancellation
func (pm *Manager) SetupCancellation(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	pm.cancelFunc = cancel

	signal.Notify(pm.signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-pm.signalChan:
			pm.cancelMux.Lock()
			pm.cancelled = true
			pm.cancelMux.Unlock()
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}

// IsCancelled checks if the operation was cancelled
func (pm *Manager) IsCancelled() bool {
	pm.cancelMux.Lock()
	defer pm.cancelMux.Unlock()
	return pm.cancelled
}

// Cleanup removes signal handlers
func (pm *Manager) Cleanup() {
	signal.Stop(pm.signalChan)
	if pm.cancelFunc != nil {
		pm.cancelFunc()
	}
}

// InitItemProgress starts a bar counting total items.
func (pm *Manager) InitItemProgress(total int, description string) {
	if !pm.bars {
		return
	}

	pm.itemBar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(65),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
	)
}

// AdvanceItem moves the item bar forward by one.
func (pm *Manager) AdvanceItem() {
	if pm.itemBar == nil {
		return
	}
	// #nosec G104 - progress bar errors are not critical for functionality
	pm.itemBar.Add(1)
}

// FinishItemProgress marks the item bar complete and releases it.
func (pm *Manager) FinishItemProgress() {
	if pm.itemBar == nil {
		return
	}
	// #nosec G104 - progress bar errors are not critical for functionality
	pm.itemBar.Finish()
	pm.itemBar = nil
}

// PrintVerbose prints verbose information if verbose mode is enabled
func (pm *Manager) PrintVerbose(format string, args ...interface{}) {
	if !pm.options.Verbose {
		return
	}
	pm.clearBar()

	fmt.Fprintf(pm.out, format, args...)
	if len(format) == 0 || format[len(format)-1] != '\n' {
		fmt.Fprintln(pm.out)
	}
}

// PrintInfo prints informational messages (unless quiet mode)
func (pm *Manager) PrintInfo(format string, args ...interface{}) {
	if pm.options.Quiet {
		return
	}
	pm.clearBar()

	fmt.Fprintf(pm.out, format, args...)
}

// Clear the bar before printing to avoid broken lines.
func (pm *Manager) clearBar() {
	if pm.itemBar != nil {
		// #nosec G104 - progress bar clear is not critical for functionality
		pm.itemBar.Clear()
	}
}
