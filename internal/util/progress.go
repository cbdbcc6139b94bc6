package util

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/time/rate"
)

// Progress prints in-place progress updates for a long pass over the KB.
// Updates are throttled with a rate limiter so million-row passes don't
// spend their time repainting the terminal. A nil *Progress is a valid
// no-op reporter.
type Progress struct {
	out     io.Writer
	message string
	limiter *rate.Limiter
}

// NewProgress creates a stderr progress reporter emitting at most
// updatesPerSecond repaints.
func NewProgress(message string, updatesPerSecond float64) *Progress {
	if updatesPerSecond <= 0 {
		updatesPerSecond = 10
	}
	return &Progress{
		out:     os.Stderr,
		message: message,
		limiter: rate.NewLimiter(rate.Limit(updatesPerSecond), 1),
	}
}

// Step reports that done of total units are complete. The final step always
// prints so the display never ends short of 100%.
func (p *Progress) Step(done, total int) {
	if p == nil || total <= 0 {
		return
	}
	if done < total && !p.limiter.Allow() {
		return
	}
	fmt.Fprintf(p.out, "\r%s %.1f%%", p.message, float64(done)/float64(total)*100)
}

// Finish terminates the in-place line.
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	fmt.Fprintln(p.out)
}
