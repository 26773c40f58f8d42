// Package chart keeps the bar chart mirror of the vote tally and asks an
// external target to draw it. No layout or scaling happens here.
package chart

import (
	"sync"

	"github.com/google/uuid"

	"github.com/maaaruch/memory-tribunal/internal/domain"
)

// Target draws a frame. The websocket hub is the production target;
// browsers render the frame with Chart.js.
type Target interface {
	Draw(f Frame) error
}

// Frame is everything the drawing side needs to show the bar chart.
// Version orders frames within one Boot; a new Boot restarts the ordering.
type Frame struct {
	Boot    string    `json:"boot"`
	Title   string    `json:"title"`
	Label   string    `json:"label"`
	Labels  []string  `json:"labels"`
	Data    [2]int64  `json:"data"`
	Colors  [2]string `json:"colors"`
	Version uint64    `json:"version"`
}

type Bar struct {
	boot    string
	mu      sync.Mutex
	target  Target
	data    [2]int64
	drawn   bool
	version uint64
}

func NewBar(target Target) *Bar {
	return &Bar{target: target, boot: uuid.NewString()}
}

// Render mirrors t into the chart. A redraw is requested only when the
// displayed pair changes, so repeated calls with the same tally leave the
// chart untouched. The target has been called by the time Render returns.
func (b *Bar) Render(t domain.Tally) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := [2]int64{t.Yes, t.No}
	if b.drawn && next == b.data {
		return nil
	}

	b.data = next
	b.version++
	b.drawn = true

	if b.target == nil {
		return nil
	}
	if err := b.target.Draw(b.frameLocked()); err != nil {
		// retry the draw on the next Render even if the pair is unchanged
		b.drawn = false
		return err
	}
	return nil
}

func (b *Bar) Frame() Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frameLocked()
}

func (b *Bar) frameLocked() Frame {
	return Frame{
		Boot:    b.boot,
		Title:   "Live Vote Results",
		Label:   "Votes",
		Labels:  []string{"Yes", "No"},
		Data:    b.data,
		Colors:  [2]string{"#00ffe1", "#ff007a"},
		Version: b.version,
	}
}
