package converter

import (
	"context"
	"time"
)

// Scroller is the slice of a browser page the auto-scroll loop needs
type Scroller interface {
	// ScrollHeight returns the current scrollable height of the document
	ScrollHeight(ctx context.Context) (int, error)
	// ScrollBy scrolls the viewport down by dy pixels
	ScrollBy(ctx context.Context, dy int) error
}

// AutoScroll scrolls down by step every interval until the scrolled distance
// reaches the document height, re-reading the height on every tick so lazily
// loaded content keeps the loop going. It returns the distance scrolled. A
// page that keeps growing is bounded only by ctx.
func AutoScroll(ctx context.Context, s Scroller, step int, interval time.Duration) (int, error) {
	if step <= 0 {
		step = 100
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	total := 0
	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-ticker.C:
			height, err := s.ScrollHeight(ctx)
			if err != nil {
				return total, err
			}
			if err := s.ScrollBy(ctx, step); err != nil {
				return total, err
			}
			total += step
			if total >= height {
				return total, nil
			}
		}
	}
}
