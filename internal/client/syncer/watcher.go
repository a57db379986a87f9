package syncer

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/netx"
)

// Watch polls connectivity every interval and calls onChange whenever the
// status flips, starting with the first check. With auto drain enabled an
// offline to online transition also drains the queue. It returns when ctx
// is done.
func (e *Engine) Watch(ctx context.Context, interval time.Duration, onChange func(netx.Status)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		known bool
		last  bool
	)
	for {
		select {
		case <-ticker.C:
			st := e.oracle.Check(ctx)
			if known && st.Connected == last {
				continue
			}
			reconnected := known && st.Connected && !last
			known, last = true, st.Connected

			if onChange != nil {
				onChange(st)
			}
			if reconnected && e.autoDrain {
				if _, err := e.Drain(ctx); err != nil {
					e.log.Warn(ctx, "auto drain failed", "error", err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
