package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/dgnsrekt/sc_agent/internal/navigator"
	"github.com/dgnsrekt/sc_agent/internal/relay"
	"github.com/dgnsrekt/sc_agent/internal/snapshot"
)

// DefaultTimeframeBoxes covers Daily, Weekly, 60-minute and 5-minute by the
// usual ChartStyle box convention.
var DefaultTimeframeBoxes = []int{1, 4, 7, 10}

// TimeframeCapture is the outcome of one timeframe tab.
type TimeframeCapture struct {
	Box        int    `json:"box"`
	Ticker     string `json:"ticker"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	CaptureID  string `json:"capture_id,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

// OpenMultiTimeframe opens one tab per timeframe box for a single ticker and
// captures each. The first box reuses the hub tab. Boxes are validated up
// front; a selection miss on a live page is non-fatal and the capture simply
// shows the default style.
func (o *Orchestrator) OpenMultiTimeframe(ctx context.Context, tabs TabSource, ticker string, boxes []int) ([]TimeframeCapture, error) {
	if ticker == "" {
		return nil, &navigator.CodedError{Code: navigator.CodeValidation, Message: "ticker must not be empty"}
	}
	if len(boxes) == 0 {
		boxes = DefaultTimeframeBoxes
	}
	for _, box := range boxes {
		if box < 1 || box > 12 {
			return nil, &navigator.CodedError{Code: navigator.CodeValidation, Message: fmt.Sprintf("timeframe box %d out of range 1-12", box)}
		}
	}

	o.nav.ResetBatch()

	captures := make([]TimeframeCapture, 0, len(boxes))
	for i, box := range boxes {
		capture := TimeframeCapture{Box: box, Ticker: ticker}

		tab := tabs.FirstTab()
		if i > 0 {
			newTab, err := tabs.NewTab(ctx)
			if err != nil {
				capture.Error = fmt.Sprintf("open tab: %v", err)
				captures = append(captures, capture)
				continue
			}
			tab = newTab
		}

		boxCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.NavTimeoutMS)*time.Millisecond)
		err := o.openTimeframeTab(boxCtx, tab, ticker, box, &capture)
		cancel()
		if err != nil {
			capture.Error = err.Error()
			o.log.Error("timeframe tab failed", "ticker", ticker, "box", box, "error", err)
		} else {
			capture.Success = true
		}
		captures = append(captures, capture)
		if o.broker != nil {
			o.broker.PublishJSON(relay.FeedBatch, capture)
		}
	}

	return captures, nil
}

func (o *Orchestrator) openTimeframeTab(ctx context.Context, tab navigator.Tab, ticker string, box int, capture *TimeframeCapture) error {
	if err := o.nav.SearchTicker(ctx, tab, ticker); err != nil {
		return err
	}
	if err := o.nav.SelectTimeframeBox(ctx, tab, box); err != nil {
		return err
	}
	if o.cfg.Kiosk {
		o.nav.ApplyKioskView(ctx, tab)
	}

	if o.store == nil {
		return nil
	}
	img, err := tab.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	meta, err := o.store.Save(snapshot.CaptureMeta{
		SessionID:    o.sessionID,
		Ticker:       ticker,
		TimeframeBox: box,
		Phase:        "multi-timeframe",
	}, img)
	if err != nil {
		return fmt.Errorf("store screenshot: %w", err)
	}
	capture.CaptureID = meta.ID
	capture.Screenshot = o.store.ImagePath(meta)
	return nil
}
