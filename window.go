//go:build !ios && !android && (amd64 || arm64)

package annotai

import (
	"math"

	"github.com/lomavkin/annotai/avcodec"
	"github.com/lomavkin/annotai/avutil"
)

// TimeWindow is a trim region expressed in wall-clock seconds. The window
// covers [Start, Start+Duration).
type TimeWindow struct {
	Start    float64
	Duration float64
}

// End returns the exclusive end of the window in seconds.
func (w TimeWindow) End() float64 {
	return w.Start + w.Duration
}

// StartIn returns the window start expressed in ticks of tb. Each stream
// subtracts this from its timestamps so the output's zero point is the
// window start.
func (w TimeWindow) StartIn(tb Rational) int64 {
	return secondsToTicks(w.Start, tb)
}

// CutoffIn returns the window end expressed in ticks of tb. A packet whose
// PTS reaches this value lies outside the window.
func (w TimeWindow) CutoffIn(tb Rational) int64 {
	return secondsToTicks(w.End(), tb)
}

// startMicros returns the window start in AV_TIME_BASE units, the unit
// av_seek_frame expects for whole-container seeks.
func (w TimeWindow) startMicros() int64 {
	return int64(math.Round(w.Start * float64(avutil.TimeBase)))
}

// secondsToTicks converts seconds to ticks of tb, routed through
// microseconds so the conversion rounds the way FFmpeg's rescaling does.
func secondsToTicks(sec float64, tb Rational) int64 {
	us := int64(math.Round(sec * float64(avutil.TimeBase)))
	return avcodec.RescaleQ(us, avutil.NewRational(1, int32(avutil.TimeBase)), tb)
}

// Seconds converts a tick count expressed in tb to wall-clock seconds.
func Seconds(ticks int64, tb Rational) float64 {
	return float64(ticks) * tb.Float64()
}
