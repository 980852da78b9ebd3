//go:build !ios && !android && (amd64 || arm64)

package avutil

// Rational mirrors AVRational. The arithmetic the pipeline needs is done in
// pure Go: FFmpeg's av_*_q helpers pass the struct by value, which purego
// cannot express off Darwin. Time-base rescaling of packets goes through
// av_packet_rescale_ts instead, which takes the values as separate words.
type Rational struct {
	Num int32
	Den int32
}

// NewRational builds a Rational from numerator and denominator.
func NewRational(num, den int32) Rational {
	return Rational{Num: num, Den: den}
}

// Float64 returns the value as a float, 0 when the denominator is 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// IsZero reports a zero numerator, the shape FFmpeg uses for an unset rate.
func (r Rational) IsZero() bool {
	return r.Num == 0
}
