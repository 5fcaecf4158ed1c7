// Package reconcile holds the timing decisions that fit synthesized speech
// into the source span it narrates. It never touches media; callers execute
// the returned plans with an audio tool.
package reconcile

import "math"

const (
	// Tolerance is the largest |actual-target| accepted without any change.
	Tolerance = 0.1
	// MaxTempo caps speed-up so speech stays intelligible.
	MaxTempo = 1.5

	minPad = 0.01
)

type Kind string

const (
	KindAsIs             Kind = "as_is"
	KindPad              Kind = "pad"
	KindCompress         Kind = "compress"
	KindCompressTruncate Kind = "compress_truncate"
)

// Plan is the reconciliation decision for one clip.
//
// Tempo is 1 unless the clip is compressed. Pad is silence appended after
// the (possibly compressed) clip. Truncate, when positive, is the length the
// compressed clip is cut to.
type Plan struct {
	Kind     Kind
	Target   float64
	Actual   float64
	Tempo    float64
	Pad      float64
	Truncate float64
}

// Decide picks how a clip of length actual is made to fit target seconds.
func Decide(actual, target float64) Plan {
	p := Plan{Kind: KindAsIs, Target: target, Actual: actual, Tempo: 1}
	if target <= 0 || actual <= 0 || math.Abs(actual-target) < Tolerance {
		return p
	}
	if actual < target {
		p.Kind = KindPad
		p.Pad = target - actual
		return p
	}
	ratio := actual / target
	if ratio <= MaxTempo {
		p.Kind = KindCompress
		p.Tempo = ratio
		return p
	}
	p.Kind = KindCompressTruncate
	p.Tempo = MaxTempo
	p.Truncate = target
	return p
}

// Residual returns the silence still needed after a compressed clip was
// measured at measured seconds. Rounding in the tempo filter can leave a clip
// slightly short of its target.
func Residual(measured, target float64) float64 {
	if d := target - measured; d > minPad {
		return d
	}
	return 0
}
