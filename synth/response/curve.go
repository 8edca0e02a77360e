// Package response converts user-drawn frequency-response curves into
// impulse responses for convolution filtering.
package response

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-synth/synth/core"
)

var (
	// ErrEmptyCurve reports a curve with no control points.
	ErrEmptyCurve = errors.New("response: curve must have at least one point")

	// ErrUnorderedCurve reports control points that are not strictly
	// ascending in frequency.
	ErrUnorderedCurve = errors.New("response: curve points must be strictly ascending in frequency")
)

// Point is one control point of a frequency-response curve.
type Point struct {
	FreqHz float64
	GainDB float64
}

// Interpolation selects how a curve is evaluated between control points.
type Interpolation int

const (
	// InterpolateLinear is piecewise-linear in log-frequency space.
	InterpolateLinear Interpolation = iota
	// InterpolateCatmullRom is cubic 4-point interpolation in
	// log-frequency space.
	InterpolateCatmullRom
)

// Curve is an ordered frequency-response curve with an implicit
// (1000 Hz, 0 dB) reference point. It is immutable after construction.
type Curve struct {
	logFreq []float64 // log2 of control frequencies, strictly ascending
	gainDB  []float64
	interp  Interpolation
}

// CurveOption configures curve construction.
type CurveOption func(*Curve)

// WithCatmullRom selects cubic interpolation between control points.
func WithCatmullRom() CurveOption {
	return func(c *Curve) {
		c.interp = InterpolateCatmullRom
	}
}

// NewCurve builds a curve from control points.
//
// Points must be non-empty and strictly ascending in frequency with
// positive frequencies. The implicit reference point (1000 Hz, 0 dB) is
// inserted unless a user point already sits at that frequency.
func NewCurve(points []Point, opts ...CurveOption) (*Curve, error) {
	if len(points) == 0 {
		return nil, ErrEmptyCurve
	}
	for i, p := range points {
		if p.FreqHz <= 0 {
			return nil, fmt.Errorf("%w: non-positive frequency at index %d", ErrUnorderedCurve, i)
		}
		if i > 0 && points[i].FreqHz <= points[i-1].FreqHz {
			return nil, fmt.Errorf("%w: index %d", ErrUnorderedCurve, i)
		}
	}

	pts := append([]Point(nil), points...)
	if !hasFrequency(pts, core.CurveRefFreq) {
		pts = append(pts, Point{FreqHz: core.CurveRefFreq, GainDB: 0})
		sort.Slice(pts, func(i, j int) bool { return pts[i].FreqHz < pts[j].FreqHz })
	}

	c := &Curve{
		logFreq: make([]float64, len(pts)),
		gainDB:  make([]float64, len(pts)),
	}
	for i, p := range pts {
		c.logFreq[i] = math.Log2(p.FreqHz)
		c.gainDB[i] = p.GainDB
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func hasFrequency(points []Point, freq float64) bool {
	for _, p := range points {
		if p.FreqHz == freq {
			return true
		}
	}
	return false
}

// NumPoints returns the number of control points including the implicit
// reference.
func (c *Curve) NumPoints() int { return len(c.logFreq) }

// GainDB evaluates the curve at an arbitrary frequency. Queries outside
// the control-point span clamp to the endpoint values.
func (c *Curve) GainDB(freqHz float64) float64 {
	if freqHz <= 0 {
		return c.gainDB[0]
	}
	x := math.Log2(freqHz)
	n := len(c.logFreq)

	if x <= c.logFreq[0] {
		return c.gainDB[0]
	}
	if x >= c.logFreq[n-1] {
		return c.gainDB[n-1]
	}

	j := sort.SearchFloat64s(c.logFreq, x)
	x0, x1 := c.logFreq[j-1], c.logFreq[j]
	t := (x - x0) / (x1 - x0)

	if c.interp == InterpolateCatmullRom {
		ym1 := c.gainDB[maxInt(j-2, 0)]
		y2 := c.gainDB[minInt(j+1, n-1)]
		return hermite4(t, ym1, c.gainDB[j-1], c.gainDB[j], y2)
	}
	return c.gainDB[j-1] + t*(c.gainDB[j]-c.gainDB[j-1])
}

// Gain evaluates the curve as a linear magnitude.
func (c *Curve) Gain(freqHz float64) float64 {
	return math.Pow(10, c.GainDB(freqHz)/20)
}

// hermite4 computes cubic 4-point interpolation from x0 to x1 using
// neighbor points xm1 and x2.
func hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
