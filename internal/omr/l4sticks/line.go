package l4sticks

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Line is a least-squares line v = Intercept + Slope*u over included points.
// In a lag, u is usually the position across scan lines and v the
// coordinate along them, or the other way round for a stick's main axis.
//
// The fit is computed lazily on first read. A Line is safe for concurrent
// readers, and sticks are fitted before they are published.
type Line struct {
	mu         sync.Mutex
	us, vs, ws []float64
	minU, maxU float64

	fitted    bool
	dirty     bool
	intercept float64
	slope     float64
}

// Include adds the point (u, v) with unit weight.
func (l *Line) Include(u, v float64) *Line {
	return l.IncludeWeighted(u, v, 1)
}

// IncludeWeighted adds the point (u, v) with weight w.
func (l *Line) IncludeWeighted(u, v, w float64) *Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.us) == 0 {
		l.minU, l.maxU = u, u
	} else {
		l.minU = math.Min(l.minU, u)
		l.maxU = math.Max(l.maxU, u)
	}
	l.us = append(l.us, u)
	l.vs = append(l.vs, v)
	l.ws = append(l.ws, w)
	l.dirty = true
	return l
}

// Merge includes all points of o and returns l.
func (l *Line) Merge(o *Line) *Line {
	o.mu.Lock()
	us := append([]float64(nil), o.us...)
	vs := append([]float64(nil), o.vs...)
	ws := append([]float64(nil), o.ws...)
	o.mu.Unlock()
	for i := range us {
		l.IncludeWeighted(us[i], vs[i], ws[i])
	}
	return l
}

// PointNb returns the number of included points.
func (l *Line) PointNb() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.us)
}

// Fitted reports whether the points determine a line, i.e. at least two
// distinct u values were included.
func (l *Line) Fitted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fit()
	return l.fitted
}

// Slope returns dv/du, 0 when the line is not fitted.
func (l *Line) Slope() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fit()
	return l.slope
}

// Intercept returns v at u = 0, or the mean v when the line is not fitted.
func (l *Line) Intercept() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fit()
	return l.intercept
}

// At returns v at u.
func (l *Line) At(u float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fit()
	return l.intercept + l.slope*u
}

// AtInt returns v at integer u, rounded half to even.
func (l *Line) AtInt(u int) int {
	return int(math.RoundToEven(l.At(float64(u))))
}

// MeanDistance is the weighted root mean square of the residuals, the
// straightness of the included points.
func (l *Line) MeanDistance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fit()
	if len(l.us) == 0 {
		return 0
	}
	var sum, wsum float64
	for i := range l.us {
		d := l.vs[i] - (l.intercept + l.slope*l.us[i])
		sum += l.ws[i] * d * d
		wsum += l.ws[i]
	}
	if wsum == 0 {
		return 0
	}
	return math.Sqrt(sum / wsum)
}

// fit refreshes the coefficients. l.mu must be held.
func (l *Line) fit() {
	if !l.dirty {
		return
	}
	l.dirty = false
	if len(l.us) == 0 {
		l.fitted, l.intercept, l.slope = false, 0, 0
		return
	}
	if l.minU == l.maxU {
		l.fitted, l.intercept, l.slope = false, stat.Mean(l.vs, l.ws), 0
		return
	}
	l.intercept, l.slope = stat.LinearRegression(l.us, l.vs, l.ws, false)
	l.fitted = true
}
