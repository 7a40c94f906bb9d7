package analytics

import (
	"fmt"
	"math"
	"strings"
)

// HedgeMethod selects the fitting policy for the hedge ratio.
type HedgeMethod string

const (
	MethodOLS        HedgeMethod = "ols"
	MethodHuber      HedgeMethod = "huber"
	MethodRollingOLS HedgeMethod = "rolling"
	MethodKalman     HedgeMethod = "kalman"
	MethodTLS        HedgeMethod = "tls"
)

// ParseHedgeMethod validates a method selector, defaulting empty input
// to OLS.
func ParseHedgeMethod(input string) (HedgeMethod, error) {
	m := HedgeMethod(strings.ToLower(strings.TrimSpace(input)))
	switch m {
	case "":
		return MethodOLS, nil
	case MethodOLS, MethodHuber, MethodRollingOLS, MethodKalman, MethodTLS:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported hedge method: %s", input)
	}
}

// HedgeRatio is one (ratio, intercept) fit of y = ratio*x + intercept.
type HedgeRatio struct {
	Ratio     float64 `json:"ratio"`
	Intercept float64 `json:"intercept"`
}

var identityRatio = HedgeRatio{Ratio: 1, Intercept: 0}

// RatioSeries is either a single fit applied to every bar or a
// time-varying sequence aligned to the input index. The spread engine
// treats both uniformly.
type RatioSeries struct {
	Static bool
	Scalar HedgeRatio
	Ratios []HedgeRatio
}

// At returns the ratio in effect at bar i.
func (rs RatioSeries) At(i int) HedgeRatio {
	if rs.Static || len(rs.Ratios) == 0 {
		return rs.Scalar
	}
	if i < 0 {
		i = 0
	}
	if i >= len(rs.Ratios) {
		i = len(rs.Ratios) - 1
	}
	return rs.Ratios[i]
}

func constantRatio(hr HedgeRatio) RatioSeries {
	return RatioSeries{Static: true, Scalar: hr}
}

// EstimateHedgeRatio fits y = ratio*x + intercept between two aligned
// series. Scalar methods (ols, huber, tls) return one fit; dynamic
// methods (rolling, kalman) return one fit per bar. Inputs shorter than
// 2 points fall back to the identity ratio (1, 0) so a pair with no
// history still yields a usable spread. The window parameter only
// matters for the rolling method.
func EstimateHedgeRatio(y, x []float64, method HedgeMethod, window int) RatioSeries {
	n := len(y)
	if len(x) < n {
		n = len(x)
	}
	if n < 2 {
		return constantRatio(identityRatio)
	}
	y, x = y[:n], x[:n]
	switch method {
	case MethodHuber:
		return constantRatio(huberFit(y, x))
	case MethodRollingOLS:
		return rollingOLS(y, x, window)
	case MethodKalman:
		return kalmanFit(y, x)
	case MethodTLS:
		return constantRatio(tlsFit(y, x))
	default:
		return constantRatio(olsFit(y, x))
	}
}

// olsFit is plain least squares of y on x.
func olsFit(y, x []float64) HedgeRatio {
	mx, my := mean(x), mean(y)
	var sxy, sxx float64
	for i := range x {
		dx := x[i] - mx
		sxy += dx * (y[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return identityRatio
	}
	slope := sxy / sxx
	return HedgeRatio{Ratio: slope, Intercept: my - slope*mx}
}

const (
	huberDelta   = 1.345
	huberMaxIter = 50
	huberTol     = 1e-8
)

// huberFit down-weights outlier residuals through iteratively reweighted
// least squares, converging to the OLS answer on clean data.
func huberFit(y, x []float64) HedgeRatio {
	fit := olsFit(y, x)
	weights := make([]float64, len(x))
	for iter := 0; iter < huberMaxIter; iter++ {
		scale := residualScale(y, x, fit)
		if scale == 0 {
			return fit
		}
		for i := range x {
			r := (y[i] - fit.Ratio*x[i] - fit.Intercept) / scale
			if abs := math.Abs(r); abs > huberDelta {
				weights[i] = huberDelta / abs
			} else {
				weights[i] = 1
			}
		}
		next, ok := weightedOLS(y, x, weights)
		if !ok {
			return fit
		}
		if math.Abs(next.Ratio-fit.Ratio) < huberTol && math.Abs(next.Intercept-fit.Intercept) < huberTol {
			return next
		}
		fit = next
	}
	return fit
}

// residualScale is the median absolute deviation of residuals, the usual
// robust scale estimate for IRLS.
func residualScale(y, x []float64, fit HedgeRatio) float64 {
	res := make([]float64, len(x))
	for i := range x {
		res[i] = math.Abs(y[i] - fit.Ratio*x[i] - fit.Intercept)
	}
	return median(res) / 0.6745
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	cp := make([]float64, len(xs))
	copy(cp, xs)
	// insertion sort; windows here are small
	for i := 1; i < len(cp); i++ {
		for j := i; j > 0 && cp[j] < cp[j-1]; j-- {
			cp[j], cp[j-1] = cp[j-1], cp[j]
		}
	}
	mid := len(cp) / 2
	if len(cp)%2 == 1 {
		return cp[mid]
	}
	return (cp[mid-1] + cp[mid]) / 2
}

func weightedOLS(y, x, w []float64) (HedgeRatio, bool) {
	var sw, swx, swy float64
	for i := range x {
		sw += w[i]
		swx += w[i] * x[i]
		swy += w[i] * y[i]
	}
	if sw == 0 {
		return HedgeRatio{}, false
	}
	mx, my := swx/sw, swy/sw
	var sxy, sxx float64
	for i := range x {
		dx := x[i] - mx
		sxy += w[i] * dx * (y[i] - my)
		sxx += w[i] * dx * dx
	}
	if sxx == 0 {
		return HedgeRatio{}, false
	}
	slope := sxy / sxx
	return HedgeRatio{Ratio: slope, Intercept: my - slope*mx}, true
}

// rollingOLS refits OLS over a trailing window at every bar. Bars before
// the first full window reuse the first full-window fit so the output
// never carries an undefined entry.
func rollingOLS(y, x []float64, window int) RatioSeries {
	n := len(x)
	if window < 2 || n < window {
		return constantRatio(olsFit(y, x))
	}
	ratios := make([]HedgeRatio, n)
	first := olsFit(y[:window], x[:window])
	for i := 0; i < window-1; i++ {
		ratios[i] = first
	}
	for i := window - 1; i < n; i++ {
		ratios[i] = olsFit(y[i-window+1:i+1], x[i-window+1:i+1])
	}
	return RatioSeries{Ratios: ratios}
}

const (
	kalmanDelta    = 1e-4
	kalmanObsNoise = 1e-3
)

// kalmanFit runs a random-walk filter over state (ratio, intercept) with
// observation y = ratio*x + intercept. The state covariance starts wide
// so the first observations dominate the early estimates.
func kalmanFit(y, x []float64) RatioSeries {
	n := len(x)
	ratios := make([]HedgeRatio, n)

	// state and covariance
	beta, alpha := 1.0, 0.0
	var p00, p01, p10, p11 float64 = 1, 0, 0, 1
	q := kalmanDelta / (1 - kalmanDelta)

	for i := 0; i < n; i++ {
		// predict: random walk, add process noise
		p00 += q
		p11 += q

		// innovation for observation h = [x_i, 1]
		h0, h1 := x[i], 1.0
		yHat := beta*h0 + alpha*h1
		e := y[i] - yHat
		// s = h P h' + r
		s := h0*(p00*h0+p01*h1) + h1*(p10*h0+p11*h1) + kalmanObsNoise
		if s == 0 {
			ratios[i] = HedgeRatio{Ratio: beta, Intercept: alpha}
			continue
		}
		k0 := (p00*h0 + p01*h1) / s
		k1 := (p10*h0 + p11*h1) / s

		beta += k0 * e
		alpha += k1 * e

		// P = (I - K h) P
		np00 := (1-k0*h0)*p00 - k0*h1*p10
		np01 := (1-k0*h0)*p01 - k0*h1*p11
		np10 := -k1*h0*p00 + (1-k1*h1)*p10
		np11 := -k1*h0*p01 + (1-k1*h1)*p11
		p00, p01, p10, p11 = np00, np01, np10, np11

		ratios[i] = HedgeRatio{Ratio: beta, Intercept: alpha}
	}
	return RatioSeries{Ratios: ratios}
}

// tlsFit minimizes orthogonal distance instead of vertical residuals,
// the symmetric-in-x-and-y alternative to OLS.
func tlsFit(y, x []float64) HedgeRatio {
	mx, my := mean(x), mean(y)
	var sxx, syy, sxy float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxy == 0 {
		return identityRatio
	}
	slope := (syy - sxx + math.Sqrt((syy-sxx)*(syy-sxx)+4*sxy*sxy)) / (2 * sxy)
	return HedgeRatio{Ratio: slope, Intercept: my - slope*mx}
}
