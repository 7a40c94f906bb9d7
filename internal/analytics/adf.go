package analytics

import (
	"math"
)

// ADFResult is the outcome of an augmented Dickey-Fuller test with a
// constant term.
type ADFResult struct {
	Statistic      float64            `json:"statistic"`
	PValue         float64            `json:"pvalue"`
	Lags           int                `json:"usedlag"`
	NObs           int                `json:"nobs"`
	CriticalValues map[string]float64 `json:"critical_values"`
	IsStationary   bool               `json:"is_stationary"`
}

const adfMinObservations = 10

// ADFTest runs an augmented Dickey-Fuller unit-root test on a series.
// Non-finite values are dropped first; fewer than 10 clean observations
// yields nil (insufficient data is an expected steady state, not an
// error). The lag order is selected by AIC up to min(10, n/5). The
// verdict gates pair tradeability; it decides nothing by itself.
func ADFTest(series []float64) *ADFResult {
	clean := make([]float64, 0, len(series))
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		clean = append(clean, v)
	}
	n := len(clean)
	if n < adfMinObservations {
		return nil
	}

	maxLag := n / 5
	if maxLag > 10 {
		maxLag = 10
	}
	// keep enough degrees of freedom for the longest regression
	for maxLag > 0 && n-maxLag-1 < maxLag+3 {
		maxLag--
	}

	bestLag := 0
	bestAIC := math.Inf(1)
	bestStat := 0.0
	bestNObs := 0
	for lag := 0; lag <= maxLag; lag++ {
		stat, aic, nobs, ok := adfRegression(clean, lag)
		if !ok {
			continue
		}
		if aic < bestAIC {
			bestAIC = aic
			bestLag = lag
			bestStat = stat
			bestNObs = nobs
		}
	}
	if bestNObs == 0 {
		return nil
	}

	cv := mackinnonCrit(bestNObs)
	p := interpolatePValue(bestStat, cv)
	return &ADFResult{
		Statistic: bestStat,
		PValue:    p,
		Lags:      bestLag,
		NObs:      bestNObs,
		CriticalValues: map[string]float64{
			"1%":  cv[0],
			"5%":  cv[1],
			"10%": cv[2],
		},
		IsStationary: p < 0.05,
	}
}

// adfRegression fits dy_t = a + g*y_{t-1} + sum phi_i*dy_{t-i} and
// returns the t-statistic of g plus the regression AIC.
func adfRegression(y []float64, lag int) (tstat, aic float64, nobs int, ok bool) {
	n := len(y)
	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = y[i] - y[i-1]
	}
	start := lag + 1 // first usable index into diff
	nobs = len(diff) - lag
	k := lag + 2 // constant + level + lagged diffs
	if nobs <= k {
		return 0, 0, 0, false
	}

	X := make([][]float64, nobs)
	resp := make([]float64, nobs)
	for t := 0; t < nobs; t++ {
		row := make([]float64, k)
		row[0] = 1
		row[1] = y[start+t-1] // level term y_{t-1}
		for j := 1; j <= lag; j++ {
			row[1+j] = diff[start+t-1-j]
		}
		X[t] = row
		resp[t] = diff[start+t-1]
	}

	beta, invXtX, rss, solved := olsSolve(X, resp)
	if !solved || rss < 0 {
		return 0, 0, 0, false
	}
	dof := nobs - k
	if dof <= 0 {
		return 0, 0, 0, false
	}
	sigma2 := rss / float64(dof)
	seGamma := math.Sqrt(sigma2 * invXtX[1][1])
	if seGamma == 0 || math.IsNaN(seGamma) {
		return 0, 0, 0, false
	}
	tstat = beta[1] / seGamma
	// Gaussian log-likelihood based AIC; only relative ordering matters.
	ll := -0.5 * float64(nobs) * (math.Log(2*math.Pi) + math.Log(rss/float64(nobs)) + 1)
	aic = -2*ll + 2*float64(k)
	return tstat, aic, nobs, true
}

// olsSolve fits resp = X*beta by normal equations and also returns
// (X'X)^-1 and the residual sum of squares.
func olsSolve(X [][]float64, resp []float64) (beta []float64, inv [][]float64, rss float64, ok bool) {
	n := len(X)
	if n == 0 {
		return nil, nil, 0, false
	}
	k := len(X[0])

	xtx := make([][]float64, k)
	xty := make([]float64, k)
	for i := 0; i < k; i++ {
		xtx[i] = make([]float64, k)
	}
	for t := 0; t < n; t++ {
		for i := 0; i < k; i++ {
			xty[i] += X[t][i] * resp[t]
			for j := i; j < k; j++ {
				xtx[i][j] += X[t][i] * X[t][j]
			}
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	inv, ok = invertMatrix(xtx)
	if !ok {
		return nil, nil, 0, false
	}
	beta = make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			beta[i] += inv[i][j] * xty[j]
		}
	}
	for t := 0; t < n; t++ {
		pred := 0.0
		for i := 0; i < k; i++ {
			pred += X[t][i] * beta[i]
		}
		r := resp[t] - pred
		rss += r * r
	}
	return beta, inv, rss, true
}

// invertMatrix is Gauss-Jordan with partial pivoting; the matrices here
// are at most 12x12.
func invertMatrix(m [][]float64) ([][]float64, bool) {
	k := len(m)
	aug := make([][]float64, k)
	for i := 0; i < k; i++ {
		aug[i] = make([]float64, 2*k)
		copy(aug[i], m[i])
		aug[i][k+i] = 1
	}
	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return nil, false
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]
		pv := aug[col][col]
		for j := 0; j < 2*k; j++ {
			aug[col][j] /= pv
		}
		for r := 0; r < k; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			if factor == 0 {
				continue
			}
			for j := 0; j < 2*k; j++ {
				aug[r][j] -= factor * aug[col][j]
			}
		}
	}
	out := make([][]float64, k)
	for i := 0; i < k; i++ {
		out[i] = aug[i][k:]
	}
	return out, true
}

// mackinnonCrit returns the finite-sample 1%/5%/10% critical values for
// the constant-only Dickey-Fuller distribution (MacKinnon 2010 response
// surface).
func mackinnonCrit(nobs int) [3]float64 {
	n := float64(nobs)
	return [3]float64{
		-3.43035 - 6.5393/n - 16.786/(n*n) - 79.433/(n*n*n),
		-2.86154 - 2.8903/n - 4.234/(n*n) - 40.040/(n*n*n),
		-2.56677 - 1.5384/n - 2.809/(n*n),
	}
}

// interpolatePValue maps the test statistic onto an approximate p-value
// by log-linear interpolation between the critical-value anchors. Exact
// on the anchors themselves, so the p<0.05 verdict agrees with the 5%
// critical value everywhere.
func interpolatePValue(stat float64, cv [3]float64) float64 {
	anchors := []struct {
		stat float64
		p    float64
	}{
		{cv[0], 0.01},
		{cv[1], 0.05},
		{cv[2], 0.10},
	}
	logInterp := func(s, s0, s1, p0, p1 float64) float64 {
		if s1 == s0 {
			return p0
		}
		frac := (s - s0) / (s1 - s0)
		return math.Exp(math.Log(p0) + frac*(math.Log(p1)-math.Log(p0)))
	}
	var p float64
	switch {
	case stat <= anchors[0].stat:
		p = logInterp(stat, anchors[0].stat, anchors[1].stat, anchors[0].p, anchors[1].p)
	case stat <= anchors[1].stat:
		p = logInterp(stat, anchors[0].stat, anchors[1].stat, anchors[0].p, anchors[1].p)
	case stat <= anchors[2].stat:
		p = logInterp(stat, anchors[1].stat, anchors[2].stat, anchors[1].p, anchors[2].p)
	default:
		p = logInterp(stat, anchors[1].stat, anchors[2].stat, anchors[1].p, anchors[2].p)
	}
	if p < 1e-4 {
		p = 1e-4
	}
	if p > 0.99 {
		p = 0.99
	}
	return p
}
