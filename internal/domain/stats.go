package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CampaignWindow frames a before/after comparison around a campaign start
// year: [start-pre, start-1] versus [start, start+post].
type CampaignWindow struct {
	StartYear int
	PreYears  int
	PostYears int
}

// Interval is a closed confidence interval on a mean.
type Interval struct {
	Low  float64
	High float64
}

// CampaignResult holds the before/after comparison for one coverage series.
// When Conclusive is false there were fewer than two points on one side and
// the test statistics are NaN.
type CampaignResult struct {
	Before []float64
	After  []float64

	MeanBefore float64
	MeanAfter  float64
	CIBefore   Interval
	CIAfter    Interval
	Diff       float64

	TStat      float64
	PValue     float64
	Conclusive bool
}

// Significant reports whether the before/after difference is statistically
// significant at the conventional 0.05 level.
func (r CampaignResult) Significant() bool {
	return r.Conclusive && r.PValue < 0.05
}

// AnalyzeCampaign splits a year-ordered coverage series into before/after
// windows and runs Welch's two-sample t-test (unequal variances) with 95%
// confidence intervals on both means.
func AnalyzeCampaign(series []CoverageRecord, w CampaignWindow) CampaignResult {
	var res CampaignResult
	for _, rec := range series {
		switch {
		case rec.Year >= w.StartYear-w.PreYears && rec.Year <= w.StartYear-1:
			res.Before = append(res.Before, rec.CoveragePct)
		case rec.Year >= w.StartYear && rec.Year <= w.StartYear+w.PostYears:
			res.After = append(res.After, rec.CoveragePct)
		}
	}

	if len(res.Before) < 2 || len(res.After) < 2 {
		res.TStat = math.NaN()
		res.PValue = math.NaN()
		return res
	}

	res.Conclusive = true
	res.MeanBefore = stat.Mean(res.Before, nil)
	res.MeanAfter = stat.Mean(res.After, nil)
	res.Diff = res.MeanAfter - res.MeanBefore
	res.CIBefore = meanCI(res.Before, res.MeanBefore)
	res.CIAfter = meanCI(res.After, res.MeanAfter)
	res.TStat, res.PValue = welchTTest(res.Before, res.After)
	return res
}

func welchTTest(a, b []float64) (tstat, p float64) {
	ma, mb := stat.Mean(a, nil), stat.Mean(b, nil)
	va, vb := stat.Variance(a, nil), stat.Variance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	se2 := va/na + vb/nb
	if se2 == 0 {
		// Both sides constant: no evidence either way.
		return 0, 1
	}
	tstat = (ma - mb) / math.Sqrt(se2)

	// Welch-Satterthwaite degrees of freedom.
	df := se2 * se2 / (va*va/(na*na*(na-1)) + vb*vb/(nb*nb*(nb-1)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.CDF(-math.Abs(tstat))
	return tstat, p
}

// meanCI is the 95% confidence interval on the mean using the t distribution
// with n-1 degrees of freedom.
func meanCI(vals []float64, mean float64) Interval {
	n := float64(len(vals))
	variance := stat.Variance(vals, nil)
	se := math.Sqrt(variance / n)
	q := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}.Quantile(0.975)
	h := q * se
	return Interval{Low: mean - h, High: mean + h}
}
