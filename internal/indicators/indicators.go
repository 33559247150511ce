// Package indicators holds the technical-indicator math used by ad-hoc
// analysis: moving averages, RSI, and death-cross detection over the
// precomputed factor columns.
package indicators

import (
	"math"

	"github.com/luqian/astock-screener/pkg/table"
)

// MA computes the n-period simple moving average. Positions with fewer
// than n observations are NaN.
func MA(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// RSI computes the n-period relative strength index with Wilder
// smoothing. The first n positions are NaN.
func RSI(closes []float64, n int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(closes) <= n {
		return out
	}

	var gain, loss float64
	for i := 1; i <= n; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gain += diff
		} else {
			loss -= diff
		}
	}
	avgGain, avgLoss := gain/float64(n), loss/float64(n)
	out[n] = rsiValue(avgGain, avgLoss)

	for i := n + 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if diff > 0 {
			g = diff
		} else {
			l = -diff
		}
		avgGain = (avgGain*float64(n-1) + g) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + l) / float64(n)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// LastDeathCross scans factor rows (ascending by trade date) for the most
// recent bar where the fast line crossed below the slow line, and returns
// its trade date. Rows with unparseable cells are skipped.
func LastDeathCross(t *table.Table, fastCol, slowCol string) (string, bool) {
	type point struct {
		date       string
		fast, slow float64
	}
	var points []point
	for _, r := range t.Rows {
		fast, err1 := r.Float(fastCol)
		slow, err2 := r.Float(slowCol)
		if err1 != nil || err2 != nil {
			continue
		}
		points = append(points, point{date: r["trade_date"], fast: fast, slow: slow})
	}

	lastDate := ""
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if prev.fast > prev.slow && cur.fast < cur.slow {
			lastDate = cur.date
		}
	}
	return lastDate, lastDate != ""
}

// RecentKDJDeathCross returns the latest K-below-D cross date.
func RecentKDJDeathCross(t *table.Table) (string, bool) {
	return LastDeathCross(t, "kdj_k_qfq", "kdj_d_qfq")
}

// RecentMACDDeathCross returns the latest DIF-below-DEA cross date.
func RecentMACDDeathCross(t *table.Table) (string, bool) {
	return LastDeathCross(t, "macd_dif_qfq", "macd_dea_qfq")
}
