// Package compare computes deltas between run and clause snapshots.
//
// All functions are pure and total: well-typed inputs never fail, and a
// missing value on either side yields a nil delta rather than zero, so the
// caller can tell "no change" apart from "not measured".
package compare

import "github.com/lexigraph/reviewd/internal/domain"

// Metrics computes replay minus original over two metric snapshots.
func Metrics(original, replay *domain.RunMetrics) domain.MetricsDelta {
	var d domain.MetricsDelta
	if original == nil || replay == nil {
		return d
	}
	d.ScoreDelta = floatDelta(original.Score, replay.Score)
	d.DurationDelta = intDelta(original.DurationMs, replay.DurationMs)
	d.CostDelta = floatDelta(original.CostUSD, replay.CostUSD)
	d.RiskCountDelta = riskCountDelta(original.RiskCounts, replay.RiskCounts)
	return d
}

// Clause compares a replayed clause assessment against the original one.
// Either assessment may be nil, in which case the direction is unknown.
func Clause(original, replay *domain.ClauseAssessment, om, rm *domain.ClauseMetrics) domain.ClauseDelta {
	d := domain.ClauseDelta{RiskLevelDir: domain.RiskDirectionUnknown}
	if original != nil {
		d.ClauseID = original.ClauseID
		d.OriginalRiskLevel = original.RiskLevel
	} else if replay != nil {
		d.ClauseID = replay.ClauseID
	}
	if replay != nil {
		d.ReplayRiskLevel = replay.RiskLevel
	}

	if original != nil && replay != nil {
		d.TextChanged = original.Text != replay.Text
		d.RiskLevelChanged = original.RiskLevel != replay.RiskLevel
		d.RiskLevelDir = direction(original.RiskLevel, replay.RiskLevel)
	}

	if om != nil && rm != nil {
		d.CostDelta = floatDelta(om.CostUSD, rm.CostUSD)
		d.DurationDelta = intDelta(om.DurationMs, rm.DurationMs)
	}
	return d
}

// direction maps an ordinal risk move onto up/down/none. "up" means the
// replay assessed more risk.
func direction(original, replay domain.RiskLevel) domain.RiskDirection {
	o, r := original.Ordinal(), replay.Ordinal()
	if o < 0 || r < 0 {
		return domain.RiskDirectionUnknown
	}
	switch {
	case r > o:
		return domain.RiskDirectionUp
	case r < o:
		return domain.RiskDirectionDown
	}
	return domain.RiskDirectionNone
}

func floatDelta(original, replay *float64) *float64 {
	if original == nil || replay == nil {
		return nil
	}
	d := *replay - *original
	return &d
}

func intDelta(original, replay *int64) *int64 {
	if original == nil || replay == nil {
		return nil
	}
	d := *replay - *original
	return &d
}

func riskCountDelta(original, replay map[domain.RiskLevel]int) map[domain.RiskLevel]int {
	if original == nil || replay == nil {
		return nil
	}
	out := make(map[domain.RiskLevel]int, 3)
	for _, level := range []domain.RiskLevel{domain.RiskHigh, domain.RiskMedium, domain.RiskLow} {
		out[level] = replay[level] - original[level]
	}
	return out
}
