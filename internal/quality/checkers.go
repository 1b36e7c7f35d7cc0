package quality

import (
	"strings"

	"github.com/veridata-labs/marketplace-broker/model"
)

// formatChecker contributes the format-specific metrics of a quality run.
// Metrics a checker does not produce stay absent from the result map so they
// never dilute the aggregate.
type formatChecker interface {
	Check(sub *model.Submission) model.MetricsMap
}

type staticChecker struct {
	metrics model.MetricsMap
}

func (c staticChecker) Check(_ *model.Submission) model.MetricsMap {
	out := make(model.MetricsMap, len(c.metrics))
	for k, v := range c.metrics {
		out[k] = v
	}
	return out
}

// checkers maps a format name to its metric set. Scores are calibrated
// placeholders until the analysis backends land; the aggregation, issue and
// approval logic downstream is final.
var checkers = map[string]formatChecker{
	"CSV":     staticChecker{model.MetricsMap{"accuracy": 85, "validity": 90, "consistency": 80, "distributionScore": 75}},
	"JSON":    staticChecker{model.MetricsMap{"validity": 88, "consistency": 82}},
	"PARQUET": staticChecker{model.MetricsMap{"accuracy": 90, "consistency": 86}},
	"IMAGES":  staticChecker{model.MetricsMap{"resolutionScore": 83, "diversity": 78}},
	"TEXT":    staticChecker{model.MetricsMap{"languageQuality": 84, "diversity": 76}},
	"AUDIO":   staticChecker{model.MetricsMap{"clarity": 81, "sampleRateScore": 87}},
}

// defaultChecker handles formats without a dedicated check set. It adds no
// metrics; such submissions are judged on completeness and compliance alone.
var defaultChecker formatChecker = staticChecker{model.MetricsMap{}}

func checkerFor(format string) formatChecker {
	if c, ok := checkers[format]; ok {
		return c
	}
	return defaultChecker
}

// expectedExtensions lists the extensions considered native to a format.
// Formats absent here have no expected set and pass compliance outright.
var expectedExtensions = map[string]map[string]struct{}{
	"CSV":     toSet("csv"),
	"JSON":    toSet("json"),
	"PARQUET": toSet("parquet"),
	"IMAGES":  toSet("jpg", "jpeg", "png", "gif", "webp", "bmp"),
	"TEXT":    toSet("txt", "md"),
	"AUDIO":   toSet("wav", "mp3", "flac", "ogg"),
}

func toSet(exts ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[e] = struct{}{}
	}
	return set
}

// completeness starts at 100 and deducts for each missing descriptive field,
// floored at 0.
func completeness(sub *model.Submission) float64 {
	score := 100.0
	if sub.FileSize == 0 {
		score -= 20
	}
	if sub.SampleCount == 0 {
		score -= 20
	}
	if len(sub.FileExtensions) == 0 {
		score -= 10
	}
	if sub.DatasetRef == "" {
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	return score
}

// formatCompliance scores the fraction of declared extensions native to the
// declared format. No expected set for the format, or nothing declared,
// scores 100.
func formatCompliance(sub *model.Submission) float64 {
	expected, ok := expectedExtensions[sub.Format]
	if !ok || len(sub.FileExtensions) == 0 {
		return 100
	}
	matched := 0
	for _, ext := range sub.FileExtensions {
		if _, ok := expected[normalizeExtension(ext)]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(sub.FileExtensions)) * 100
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
