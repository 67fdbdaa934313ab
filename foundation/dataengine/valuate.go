package dataengine

import (
	"time"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
)

// OneWeight is a source weight multiplier of 1.0 in basis points.
const OneWeight = currency.OneBP

// Quality multipliers in basis points. The quality score is clamped to the
// [QualityMinBP, QualityMaxBP] band no matter how rich the metrics look.
const (
	QualityMinBP    = 5_000  // 0.5x
	qualityMediumBP = 10_000 // 1.0x
	QualityMaxBP    = 20_000 // 2.0x
)

// Freshness bonuses in basis points, monotonically non-increasing in age
// and decaying to a 1.0 floor.
const (
	freshnessHourBP  = 15_000
	freshnessDayBP   = 12_000
	freshnessFloorBP = 10_000
)

// Metrics carries the measurements taken while collecting data from a
// source. Zero values simply earn no quality points.
type Metrics struct {
	ContentSizeMMB uint64 `json:"content_size_mmb"` // Size in milli-megabytes.
	ResponseTimeMS uint64 `json:"response_time_ms"`
	LinksCount     uint64 `json:"links_count"`
	ImagesCount    uint64 `json:"images_count"`
	DataPoints     uint64 `json:"data_points"`
}

// QualityBP scores the metrics and maps the score to a basis point
// multiplier band.
func QualityBP(metrics Metrics) uint64 {
	var score int

	switch {
	case metrics.ContentSizeMMB > 1_000:
		score += 2
	case metrics.ContentSizeMMB > 100:
		score++
	}

	switch {
	case metrics.ResponseTimeMS > 0 && metrics.ResponseTimeMS < 1_000:
		score += 2
	case metrics.ResponseTimeMS > 0 && metrics.ResponseTimeMS < 5_000:
		score++
	}

	if metrics.LinksCount > 10 {
		score++
	}
	if metrics.ImagesCount > 5 {
		score++
	}

	switch {
	case metrics.DataPoints > 100:
		score += 2
	case metrics.DataPoints > 10:
		score++
	}

	var bp uint64
	switch {
	case score >= 6:
		bp = QualityMaxBP
	case score >= 3:
		bp = qualityMediumBP
	default:
		bp = QualityMinBP
	}

	return currency.ClampBP(bp, QualityMinBP, QualityMaxBP)
}

// sourceTypeBP returns the multiplier for the source type. Unknown types
// value like a plain web page.
func sourceTypeBP(sourceType string) uint64 {
	switch sourceType {
	case SourceTypeAPI:
		return 15_000
	case SourceTypeRSS:
		return 8_000
	case SourceTypeSocial:
		return 12_000
	default:
		return 10_000
	}
}

// freshnessBP returns the bonus for recently collected data. A source that
// was never collected gets the floor.
func freshnessBP(ds DataSource, now time.Time) uint64 {
	if ds.LastCollected == 0 {
		return freshnessFloorBP
	}

	age := now.UTC().Sub(time.Unix(int64(ds.LastCollected), 0))
	switch {
	case age < time.Hour:
		return freshnessHourBP
	case age < 24*time.Hour:
		return freshnessDayBP
	default:
		return freshnessFloorBP
	}
}

// Valuate computes the currency value of a quantity of collected data. The
// base rate is the number of units one megabyte earns before multipliers;
// sizes are carried in milli-megabytes so the math stays in integers. Each
// multiplier is applied with its own division so intermediate values stay
// inside uint64 range.
func Valuate(baseRate currency.Units, sizeMMB uint64, metrics Metrics, ds DataSource, now time.Time) currency.Units {
	base := currency.Units(uint64(baseRate) * sizeMMB / 1_000)

	weight := ds.WeightBP
	if weight == 0 {
		weight = OneWeight
	}

	value := base.ApplyBP(QualityBP(metrics))
	value = value.ApplyBP(sourceTypeBP(ds.Type))
	value = value.ApplyBP(weight)
	value = value.ApplyBP(freshnessBP(ds, now))

	return value
}
