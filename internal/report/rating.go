package report

import (
	"math"
	"strings"

	"github.com/surflog/surf-forecast-service/internal/common"
	"github.com/surflog/surf-forecast-service/internal/surfline"
)

// Rating is a 1-5 surf-quality score in steps of 0.5, with its plain-language
// description.
type Rating struct {
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// worldClassSpots get a small boost when size and period line up.
var worldClassSpots = []string{"pipeline", "teahupoo", "jaws", "waimea", "supertubos"}

// ComputeRating scores the matched wave/wind/tide samples for a spot. When
// Surfline supplies its own rating on the wave sample it is used verbatim;
// the heuristic below only runs when the provider omits one. Pure function:
// identical inputs always produce identical output.
func ComputeRating(wave surfline.WaveSample, wind *surfline.WindSample, tide *surfline.TideSample, spotName string) Rating {
	if wave.Rating != nil && wave.Rating.Value > 0 {
		return Rating{
			Value:       wave.Rating.Value,
			Description: ratingDescription(wave.Rating.Value),
		}
	}

	avgHeight := (wave.Surf.Min + wave.Surf.Max) / 2
	rating := baseRatingFromHeight(avgHeight)

	// Longer-period swell means better-organized surf.
	var primary *surfline.Swell
	if len(wave.Swells) > 0 {
		primary = &wave.Swells[0]
	}
	if primary != nil && primary.Period > 0 {
		switch {
		case primary.Period >= 16:
			rating += 1.0 // excellent groundswell
		case primary.Period >= 13:
			rating += 0.5
		case primary.Period >= 10:
			rating += 0.25
		case primary.Period < 8:
			rating -= 0.5 // disorganized windswell
		}
	}

	// Multiple active swells add consistency.
	active := 0
	for _, s := range wave.Swells {
		if s.Height > 0.1 {
			active++
		}
	}
	if active >= 2 {
		rating += 0.25
	}
	if active >= 3 {
		rating += 0.25
	}

	if wind != nil {
		rating += windAdjustment(wind)
	}

	if tide != nil {
		tideType := strings.ToLower(tide.Type)
		if strings.Contains(tideType, "low") && avgHeight > 2 {
			rating -= 0.25
		}
		if strings.Contains(tideType, "high") && avgHeight < 1 {
			rating += 0.25
		}
	}

	rating += spotAdjustment(spotName, avgHeight, primary)

	rating = clampRating(math.Round(rating*2) / 2)

	return Rating{
		Value:       rating,
		Description: ratingDescription(rating),
	}
}

// baseRatingFromHeight maps average wave height in meters to a starting
// score. Monotonically non-decreasing in height.
func baseRatingFromHeight(height float64) float64 {
	switch {
	case height < 0.3:
		return 1 // flat
	case height < 0.8:
		return 1.5
	case height < 1.2:
		return 2 // ankle to knee high
	case height < 1.8:
		return 2.5
	case height < 2.5:
		return 3 // waist high
	case height < 3.2:
		return 3.5
	case height < 4.0:
		return 4 // head high
	case height < 5.0:
		return 4.5
	default:
		return 5 // double overhead and up
	}
}

func windAdjustment(wind *surfline.WindSample) float64 {
	var adj float64

	direction := strings.ToLower(wind.DirectionType)
	switch {
	case strings.Contains(direction, "cross offshore"):
		adj += 0.5
	case strings.Contains(direction, "offshore"):
		adj += 0.75
	case strings.Contains(direction, "cross onshore"):
		adj -= 0.25
	case strings.Contains(direction, "onshore"):
		adj -= 0.5
	}

	if wind.Speed < 5 {
		adj += 0.25
	}
	if wind.Speed > 20 {
		adj -= 0.5
	}
	if wind.Speed > 30 {
		adj -= 1.0
	}

	return adj
}

// spotAdjustment applies coarse spot-class heuristics from the name alone.
func spotAdjustment(spotName string, avgHeight float64, primary *surfline.Swell) float64 {
	name := strings.ToLower(spotName)

	// Beach breaks are more forgiving at any size.
	if common.HasAny(name, "beach", "ocean") {
		return 0.1
	}

	// Reef and point breaks need size to work.
	if common.HasAny(name, "point", "reef") {
		if avgHeight < 2 {
			return -0.2
		}
		if avgHeight > 3 {
			return 0.1
		}
		return 0
	}

	if common.HasAny(name, worldClassSpots...) {
		if avgHeight > 4 && primary != nil && primary.Period > 14 {
			return 0.3
		}
	}

	return 0
}

func clampRating(v float64) float64 {
	return math.Max(1, math.Min(5, v))
}

// ratingDescription maps a score to its label via the nearest integer.
func ratingDescription(value float64) string {
	switch int(math.Round(value)) {
	case 1:
		return "VERY POOR"
	case 2:
		return "POOR"
	case 3:
		return "FAIR"
	case 4:
		return "FAIR TO GOOD"
	case 5:
		return "GOOD"
	default:
		return "UNKNOWN"
	}
}
