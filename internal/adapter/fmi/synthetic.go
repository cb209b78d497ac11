package fmi

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/couchcryptid/sales-synth-service/internal/domain"
)

// SyntheticSource is an offline stand-in for the FMI API. It derives
// observations purely from the place name and timestamp, so repeated fetches
// for the same arguments always agree and tests need no network.
type SyntheticSource struct{}

// NewSyntheticSource creates the offline observation source.
func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{}
}

// FetchObservations synthesizes an hourly series over the interval: a
// seasonal temperature cycle with a diurnal swing, and occasional rain
// bursts. Columns are named by the requested external codes; codes other than
// the temperature and rain parameters come back as zero columns.
func (s *SyntheticSource) FetchObservations(_ context.Context, place string, interval domain.Interval, codes []string) (*domain.Frame, error) {
	stamps := interval.HourlyTimestamps()
	frame := domain.NewFrame(stamps)

	phase := float64(placeHash(place) % 24)

	for _, code := range codes {
		vals := make([]float64, len(stamps))
		for i, ts := range stamps {
			ts = ts.UTC()
			switch code {
			case "TA_PT1H_AVG":
				seasonal := 10 * math.Sin(2*math.Pi*float64(ts.YearDay())/365)
				diurnal := 5 * math.Sin(2*math.Pi*(float64(ts.Hour())+phase)/24)
				vals[i] = 8 + seasonal + diurnal
			case "PRA_PT1H_ACC":
				// Rain roughly every sixth hour, amount keyed to the hour.
				h := placeHash(place) + uint64(ts.Unix()/3600)
				if h%6 == 0 {
					vals[i] = float64(h%10) / 10
				}
			}
		}
		if err := frame.AddColumn(code, vals); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func placeHash(place string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(place))
	return h.Sum64()
}
