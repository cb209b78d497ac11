package domain

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// SalesRecord is one flat sales fact row. (location_id, person_id,
// product_id, timestamp) is the natural key and the merge key used by the
// table store.
type SalesRecord struct {
	LocationID int       `json:"location_id"`
	PersonID   int       `json:"person_id"`
	ProductID  int       `json:"product_id"`
	Timestamp  time.Time `json:"timestamp"`
	Sales      int       `json:"sales"`
}

// SalesMergeKeys is the merge key set for the flat sales table.
var SalesMergeKeys = []string{ColLocationID, ColPersonID, ColProductID, ColTimestamp}

// WeatherMergeKeys is the merge key set for the flat weather table.
var WeatherMergeKeys = []string{ColLocationID, ColTimestamp}

// WeatherRecord is one flat weather fact row; Values aligns with the owning
// WeatherTable's Columns. (location_id, timestamp) is the natural key.
type WeatherRecord struct {
	LocationID int       `json:"location_id"`
	Timestamp  time.Time `json:"timestamp"`
	Values     []float64 `json:"values"`
}

// WeatherTable is the flat weather fact table: a shared value-column header
// plus rows for every location.
type WeatherTable struct {
	Columns []string        `json:"columns"`
	Records []WeatherRecord `json:"records"`
}

// LocaleData is one location's generation output: each salesperson's wide
// sales-by-product table plus the location's weather series.
type LocaleData struct {
	Sales   map[int]*ProductSales
	Weather *Frame
}

// FleetData is the nested generation result keyed by location id, with run
// metadata stamped from the package clock.
type FleetData struct {
	Locales     map[int]*LocaleData
	GeneratedAt time.Time
}

// NewFleetData wraps the nested result and stamps the generation time.
func NewFleetData(locales map[int]*LocaleData) *FleetData {
	return &FleetData{Locales: locales, GeneratedAt: clock.Now()}
}

// Flatten reshapes the nested generation result into flat fact rows: sales
// melted to (location, person, product, timestamp, sales) and weather
// concatenated with the location id attached. Output order is deterministic
// (ascending location, person, timestamp, product column position). Every
// locale's weather frame must carry the same columns.
func Flatten(locales map[int]*LocaleData) ([]SalesRecord, WeatherTable, error) {
	locationIDs := make([]int, 0, len(locales))
	for id := range locales {
		locationIDs = append(locationIDs, id)
	}
	sort.Ints(locationIDs)

	var sales []SalesRecord
	var weather WeatherTable

	for _, locID := range locationIDs {
		data := locales[locID]

		personIDs := make([]int, 0, len(data.Sales))
		for id := range data.Sales {
			personIDs = append(personIDs, id)
		}
		sort.Ints(personIDs)

		for _, personID := range personIDs {
			table := data.Sales[personID]
			for t, ts := range table.Timestamps {
				for p, productID := range table.ProductIDs {
					sales = append(sales, SalesRecord{
						LocationID: locID,
						PersonID:   personID,
						ProductID:  productID,
						Timestamp:  ts,
						Sales:      table.Counts[t][p],
					})
				}
			}
		}

		if data.Weather == nil {
			continue
		}
		cols := data.Weather.ColumnNames()
		if weather.Columns == nil {
			weather.Columns = cols
		} else if !slices.Equal(weather.Columns, cols) {
			return nil, WeatherTable{}, fmt.Errorf("flatten: location %d weather columns %v do not match %v", locID, cols, weather.Columns)
		}
		for i, ts := range data.Weather.Timestamps() {
			values := make([]float64, len(cols))
			for c, name := range cols {
				col, _ := data.Weather.Column(name)
				values[c] = col[i]
			}
			weather.Records = append(weather.Records, WeatherRecord{
				LocationID: locID,
				Timestamp:  ts,
				Values:     values,
			})
		}
	}
	return sales, weather, nil
}

// Unflatten is the inverse of Flatten: it groups the flat sales rows by
// (location, person), pivots product ids back into columns (ascending), and
// regroups the weather rows per location. It rejects duplicate (timestamp,
// product) pairs within one person's data, since a pivot cannot represent
// them.
func Unflatten(sales []SalesRecord, weather WeatherTable) (map[int]*LocaleData, error) {
	locales := make(map[int]*LocaleData)
	locale := func(id int) *LocaleData {
		if locales[id] == nil {
			locales[id] = &LocaleData{Sales: make(map[int]*ProductSales)}
		}
		return locales[id]
	}

	type personKey struct{ location, person int }
	grouped := make(map[personKey][]SalesRecord)
	for _, rec := range sales {
		key := personKey{rec.LocationID, rec.PersonID}
		grouped[key] = append(grouped[key], rec)
	}

	for key, recs := range grouped {
		table, err := pivotProductSales(recs)
		if err != nil {
			return nil, fmt.Errorf("unflatten location %d person %d: %w", key.location, key.person, err)
		}
		locale(key.location).Sales[key.person] = table
	}

	byLocation := make(map[int][]WeatherRecord)
	for _, rec := range weather.Records {
		byLocation[rec.LocationID] = append(byLocation[rec.LocationID], rec)
	}
	for locID, recs := range byLocation {
		timestamps := make([]time.Time, len(recs))
		for i, rec := range recs {
			timestamps[i] = rec.Timestamp
		}
		frame := NewFrame(timestamps)
		for c, name := range weather.Columns {
			vals := make([]float64, len(recs))
			for i, rec := range recs {
				vals[i] = rec.Values[c]
			}
			if err := frame.AddColumn(name, vals); err != nil {
				return nil, fmt.Errorf("unflatten weather for location %d: %w", locID, err)
			}
		}
		locale(locID).Weather = frame
	}
	return locales, nil
}

// pivotProductSales rebuilds one person's wide table from their long rows.
func pivotProductSales(recs []SalesRecord) (*ProductSales, error) {
	productSet := make(map[int]struct{})
	timeSet := make(map[time.Time]struct{})
	for _, rec := range recs {
		productSet[rec.ProductID] = struct{}{}
		timeSet[rec.Timestamp] = struct{}{}
	}

	productIDs := make([]int, 0, len(productSet))
	for id := range productSet {
		productIDs = append(productIDs, id)
	}
	sort.Ints(productIDs)
	productIdx := make(map[int]int, len(productIDs))
	for i, id := range productIDs {
		productIdx[id] = i
	}

	timestamps := make([]time.Time, 0, len(timeSet))
	for ts := range timeSet {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })
	timeIdx := make(map[time.Time]int, len(timestamps))
	for i, ts := range timestamps {
		timeIdx[ts] = i
	}

	counts := make([][]int, len(timestamps))
	seen := make([][]bool, len(timestamps))
	for i := range counts {
		counts[i] = make([]int, len(productIDs))
		seen[i] = make([]bool, len(productIDs))
	}
	for _, rec := range recs {
		t, p := timeIdx[rec.Timestamp], productIdx[rec.ProductID]
		if seen[t][p] {
			return nil, fmt.Errorf("duplicate row for product %d at %s", rec.ProductID, rec.Timestamp.Format(time.RFC3339))
		}
		seen[t][p] = true
		counts[t][p] = rec.Sales
	}
	return &ProductSales{Timestamps: timestamps, ProductIDs: productIDs, Counts: counts}, nil
}
