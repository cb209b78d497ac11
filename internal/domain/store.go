package domain

// WriteMode selects how a table write treats existing rows.
type WriteMode int

const (
	// WriteAppend adds rows without touching existing ones.
	WriteAppend WriteMode = iota
	// WriteOverwrite replaces the table's contents.
	WriteOverwrite
	// WriteMergeByKey upserts rows on the table's merge keys, keeping the
	// incoming value on conflict.
	WriteMergeByKey
)

func (m WriteMode) String() string {
	switch m {
	case WriteAppend:
		return "append"
	case WriteOverwrite:
		return "overwrite"
	case WriteMergeByKey:
		return "merge"
	default:
		return "unknown"
	}
}

// Table is the storage-neutral row batch handed to a table store. Cell values
// are int64, float64, string or time.Time; MergeKeys names the columns the
// merge write mode upserts on.
type Table struct {
	Name      string
	Columns   []string
	MergeKeys []string
	Rows      [][]any
}

// SalesTable converts flat sales records into a persistable table.
func SalesTable(name string, records []SalesRecord) Table {
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = []any{
			int64(rec.LocationID),
			int64(rec.PersonID),
			int64(rec.ProductID),
			rec.Timestamp.UTC(),
			int64(rec.Sales),
		}
	}
	return Table{
		Name:      name,
		Columns:   []string{ColLocationID, ColPersonID, ColProductID, ColTimestamp, ColSales},
		MergeKeys: SalesMergeKeys,
		Rows:      rows,
	}
}

// WeatherFactTable converts the flat weather table into a persistable table.
func WeatherFactTable(name string, weather WeatherTable) Table {
	columns := append([]string{ColLocationID, ColTimestamp}, weather.Columns...)
	rows := make([][]any, len(weather.Records))
	for i, rec := range weather.Records {
		row := make([]any, 0, len(columns))
		row = append(row, int64(rec.LocationID), rec.Timestamp.UTC())
		for _, v := range rec.Values {
			row = append(row, v)
		}
		rows[i] = row
	}
	return Table{
		Name:      name,
		Columns:   columns,
		MergeKeys: WeatherMergeKeys,
		Rows:      rows,
	}
}
