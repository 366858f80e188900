// Package index provides bitmap indexes over extracted flight records.
package index

import (
	"sort"
	"strconv"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/tzl-ops/flightarchive/internal/model"
)

// Indexed columns.
const (
	ColumnAirline       = "airline"
	ColumnDeparture     = "departureAirport"
	ColumnArrival       = "arrivalAirport"
	ColumnOperationType = "operationType"
	ColumnDate          = "date"
	ColumnLayout        = "layout"
)

// RecordIndex maps column values to roaring bitmaps of record positions,
// so filters like "airline=FLYNAS AND arrivalAirport=TZL" are set
// intersections instead of scans.
type RecordIndex struct {
	mu sync.RWMutex

	// columns maps column_name -> value -> bitmap of record positions
	columns map[string]map[string]*roaring.Bitmap

	count uint32
}

// NewRecordIndex creates an empty index.
func NewRecordIndex() *RecordIndex {
	return &RecordIndex{
		columns: make(map[string]map[string]*roaring.Bitmap),
	}
}

// Build indexes records; position i in the bitmaps is records[i].
func Build(records []model.FlightRecord) *RecordIndex {
	idx := NewRecordIndex()
	idx.Add(records)
	return idx
}

// Add appends records to the index. Positions continue after the records
// already indexed.
func (idx *RecordIndex) Add(records []model.FlightRecord) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i := range records {
		r := &records[i]
		pos := idx.count + uint32(i)
		idx.put(ColumnAirline, r.Airline, pos)
		idx.put(ColumnDeparture, r.DepartureAirport, pos)
		idx.put(ColumnArrival, r.ArrivalAirport, pos)
		idx.put(ColumnOperationType, r.OperationType, pos)
		idx.put(ColumnDate, r.Date.String(), pos)
		idx.put(ColumnLayout, layoutValue(r.Layout), pos)
	}
	idx.count += uint32(len(records))
}

func (idx *RecordIndex) put(column, value string, pos uint32) {
	if value == "" {
		return
	}
	valMap := idx.columns[column]
	if valMap == nil {
		valMap = make(map[string]*roaring.Bitmap)
		idx.columns[column] = valMap
	}
	bm, ok := valMap[value]
	if !ok {
		bm = roaring.New()
		valMap[value] = bm
	}
	bm.Add(pos)
}

// Lookup returns the positions where column == value. The result is a copy.
func (idx *RecordIndex) Lookup(column, value string) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.lookupUnsafe(column, value).Clone()
}

// LookupAnd returns positions matching ALL conditions. No conditions
// matches every record.
func (idx *RecordIndex) LookupAnd(conditions map[string]string) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := roaring.New()
	result.AddRange(0, uint64(idx.count))
	for col, val := range conditions {
		result.And(idx.lookupUnsafe(col, val))
		if result.IsEmpty() {
			break
		}
	}
	return result
}

// LookupAny returns positions where column equals any of values.
func (idx *RecordIndex) LookupAny(column string, values []string) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	bms := make([]*roaring.Bitmap, 0, len(values))
	for _, v := range values {
		bms = append(bms, idx.lookupUnsafe(column, v))
	}
	return roaring.FastOr(bms...)
}

// Cardinality returns the number of distinct values for a column.
func (idx *RecordIndex) Cardinality(column string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.columns[column])
}

// ValueCount is a column value and the number of records carrying it.
type ValueCount struct {
	Value string
	Count uint64
}

// Counts returns every distinct value of column with its record count,
// largest first, ties by value.
func (idx *RecordIndex) Counts(column string) []ValueCount {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]ValueCount, 0, len(idx.columns[column]))
	for v, bm := range idx.columns[column] {
		out = append(out, ValueCount{Value: v, Count: bm.GetCardinality()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Len returns the number of indexed records.
func (idx *RecordIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return int(idx.count)
}

// Select returns the records at the positions of bm, in order.
func Select(records []model.FlightRecord, bm *roaring.Bitmap) []model.FlightRecord {
	out := make([]model.FlightRecord, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		if i < len(records) {
			out = append(out, records[i])
		}
	}
	return out
}

// lookupUnsafe performs a lookup without locking (caller must hold lock).
func (idx *RecordIndex) lookupUnsafe(column, value string) *roaring.Bitmap {
	if bm, ok := idx.columns[column][value]; ok {
		return bm
	}
	return roaring.New()
}

func layoutValue(l int) string {
	if l <= 0 {
		return ""
	}
	return strconv.Itoa(l)
}
