package index

import (
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/tzl-ops/flightarchive/internal/model"
)

// DayCoverage tracks which days of one calendar month produced records.
type DayCoverage struct {
	Year  int
	Month time.Month
	days  *roaring.Bitmap
}

// NewDayCoverage creates an empty coverage for a month.
func NewDayCoverage(year int, month time.Month) *DayCoverage {
	return &DayCoverage{Year: year, Month: month, days: roaring.New()}
}

// Add marks the day of d when it falls in the coverage month.
func (c *DayCoverage) Add(d model.Date) {
	if d.Year == c.Year && d.Month == c.Month {
		c.days.Add(uint32(d.Day))
	}
}

// AddRecords marks the days of every record in the month.
func (c *DayCoverage) AddRecords(records []model.FlightRecord) {
	for i := range records {
		c.Add(records[i].Date)
	}
}

// DaysInMonth returns the length of the coverage month.
func (c *DayCoverage) DaysInMonth() int {
	return time.Date(c.Year, c.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Covered returns the covered days in ascending order.
func (c *DayCoverage) Covered() []int {
	return toInts(c.days)
}

// Missing returns the calendar days with no records, ascending.
func (c *DayCoverage) Missing() []int {
	all := roaring.New()
	all.AddRange(1, uint64(c.DaysInMonth())+1)
	all.AndNot(c.days)
	return toInts(all)
}

func toInts(bm *roaring.Bitmap) []int {
	out := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}
