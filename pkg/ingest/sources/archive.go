// Package sources locates and reads the monthly workbooks of a traffic
// archive laid out as root/<year>/[report dir/]<MM. MONTH>/<workbook>.xlsx.
package sources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tzl-ops/flightarchive/pkg/ingest/dates"
)

var (
	ErrRootMissing    = errors.New("sources: archive root not found")
	ErrYearNotFound   = errors.New("sources: year directory not found")
	ErrNoMonthFolders = errors.New("sources: no month folders")
	ErrNoWorkbook     = errors.New("sources: no workbook in month folder")
)

// DefaultReportDirs are probed, in order, below the year directory.
var DefaultReportDirs = []string{"Dnevni izvještaji", "Mjesečni izvještaji"}

// DefaultExcludeMarker marks summary workbooks that hold no flight rows.
const DefaultExcludeMarker = "STATISTIKA"

// Month is one month folder of the archive.
type Month struct {
	Number int
	Folder string
	Path   string
}

// Archive is a read-only view of the archive tree.
type Archive struct {
	Root          string
	ReportDirs    []string
	ExcludeMarker string
}

// NewArchive returns an archive rooted at root with the default report
// directories and exclude marker.
func NewArchive(root string) *Archive {
	return &Archive{
		Root:          root,
		ReportDirs:    DefaultReportDirs,
		ExcludeMarker: DefaultExcludeMarker,
	}
}

// Years lists the year directories under the root (four-digit names),
// ascending.
func (a *Archive) Years() ([]int, error) {
	entries, err := os.ReadDir(a.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRootMissing, a.Root)
	}

	var years []int
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || len(name) != 4 {
			continue
		}
		if y, err := strconv.Atoi(name); err == nil && y > 0 {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years, nil
}

// MonthsDir returns the directory holding the month folders of year: the
// first report directory that exists, or the year directory itself.
func (a *Archive) MonthsDir(year int) (string, error) {
	info, err := os.Stat(a.Root)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrRootMissing, a.Root)
	}

	yearDir := filepath.Join(a.Root, strconv.Itoa(year))
	entries, err := os.ReadDir(yearDir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrYearNotFound, yearDir)
	}

	for _, want := range a.ReportDirs {
		for _, e := range entries {
			if e.IsDir() && sameName(e.Name(), want) {
				return filepath.Join(yearDir, e.Name()), nil
			}
		}
	}
	return yearDir, nil
}

// Months lists the month folders of year ordered by month number. Folders
// whose name does not start with a month number are ignored.
func (a *Archive) Months(year int) ([]Month, error) {
	dir, err := a.MonthsDir(year)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoMonthFolders, dir, err)
	}

	var months []Month
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, ok := dates.LeadingNumber(e.Name())
		if !ok || n < 1 || n > 12 {
			continue
		}
		months = append(months, Month{Number: n, Folder: e.Name(), Path: filepath.Join(dir, e.Name())})
	}

	if len(months) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMonthFolders, dir)
	}

	sort.SliceStable(months, func(i, j int) bool {
		if months[i].Number != months[j].Number {
			return months[i].Number < months[j].Number
		}
		return months[i].Folder < months[j].Folder
	})
	return months, nil
}

// FilterMonths keeps the months matching filter: a month number ("3",
// "03") or a folder name, compared case-insensitively. An empty filter keeps
// every month.
func FilterMonths(months []Month, filter string) []Month {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return months
	}

	n, numeric := 0, false
	if v, err := strconv.Atoi(filter); err == nil {
		n, numeric = v, true
	}

	var out []Month
	for _, m := range months {
		if (numeric && m.Number == n) || sameName(m.Folder, filter) {
			out = append(out, m)
		}
	}
	return out
}

// SelectWorkbook picks the flight workbook of a month folder: an .xlsx file
// that is not an editor lock file, preferring names without the exclude
// marker, first in name order.
func (a *Archive) SelectWorkbook(m Month) (string, error) {
	entries, err := os.ReadDir(m.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNoWorkbook, m.Path, err)
	}

	var preferred, others []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		if a.ExcludeMarker != "" && strings.Contains(strings.ToUpper(name), strings.ToUpper(a.ExcludeMarker)) {
			others = append(others, name)
			continue
		}
		preferred = append(preferred, name)
	}

	candidates := preferred
	if len(candidates) == 0 {
		candidates = others
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoWorkbook, m.Path)
	}

	sort.Strings(candidates)
	return filepath.Join(m.Path, candidates[0]), nil
}

// sameName compares directory names ignoring case and Unicode normalization
// form (macOS stores decomposed names).
func sameName(a, b string) bool {
	return strings.EqualFold(norm.NFC.String(a), norm.NFC.String(b))
}
