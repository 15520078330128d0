package usecase

import (
	"fmt"
	"io"
	"sort"

	"github.com/apkrank/apk/internal/domain"
)

const (
	// DefaultReportSize is how many entries each listing holds
	DefaultReportSize = 20

	// DefaultProductURLBase prefixes product numbers in the listing
	DefaultProductURLBase = "https://www.systembolaget.se/"
)

// Report holds the highest and lowest ranked entries
type Report struct {
	Top    []domain.RankedEntry
	Bottom []domain.RankedEntry
}

// Rank sorts entries by metric, highest first, and returns the first n and
// the last n of that order. Equal metrics keep their input order. n <= 0
// selects DefaultReportSize. entries is not modified.
func Rank(entries []domain.RankedEntry, n int) Report {
	if n <= 0 {
		n = DefaultReportSize
	}

	sorted := make([]domain.RankedEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Metric.GreaterThan(sorted[j].Metric)
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return Report{
		Top:    sorted[:n],
		Bottom: sorted[len(sorted)-n:],
	}
}

// ReporterConfig holds listing format settings
type ReporterConfig struct {
	Precision      int32 // decimals printed for each metric
	ProductURLBase string
}

// Reporter prints ranked listings
type Reporter struct {
	precision      int32
	productURLBase string
}

// NewReporter creates a reporter
func NewReporter(cfg ReporterConfig) *Reporter {
	if cfg.ProductURLBase == "" {
		cfg.ProductURLBase = DefaultProductURLBase
	}
	return &Reporter{
		precision:      cfg.Precision,
		productURLBase: cfg.ProductURLBase,
	}
}

// Write prints both listings of report to w
func (r *Reporter) Write(w io.Writer, report Report) error {
	if _, err := fmt.Fprintln(w, "*** Highest APK products! ***"); err != nil {
		return err
	}
	if err := r.writeEntries(w, report.Top); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "*** Lowest APK products! ***"); err != nil {
		return err
	}
	return r.writeEntries(w, report.Bottom)
}

func (r *Reporter) writeEntries(w io.Writer, entries []domain.RankedEntry) error {
	for _, e := range entries {
		_, err := fmt.Fprintf(w, "apk of %s (# %s) is %s, %s%s\n",
			e.Name, e.ID, e.Metric.StringFixed(r.precision), r.productURLBase, e.ID)
		if err != nil {
			return err
		}
	}
	return nil
}
