package usecase

import (
	"errors"
	"strings"
	"time"

	"github.com/apkrank/apk/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AnnotationVersion identifies how cached metrics were computed. Bump it when
// the formula or the validation rules change so old annotations are ignored.
const AnnotationVersion = 1

var hundred = decimal.NewFromInt(100)

// Computation is the outcome of one pass over a snapshot
type Computation struct {
	Entries []domain.RankedEntry

	// Reused is true when the snapshot's annotation was valid and nothing
	// had to be recomputed; the annotation on disk is then up to date.
	Reused bool

	// Skipped counts alcohol-free records
	Skipped int
}

// MetricCalculator computes alcohol-per-krona for every record of a snapshot
type MetricCalculator struct {
	version int
	now     func() time.Time
	log     logrus.FieldLogger
}

// NewMetricCalculator creates a calculator. A nil now defaults to time.Now.
func NewMetricCalculator(log logrus.FieldLogger, now func() time.Time) *MetricCalculator {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MetricCalculator{
		version: AnnotationVersion,
		now:     now,
		log:     log.WithField("component", "calculator"),
	}
}

// Compute evaluates every record and annotates the snapshot in place.
//
// Cached metrics are reused only when the snapshot's annotation matches this
// calculator's version and the snapshot's creation time; otherwise all cached
// values are dropped and recomputed. Records that fail validation produce no
// entry, and their *domain.ValidationError values are joined into the
// returned error alongside the entries of the valid records.
func (c *MetricCalculator) Compute(snapshot *domain.CatalogSnapshot) (Computation, error) {
	reuse := c.annotationValid(snapshot)
	result := Computation{
		Entries: make([]domain.RankedEntry, 0, len(snapshot.Records)),
	}

	var errs []error
	changed := false
	for i := range snapshot.Records {
		record := &snapshot.Records[i]

		if reuse && record.Metric != nil {
			result.Entries = append(result.Entries, domain.RankedEntry{
				ID:     record.ID,
				Name:   record.DisplayName(),
				Metric: *record.Metric,
			})
			continue
		}

		if record.Metric != nil {
			record.Metric = nil
			changed = true
		}

		metric, ok, err := evaluate(record)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			result.Skipped++
			continue
		}

		record.Metric = &metric
		changed = true
		result.Entries = append(result.Entries, domain.RankedEntry{
			ID:     record.ID,
			Name:   record.DisplayName(),
			Metric: metric,
		})
	}

	if !reuse || changed {
		snapshot.Annotation = &domain.Annotation{
			Version:       c.version,
			SourceCreated: snapshot.CreatedAt,
			ComputedAt:    c.now(),
		}
	}
	result.Reused = reuse && !changed

	c.log.WithFields(logrus.Fields{
		"entries":  len(result.Entries),
		"skipped":  result.Skipped,
		"rejected": len(errs),
		"reused":   result.Reused,
	}).Debug("metrics computed")

	return result, errors.Join(errs...)
}

func (c *MetricCalculator) annotationValid(snapshot *domain.CatalogSnapshot) bool {
	ann := snapshot.Annotation
	return ann != nil &&
		ann.Version == c.version &&
		ann.SourceCreated.Equal(snapshot.CreatedAt)
}

// evaluate returns the metric of a record, or ok=false for alcohol-free products
func evaluate(record *domain.ProductRecord) (metric decimal.Decimal, ok bool, err error) {
	alcohol, err := ParseAlcohol(record.AlcoholText)
	if err != nil {
		return decimal.Zero, false, withRecord(err, record.ID)
	}
	if alcohol.IsZero() {
		return decimal.Zero, false, nil
	}

	price, err := parseDecimal(domain.FieldPrice, record.PriceText)
	if err != nil {
		return decimal.Zero, false, withRecord(err, record.ID)
	}
	volume, err := parseDecimal(domain.FieldVolume, record.VolumeText)
	if err != nil {
		return decimal.Zero, false, withRecord(err, record.ID)
	}

	metric, err = Metric(price, alcohol, volume)
	if err != nil {
		return decimal.Zero, false, withRecord(err, record.ID)
	}
	return metric, true, nil
}

// ParseAlcohol parses an alcohol percentage such as "40.0%". The value must
// end with a percent sign and consist of digits and one optional decimal
// point, and may not exceed 100.
func ParseAlcohol(text string) (decimal.Decimal, error) {
	invalid := func(reason string) error {
		return &domain.ValidationError{Field: domain.FieldAlcohol, Value: text, Reason: reason}
	}

	if !strings.HasSuffix(text, "%") {
		return decimal.Zero, invalid("must end with %")
	}

	number := strings.TrimSuffix(text, "%")
	if !strings.ContainsAny(number, "0123456789") {
		return decimal.Zero, invalid("missing value")
	}
	for _, r := range number {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, invalid("only digits and . allowed")
		}
	}

	value, err := decimal.NewFromString(number)
	if err != nil {
		return decimal.Zero, invalid("not a decimal number")
	}
	if value.GreaterThan(hundred) {
		return decimal.Zero, invalid("cannot exceed 100%")
	}
	return value, nil
}

// Metric returns (volume × alcohol / 100) / price, the milliliters of pure
// alcohol bought per currency unit. Price and volume must be positive and
// alcohol must be within 0 to 100.
func Metric(price, alcoholPercent, volume decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, &domain.ValidationError{Field: domain.FieldPrice, Value: price.String(), Reason: "must be positive"}
	}
	if !volume.IsPositive() {
		return decimal.Zero, &domain.ValidationError{Field: domain.FieldVolume, Value: volume.String(), Reason: "must be positive"}
	}
	if alcoholPercent.IsNegative() || alcoholPercent.GreaterThan(hundred) {
		return decimal.Zero, &domain.ValidationError{Field: domain.FieldAlcohol, Value: alcoholPercent.String(), Reason: "must be between 0 and 100"}
	}

	alcoholML := volume.Mul(alcoholPercent).Div(hundred)
	return alcoholML.Div(price), nil
}

func parseDecimal(field, text string) (decimal.Decimal, error) {
	if text == "" {
		return decimal.Zero, &domain.ValidationError{Field: field, Value: text, Reason: "missing value"}
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, &domain.ValidationError{Field: field, Value: text, Reason: "not a decimal number"}
	}
	return value, nil
}

func withRecord(err error, id string) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		ve.RecordID = id
	}
	return err
}
