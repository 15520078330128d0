package catalogfile

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apkrank/apk/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultTimestampLayout is the layout of the catalog's skapad-tid field
const DefaultTimestampLayout = "2006-01-02 15:04"

// Secondary fields picked up alongside the domain field names
const (
	fieldName2 = "Namn2"
	fieldGroup = "Varugrupp"
)

// decodeDocument parses raw catalog XML. Syntax errors carry their line.
func decodeDocument(path string, raw []byte) (*document, error) {
	var doc document
	if err := xml.Unmarshal(raw, &doc); err != nil {
		var syntaxErr *xml.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &domain.ParseError{Path: path, Line: syntaxErr.Line, Err: err}
		}
		return nil, &domain.ParseError{Path: path, Err: err}
	}
	return &doc, nil
}

// mapToSnapshot converts a decoded document into a domain snapshot
func mapToSnapshot(path string, doc *document, layout string, loc *time.Location) (*domain.CatalogSnapshot, error) {
	createdText := strings.TrimSpace(doc.CreatedAt)
	if createdText == "" {
		return nil, &domain.ParseError{Path: path, Err: fmt.Errorf("missing <skapad-tid> element")}
	}
	createdAt, err := time.ParseInLocation(layout, createdText, loc)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: fmt.Errorf("invalid <skapad-tid> %q: %w", createdText, err)}
	}

	snapshot := &domain.CatalogSnapshot{
		CreatedAt: createdAt,
		Records:   make([]domain.ProductRecord, 0, len(doc.Articles)),
	}

	// An unreadable annotation is ignored; the metrics are recomputed.
	if doc.Annotation != nil {
		if ann, err := mapAnnotation(doc.Annotation); err == nil {
			snapshot.Annotation = ann
		}
	}

	for i := range doc.Articles {
		snapshot.Records = append(snapshot.Records, mapToRecord(&doc.Articles[i]))
	}

	return snapshot, nil
}

// mapToRecord extracts the flat fields of an article. A cached metric that
// does not parse is dropped so the calculator evaluates the record again.
func mapToRecord(a *xmlArticle) domain.ProductRecord {
	field := func(name string) string {
		v, _ := a.lookup(name)
		return v
	}

	record := domain.ProductRecord{
		ID:          field(domain.FieldID),
		Name:        field(domain.FieldName),
		Name2:       field(fieldName2),
		Group:       field(fieldGroup),
		PriceText:   field(domain.FieldPrice),
		AlcoholText: field(domain.FieldAlcohol),
		VolumeText:  field(domain.FieldVolume),
	}

	if text, ok := a.lookup(elementMetric); ok {
		if metric, err := decimal.NewFromString(text); err == nil {
			record.Metric = &metric
		}
	}

	return record
}

func mapAnnotation(x *xmlAnnotation) (*domain.Annotation, error) {
	source, err := time.Parse(time.RFC3339, x.SourceCreated)
	if err != nil {
		return nil, fmt.Errorf("invalid annotation source-created %q: %w", x.SourceCreated, err)
	}
	computed, err := time.Parse(time.RFC3339, x.ComputedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid annotation computed-at %q: %w", x.ComputedAt, err)
	}
	return &domain.Annotation{
		Version:       x.Version,
		SourceCreated: source,
		ComputedAt:    computed,
	}, nil
}

// applySnapshot writes the snapshot's metrics and annotation into doc.
// The document must describe the same records, in the same order.
func applySnapshot(doc *document, snapshot *domain.CatalogSnapshot) error {
	if len(doc.Articles) != len(snapshot.Records) {
		return fmt.Errorf("catalog has %d articles, snapshot has %d records", len(doc.Articles), len(snapshot.Records))
	}

	for i := range doc.Articles {
		article := &doc.Articles[i]
		record := snapshot.Records[i]

		if id, _ := article.lookup(domain.FieldID); id != record.ID {
			return fmt.Errorf("article %d is %q, snapshot record is %q", i, id, record.ID)
		}

		if record.Metric == nil {
			article.remove(elementMetric)
			continue
		}
		article.set(elementMetric, record.Metric.String())
	}

	doc.Annotation = nil
	if snapshot.Annotation != nil {
		doc.Annotation = &xmlAnnotation{
			Version:       snapshot.Annotation.Version,
			SourceCreated: snapshot.Annotation.SourceCreated.Format(time.RFC3339),
			ComputedAt:    snapshot.Annotation.ComputedAt.Format(time.RFC3339),
		}
	}
	return nil
}
