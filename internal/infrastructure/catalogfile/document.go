package catalogfile

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// elementMetric holds the computed alcohol-per-krona value of an article
const elementMetric = "apk"

// document mirrors the catalog file. Elements the codec does not know about
// are kept in Extra and written back unchanged.
type document struct {
	XMLName    xml.Name       `xml:"artiklar"`
	Attrs      []xml.Attr     `xml:",any,attr"`
	CreatedAt  string         `xml:"skapad-tid"`
	Annotation *xmlAnnotation `xml:"apk-annotation"`
	Extra      []xmlField     `xml:",any"`
	Articles   []xmlArticle   `xml:"artikel"`
}

type xmlAnnotation struct {
	Version       int    `xml:"version,attr"`
	SourceCreated string `xml:"source-created,attr"`
	ComputedAt    string `xml:"computed-at,attr"`
}

// xmlArticle keeps every child element in document order so lookups stay
// flat and unknown fields survive a rewrite.
type xmlArticle struct {
	Attrs  []xml.Attr `xml:",any,attr"`
	Fields []xmlField `xml:",any"`
}

type xmlField struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// lookup returns the text of the first child named name
func (a *xmlArticle) lookup(name string) (string, bool) {
	for _, f := range a.Fields {
		if f.XMLName.Local == name {
			return fieldText(f.Inner), true
		}
	}
	return "", false
}

// set replaces the text of the first child named name, appending it when absent
func (a *xmlArticle) set(name, text string) {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(text))
	for i := range a.Fields {
		if a.Fields[i].XMLName.Local == name {
			a.Fields[i].Inner = buf.String()
			return
		}
	}
	a.Fields = append(a.Fields, xmlField{XMLName: xml.Name{Local: name}, Inner: buf.String()})
}

// remove drops every child named name
func (a *xmlArticle) remove(name string) {
	kept := a.Fields[:0]
	for _, f := range a.Fields {
		if f.XMLName.Local != name {
			kept = append(kept, f)
		}
	}
	a.Fields = kept
}

// fieldText turns raw inner XML into its character data
func fieldText(inner string) string {
	if !strings.ContainsAny(inner, "&<") {
		return strings.TrimSpace(inner)
	}
	var v struct {
		Text string `xml:",chardata"`
	}
	if err := xml.Unmarshal([]byte("<v>"+inner+"</v>"), &v); err != nil {
		return strings.TrimSpace(inner)
	}
	return strings.TrimSpace(v.Text)
}

// plainAttrs drops namespaced attributes, which encoding/xml cannot write
// back under their original prefixes
func plainAttrs(attrs []xml.Attr) []xml.Attr {
	var kept []xml.Attr
	for _, a := range attrs {
		if a.Name.Space == "" && a.Name.Local != "xmlns" {
			kept = append(kept, a)
		}
	}
	return kept
}

func (d *document) normalize() {
	d.Attrs = plainAttrs(d.Attrs)
	for i := range d.Extra {
		d.Extra[i].Attrs = plainAttrs(d.Extra[i].Attrs)
	}
	for i := range d.Articles {
		a := &d.Articles[i]
		a.Attrs = plainAttrs(a.Attrs)
		for j := range a.Fields {
			a.Fields[j].Attrs = plainAttrs(a.Fields[j].Attrs)
		}
	}
}

func (d *document) marshal() ([]byte, error) {
	d.normalize()
	out, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
