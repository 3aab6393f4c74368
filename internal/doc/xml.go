package doc

import (
	"encoding/xml"
	"io"
	"sort"

	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/ferrors"
)

// ReadXMLDocument opens path, verifies its root element matches
// rootElement (surfacing ferrors.DocInvalidType on mismatch), and
// dispatches each direct child element to itemHandlers by tag name.
// Absent files are the caller's responsibility to detect beforehand
// (checkout returns a fresh empty document in that case, per spec.md
// §4.3).
func ReadXMLDocument(fs afero.Fs, path, docName, rootElement string, itemHandlers map[string]func(dec *xml.Decoder, start xml.StartElement) error) error {
	f, err := fs.Open(path)
	if err != nil {
		return ferrors.NewDocHandlingError(ferrors.DocCantOpen, docName, err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	sawRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ferrors.NewDocHandlingError(ferrors.DocReadFailed, docName, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !sawRoot {
				if t.Name.Local != rootElement {
					return ferrors.NewDocHandlingError(ferrors.DocInvalidType, docName, nil)
				}
				sawRoot = true
				continue
			}
			handler, ok := itemHandlers[t.Name.Local]
			if !ok {
				if err := dec.Skip(); err != nil {
					return ferrors.NewDocHandlingError(ferrors.DocReadFailed, docName, err)
				}
				continue
			}
			if err := handler(dec, t); err != nil {
				return ferrors.NewDocHandlingError(ferrors.DocReadFailed, docName, err)
			}
		}
	}
	if !sawRoot {
		return ferrors.NewDocHandlingError(ferrors.DocInvalidType, docName, nil)
	}
	return nil
}

// WriteXMLDocument creates (or truncates) path, emits the XML
// declaration and the fixed root element, invokes writeItems to emit
// the document's children, then closes the root element.
func WriteXMLDocument(fs afero.Fs, path, docName, rootElement string, writeItems func(enc *xml.Encoder) error) error {
	f, err := fs.Create(path)
	if err != nil {
		return ferrors.NewDocHandlingError(ferrors.DocCantSave, docName, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte(xml.Header)); err != nil {
		return ferrors.NewDocHandlingError(ferrors.DocWriteFailed, docName, err)
	}

	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	start := xml.StartElement{Name: xml.Name{Local: rootElement}}
	if err := enc.EncodeToken(start); err != nil {
		return ferrors.NewDocHandlingError(ferrors.DocWriteFailed, docName, err)
	}
	if err := writeItems(enc); err != nil {
		return ferrors.NewDocHandlingError(ferrors.DocWriteFailed, docName, err)
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return ferrors.NewDocHandlingError(ferrors.DocWriteFailed, docName, err)
	}
	return enc.Flush()
}

// DecodeItemFields consumes the children of an already-opened start
// element, routing recognized child tags (keyed in known, by tag name,
// case-sensitive) into the pointed-at strings and every other child's
// text into the returned map, keyed by tag name — this is what makes
// "other-fields preservation" hold for attributes this importer does
// not model.
func DecodeItemFields(dec *xml.Decoder, start xml.StartElement, known map[string]*string) (map[string]string, error) {
	other := make(map[string]string)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var text string
			if err := dec.DecodeElement(&text, &t); err != nil {
				return nil, err
			}
			if dst, ok := known[t.Name.Local]; ok {
				*dst = text
			} else {
				other[t.Name.Local] = text
			}
		case xml.EndElement:
			if t.Name == start.Name {
				return other, nil
			}
		}
	}
}

// EncodeItemField is one ordered (tag, value) pair to emit for an item.
type EncodeItemField struct {
	Tag   string
	Value string
}

// EncodeItem writes elementName containing fields in the given order
// followed by other (sorted by tag for determinism), skipping any field
// or other-entry whose value is empty — matching the teacher's
// writeXMLField convention in cmd/romu/main.go ("Empty metadata fields
// are omitted").
func EncodeItem(enc *xml.Encoder, elementName string, fields []EncodeItemField, other map[string]string) error {
	start := xml.StartElement{Name: xml.Name{Local: elementName}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		if err := encodeChild(enc, f.Tag, f.Value); err != nil {
			return err
		}
	}
	keys := make([]string, 0, len(other))
	for k := range other {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if other[k] == "" {
			continue
		}
		if err := encodeChild(enc, k, other[k]); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func encodeChild(enc *xml.Encoder, tag, value string) error {
	cs := xml.StartElement{Name: xml.Name{Local: tag}}
	if err := enc.EncodeToken(cs); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.CharData(value)); err != nil {
		return err
	}
	return enc.EncodeToken(cs.End())
}
