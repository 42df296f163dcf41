package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

type DocumentKind uint8

const (
	DocumentNull DocumentKind = iota
	DocumentBool
	DocumentNumber
	DocumentString
	DocumentArray
	DocumentObject
)

func (k DocumentKind) String() string {
	switch k {
	case DocumentNull:
		return "null"
	case DocumentBool:
		return "bool"
	case DocumentNumber:
		return "number"
	case DocumentString:
		return "string"
	case DocumentArray:
		return "array"
	case DocumentObject:
		return "object"
	}
	return fmt.Sprintf("DocumentKind(%d)", uint8(k))
}

// Document is a free-form structured value (eligibility, technical and
// evaluation criteria, proposal bodies). The zero value is null.
type Document struct {
	kind   DocumentKind
	b      bool
	n      json.Number
	s      string
	items  []Document
	fields map[string]Document
}

func NullDocument() Document { return Document{} }
func BoolDocument(b bool) Document { return Document{kind: DocumentBool, b: b} }
func NumberDocument(n float64) Document {
	return Document{kind: DocumentNumber, n: json.Number(strconv.FormatFloat(n, 'f', -1, 64))}
}

// IntDocument keeps every digit of n, unlike NumberDocument.
func IntDocument(n int64) Document {
	return Document{kind: DocumentNumber, n: json.Number(strconv.FormatInt(n, 10))}
}
func StringDocument(s string) Document { return Document{kind: DocumentString, s: s} }

func ArrayDocument(items ...Document) Document {
	return Document{kind: DocumentArray, items: append([]Document(nil), items...)}
}

func ObjectDocument(fields map[string]Document) Document {
	m := make(map[string]Document, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return Document{kind: DocumentObject, fields: m}
}

func (d Document) Kind() DocumentKind { return d.kind }
func (d Document) IsNull() bool { return d.kind == DocumentNull }

func (d Document) Bool() (bool, bool) { return d.b, d.kind == DocumentBool }
func (d Document) Number() (float64, bool) {
	if d.kind != DocumentNumber {
		return 0, false
	}
	f, err := d.n.Float64()
	return f, err == nil
}

// Int64 reports the number exactly when it is an integer that fits in int64.
func (d Document) Int64() (int64, bool) {
	if d.kind != DocumentNumber {
		return 0, false
	}
	i, err := d.n.Int64()
	return i, err == nil
}

// NumberText is the number as it appeared in JSON.
func (d Document) NumberText() (string, bool) { return d.n.String(), d.kind == DocumentNumber }
func (d Document) Str() (string, bool) { return d.s, d.kind == DocumentString }
func (d Document) Items() ([]Document, bool) { return d.items, d.kind == DocumentArray }
func (d Document) Len() int { return len(d.items) + len(d.fields) }

// Field returns the named member of an object document.
func (d Document) Field(name string) (Document, bool) {
	if d.kind != DocumentObject {
		return Document{}, false
	}
	v, ok := d.fields[name]
	return v, ok
}

// Keys returns object member names in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.fields))
	for k := range d.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d Document) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case DocumentNull:
		return []byte("null"), nil
	case DocumentBool:
		return json.Marshal(d.b)
	case DocumentNumber:
		return json.Marshal(d.n)
	case DocumentString:
		return json.Marshal(d.s)
	case DocumentArray:
		if d.items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(d.items)
	case DocumentObject:
		if d.fields == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(d.fields)
	}
	return nil, fmt.Errorf("document: unknown kind %s", d.kind)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*d = Document{}
		return nil
	}
	switch data[0] {
	case 'n':
		*d = Document{}
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*d = BoolDocument(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = StringDocument(s)
	case '[':
		var items []Document
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if items == nil {
			items = []Document{}
		}
		*d = Document{kind: DocumentArray, items: items}
	case '{':
		var fields map[string]Document
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		*d = Document{kind: DocumentObject, fields: fields}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*d = Document{kind: DocumentNumber, n: n}
	}
	return nil
}

// Value stores the document as json text; lib/pq sends []byte as bytea.
func (d Document) Value() (driver.Value, error) {
	b, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *Document) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Document{}
		return nil
	case []byte:
		return d.UnmarshalJSON(v)
	case string:
		return d.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("document: cannot scan %T", src)
	}
}
