package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Document is a reference to a supporting file held by the external file host.
//
// Older records stored either a bare URL string or an object with
// name/type/uploadDate keys. Both decoders below accept every shape and
// always produce this canonical form, so nothing past the storage boundary
// has to branch on the stored layout.
type Document struct {
	URL          string     `bson:"url" json:"url"`
	OriginalName string     `bson:"originalName,omitempty" json:"originalName,omitempty"`
	ContentType  string     `bson:"contentType,omitempty" json:"contentType,omitempty"`
	UploadedAt   *time.Time `bson:"uploadedAt,omitempty" json:"uploadedAt,omitempty"`
}

// HasHTTPURL reports whether the document points at an absolute http(s) URL
func (d Document) HasHTTPURL() bool {
	u, err := url.Parse(d.URL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// documentRecord is the union of every stored document layout
type documentRecord struct {
	URL          string     `bson:"url" json:"url"`
	OriginalName string     `bson:"originalName" json:"originalName"`
	Name         string     `bson:"name" json:"name"`
	ContentType  string     `bson:"contentType" json:"contentType"`
	Type         string     `bson:"type" json:"type"`
	UploadedAt   *time.Time `bson:"uploadedAt" json:"uploadedAt"`
	UploadDate   *time.Time `bson:"uploadDate" json:"uploadDate"`
}

func (r documentRecord) canonical() Document {
	d := Document{
		URL:          r.URL,
		OriginalName: r.OriginalName,
		ContentType:  r.ContentType,
		UploadedAt:   r.UploadedAt,
	}
	if d.OriginalName == "" {
		d.OriginalName = r.Name
	}
	if d.ContentType == "" {
		d.ContentType = r.Type
	}
	if d.UploadedAt == nil {
		d.UploadedAt = r.UploadDate
	}
	return d
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (d *Document) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.String:
		s, ok := bsoncore.Value{Type: t, Data: data}.StringValueOK()
		if !ok {
			return fmt.Errorf("document: malformed string value")
		}
		*d = Document{URL: s}
		return nil
	case bsontype.EmbeddedDocument:
		var r documentRecord
		if err := bson.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("document: %w", err)
		}
		*d = r.canonical()
		return nil
	case bsontype.Null, bsontype.Undefined:
		*d = Document{}
		return nil
	default:
		return fmt.Errorf("document: unsupported bson type %s", t)
	}
}

// UnmarshalJSON accepts either a URL string or a document object
func (d *Document) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Document{URL: s}
		return nil
	}
	var r documentRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*d = r.canonical()
	return nil
}

// IsLegacy reports whether a raw stored documents array still holds a pre-canonical shape
func IsLegacy(raw bson.RawValue) bool {
	arr, ok := raw.ArrayOK()
	if !ok {
		return false
	}
	values, err := arr.Values()
	if err != nil {
		return false
	}
	for _, v := range values {
		if v.Type == bsontype.String {
			return true
		}
		if doc, ok := v.DocumentOK(); ok {
			if _, err := doc.LookupErr("name"); err == nil {
				return true
			}
			if _, err := doc.LookupErr("uploadDate"); err == nil {
				return true
			}
		}
	}
	return false
}
