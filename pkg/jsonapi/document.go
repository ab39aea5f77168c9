package jsonapi

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/matzehuels/apigraph/pkg/errors"
)

// MediaType is the JSON:API media type used for Accept and Content-Type.
const MediaType = "application/vnd.api+json"

// Relationship is a relationship object inside a resource.
type Relationship struct {
	Data  Linkage        `json:"data"`
	Links map[string]any `json:"links,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// Resource is a raw resource object as sent on the wire.
type Resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id"`
	Attributes    json.RawMessage         `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Links         map[string]any          `json:"links,omitempty"`
	Meta          map[string]any          `json:"meta,omitempty"`
}

// DecodeAttributes unmarshals the attributes object into v.
// Missing or null attributes leave v untouched.
func (r *Resource) DecodeAttributes(v any) error {
	raw := bytes.TrimSpace(r.Attributes)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode attributes of %s/%s", r.Type, r.ID)
	}
	return nil
}

// String returns "type/id".
func (r *Resource) String() string { return r.Type + "/" + r.ID }

// ErrorSource points at the part of a request that caused an error.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
	Header    string `json:"header,omitempty"`
}

// ErrorObject is a JSON:API error object.
type ErrorObject struct {
	ID     string         `json:"id,omitempty"`
	Status string         `json:"status,omitempty"`
	Code   string         `json:"code,omitempty"`
	Title  string         `json:"title,omitempty"`
	Detail string         `json:"detail,omitempty"`
	Source *ErrorSource   `json:"source,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Summary returns the most descriptive text available for the error.
func (e ErrorObject) Summary() string {
	switch {
	case e.Title != "" && e.Detail != "":
		return e.Title + ": " + e.Detail
	case e.Detail != "":
		return e.Detail
	case e.Title != "":
		return e.Title
	case e.Code != "":
		return e.Code
	default:
		return "status " + e.Status
	}
}

// Body is a top-level JSON:API document.
// Data is kept raw so the caller can pick the single-resource or collection
// shape explicitly.
type Body struct {
	Data     json.RawMessage `json:"data,omitempty"`
	Included []Resource      `json:"included,omitempty"`
	Errors   []ErrorObject   `json:"errors,omitempty"`
	Meta     map[string]any  `json:"meta,omitempty"`
	Links    map[string]any  `json:"links,omitempty"`
	JSONAPI  map[string]any  `json:"jsonapi,omitempty"`
}

// Decode parses a raw response body.
func Decode(raw []byte) (*Body, error) {
	var b Body
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode JSON:API document")
	}
	return &b, nil
}

// HasData reports whether the document carries a data member, including null.
func (b *Body) HasData() bool {
	return len(bytes.TrimSpace(b.Data)) > 0
}

// IsCollection reports whether the primary data is an array.
func (b *Body) IsCollection() bool {
	raw := bytes.TrimSpace(b.Data)
	return len(raw) > 0 && raw[0] == '['
}

// One decodes the primary data as a single resource.
// A null data member yields (nil, nil).
func (b *Body) One() (*Resource, error) {
	raw := bytes.TrimSpace(b.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '{' {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "primary data is not a single resource")
	}
	var r Resource
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode primary resource")
	}
	return &r, nil
}

// Many decodes the primary data as a resource collection.
// A null or absent data member yields an empty slice.
func (b *Body) Many() ([]Resource, error) {
	raw := bytes.TrimSpace(b.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []Resource{}, nil
	}
	if raw[0] != '[' {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "primary data is not a resource collection")
	}
	var rs []Resource
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode primary resources")
	}
	return rs, nil
}

// ErrorSummary joins the summaries of all error objects.
func (b *Body) ErrorSummary() string {
	parts := make([]string, len(b.Errors))
	for i, e := range b.Errors {
		parts[i] = e.Summary()
	}
	return strings.Join(parts, "; ")
}

// Validate checks that every resource carries a type and an id.
func Validate(primary []Resource, included []Resource) error {
	check := func(section string, i int, r *Resource) error {
		if r.Type == "" {
			return errors.New(errors.ErrCodeInvalidDocument, "%s[%d]: resource has no type", section, i)
		}
		if r.ID == "" {
			return errors.New(errors.ErrCodeInvalidDocument, "%s[%d]: %s resource has no id", section, i, r.Type)
		}
		return nil
	}
	for i := range primary {
		if err := check("data", i, &primary[i]); err != nil {
			return err
		}
	}
	for i := range included {
		if err := check("included", i, &included[i]); err != nil {
			return err
		}
	}
	return nil
}
