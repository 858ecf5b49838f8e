// Package documents is the shared document model: flat key-value payloads
// keyed by collection and id, equality filters, and the server timestamp
// placeholder that the server resolves at write time.
package documents

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/dmitrijs2005/sendit/internal/common"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serverValueKey       = ".sv"
	serverValueTimestamp = "timestamp"
)

// Document is a single stored document as seen by clients.
type Document struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// Filter is an equality predicate on one top-level field.
type Filter struct {
	Field string `json:"field" validate:"required,max=128"`
	Value any    `json:"value"`
}

// Where is shorthand for an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// ServerTimestamp returns the placeholder that the server replaces with its
// own clock when the write is applied.
func ServerTimestamp() map[string]any {
	return map[string]any{serverValueKey: serverValueTimestamp}
}

// IsServerTimestamp reports whether v is the ServerTimestamp placeholder.
func IsServerTimestamp(v any) bool {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	s, ok := m[serverValueKey].(string)
	return ok && s == serverValueTimestamp
}

// Normalize validates a flat payload and converts every value into its JSON
// form (all numbers become float64). Nested maps and lists are rejected,
// except for the ServerTimestamp placeholder which is kept as is.
func Normalize(data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if k == "" {
			return nil, fmt.Errorf("%w: empty field name", common.ErrorInvalidArgument)
		}
		if IsServerTimestamp(v) {
			out[k] = ServerTimestamp()
			continue
		}
		pv, err := structpb.NewValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", common.ErrorInvalidArgument, k, err)
		}
		switch pv.GetKind().(type) {
		case *structpb.Value_StructValue, *structpb.Value_ListValue:
			return nil, fmt.Errorf("%w: field %q: nested values are not supported", common.ErrorInvalidArgument, k)
		}
		out[k] = pv.AsInterface()
	}
	return out, nil
}

// ResolveServerValues returns a copy of data with every ServerTimestamp
// placeholder replaced by now, formatted as RFC 3339 in UTC.
func ResolveServerValues(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data))
	stamp := now.UTC().Format(time.RFC3339Nano)
	for k, v := range data {
		if IsServerTimestamp(v) {
			out[k] = stamp
			continue
		}
		out[k] = v
	}
	return out
}

// Merge applies patch over base and returns the result; neither input is
// modified.
func Merge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Matches reports whether data satisfies every filter. Values are compared
// in normalized form so 3 and 3.0 are equal.
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		got, ok := data[f.Field]
		if !ok {
			return false
		}
		want, err := structpb.NewValue(f.Value)
		if err != nil {
			return false
		}
		if !reflect.DeepEqual(got, want.AsInterface()) {
			return false
		}
	}
	return true
}

// FiltersObject folds equality filters into a single object suitable for a
// JSON containment check.
func FiltersObject(filters []Filter) (map[string]any, error) {
	obj := make(map[string]any, len(filters))
	for _, f := range filters {
		obj[f.Field] = f.Value
	}
	return Normalize(obj)
}

// Encode serializes a payload as a JSON object.
func Encode(data map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return protojson.Marshal(s)
}

// Decode parses a JSON object produced by Encode (or by the database).
func Decode(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	var s structpb.Struct
	if err := protojson.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return s.AsMap(), nil
}

// Equal reports whether two payloads hold the same fields and values.
func Equal(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// SortByID orders documents by id so query results are stable.
func SortByID(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

// String returns the string value of key, or "" when absent or not a string.
func String(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// Int64 returns the numeric value of key truncated to int64.
func Int64(data map[string]any, key string) int64 {
	switch v := data[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// Time parses an RFC 3339 value stored under key. Zero time when absent.
func Time(data map[string]any, key string) time.Time {
	s, ok := data[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
