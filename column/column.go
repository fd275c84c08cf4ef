// Package column binds storemodel types to database/sql JSON columns.
//
// A Value wraps the attribute Type of the column together with the in-memory
// value; it implements sql.Scanner and driver.Valuer so that rows can be read
// and written with the stock database/sql API:
//
//	v := column.Value{Type: schema.Many()}
//	err := db.QueryRowContext(ctx, `SELECT configs FROM products WHERE id = ?`, id).Scan(&v)
//	configs := v.V.([]*storemodel.Instance)
package column

import (
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/reoring/storemodel"
)

// Value is a JSON column holding a value of Type.
type Value struct {
	Type storemodel.Type
	V    any
}

var (
	_ sql.Scanner   = (*Value)(nil)
	_ driver.Valuer = Value{}
)

// Of returns a Value of t holding v.
func Of(t storemodel.Type, v any) Value { return Value{Type: t, V: v} }

// Scan casts the stored text. NULL casts to nil; malformed text follows the
// Type's degradation rule (an empty value for containers).
func (v *Value) Scan(src any) error {
	if v.Type == nil {
		return fmt.Errorf("column: scan into Value without a Type")
	}
	var raw any
	switch s := src.(type) {
	case nil:
	case string:
		raw = s
	case []byte:
		// The driver may reuse the buffer after Scan returns.
		raw = string(s)
	default:
		return &storemodel.CastError{Value: src, Allowed: "text or NULL"}
	}
	if text, ok := raw.(string); ok && !v.Type.Kind().Container() {
		// Scalars are stored as JSON documents; text that is not one is
		// handed to the Type unchanged.
		if decoded, err := storemodel.Unmarshal([]byte(text)); err == nil {
			raw = decoded
		}
	}
	cast, err := v.Type.Cast(raw)
	if err != nil {
		return fmt.Errorf("column: scan: %w", err)
	}
	v.V = cast
	return nil
}

// Value serializes V. Container types already produce JSON text; scalar
// wire values are encoded with the configured JSON driver.
func (v Value) Value() (driver.Value, error) {
	if v.Type == nil {
		return nil, fmt.Errorf("column: Value without a Type")
	}
	w, err := v.Type.Serialize(v.V)
	if err != nil {
		return nil, fmt.Errorf("column: serialize: %w", err)
	}
	switch s := w.(type) {
	case nil:
		return nil, nil
	case string:
		if v.Type.Kind().Container() {
			return s, nil
		}
	}
	b, err := storemodel.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("column: encode: %w", err)
	}
	return string(b), nil
}

// Changed reports whether V differs from the value stored as oldRaw.
func (v Value) Changed(oldRaw any) bool {
	if b, ok := oldRaw.([]byte); ok {
		oldRaw = string(b)
	}
	return v.Type.Changed(oldRaw, v.V)
}
