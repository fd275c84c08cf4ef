package storemodel_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/storemodel"
	"github.com/reoring/storemodel/dsl"
)

func withUnknown(t *testing.T) *storemodel.Instance {
	t.Helper()
	inst, err := configuration(t).One().CastInstance(`{"color":"red","status":1,"extra":"x"}`)
	require.NoError(t, err)
	return inst
}

func TestAsWire_UnknownInclusionPrecedence(t *testing.T) {
	inst := withUnknown(t)

	w, err := inst.AsWire(storemodel.SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "x", w["extra"])

	w, err = inst.AsWire(storemodel.SerializeOptions{IncludeUnknown: storemodel.Bool(false)})
	require.NoError(t, err)
	assert.NotContains(t, w, "extra")

	inst.SetSerializeUnknownAttributes(storemodel.Bool(false))
	w, err = inst.AsWire(storemodel.SerializeOptions{})
	require.NoError(t, err)
	assert.NotContains(t, w, "extra")

	// The per-call option beats the instance override.
	w, err = inst.AsWire(storemodel.SerializeOptions{IncludeUnknown: storemodel.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, "x", w["extra"])

	inst.SetSerializeUnknownAttributes(nil)
	cfg := storemodel.DefaultConfig()
	cfg.SerializeUnknownAttributes = false
	useDefault(t, cfg)
	assert.False(t, inst.SerializeUnknownAttributes())
	w, err = inst.AsWire(storemodel.SerializeOptions{})
	require.NoError(t, err)
	assert.NotContains(t, w, "extra")
}

func TestAsWire_EnumLabels(t *testing.T) {
	inst := withUnknown(t)

	w, err := inst.AsWire(storemodel.SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "active", w["status"])

	w, err = inst.AsWire(storemodel.SerializeOptions{EnumsAsLabel: storemodel.Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), w["status"])

	inst.SetSerializeEnumsAsLabel(storemodel.Bool(false))
	assert.False(t, inst.SerializeEnumsAsLabel())
	w, err = inst.AsWire(storemodel.SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), w["status"])
}

func TestAsWire_LenientEnumKeepsUnmappedValue(t *testing.T) {
	s := storemodel.NewSchema("Flag").
		Attribute("level", dsl.EnumOf("low", "high").RaiseOnInvalid(false)).
		MustBuild()
	inst := s.MustNew(map[string]any{"level": "extreme"})
	w, err := inst.AsWire(storemodel.SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "extreme", w["level"])
}

func TestAsWire_OmitsEmptyAttributes(t *testing.T) {
	inst := configuration(t).MustNew(map[string]any{"color": "", "active": false})

	w, err := inst.AsWire(storemodel.SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"color": "", "model": nil, "active": false, "status": nil}, w)

	w, err = inst.AsWire(storemodel.SerializeOptions{IncludeEmpty: storemodel.Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"active": false}, w)
}

func TestAsWire_UnknownNeverOverridesKnown(t *testing.T) {
	inst := withUnknown(t)
	inst.UnknownAttributes()["color"] = "shadow"
	w, err := inst.AsWire(storemodel.SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "red", w["color"])
}

func TestAsWire_NestedInstancesShareResolvedOptions(t *testing.T) {
	cfgSchema := configuration(t)
	product := storemodel.NewSchema("Product").
		Attribute("name", dsl.String()).
		Attribute("configuration", cfgSchema.One()).
		Attribute("variants", cfgSchema.Hash()).
		MustBuild()

	p, err := product.One().CastInstance(`{
		"name":"chair",
		"configuration":{"color":"red","status":0,"legacy":1},
		"variants":{"tall":{"color":"black","note":"n"}}
	}`)
	require.NoError(t, err)

	child := p.MustGet("configuration").(*storemodel.Instance)
	child.SetSerializeUnknownAttributes(storemodel.Bool(true))

	w, err := p.AsWire(storemodel.SerializeOptions{IncludeUnknown: storemodel.Bool(false), EnumsAsLabel: storemodel.Bool(false)})
	require.NoError(t, err)
	nested := w["configuration"].(map[string]any)
	assert.NotContains(t, nested, "legacy")
	assert.Equal(t, int64(0), nested["status"])
	tall := w["variants"].(map[string]any)["tall"].(map[string]any)
	assert.NotContains(t, tall, "note")

	w, err = p.AsWire(storemodel.SerializeOptions{})
	require.NoError(t, err)
	nested = w["configuration"].(map[string]any)
	assert.Equal(t, json.Number("1"), nested["legacy"])
	assert.Equal(t, "archived", nested["status"])
}

func TestProduct_RoundTripThroughParentText(t *testing.T) {
	cfgSchema := configuration(t)
	product := storemodel.NewSchema("Product").
		Attribute("configuration", cfgSchema.One()).
		Attribute("variants", cfgSchema.Many()).
		Attribute("released_at", dsl.Time()).
		MustBuild()

	m := product.MustNew(map[string]any{
		"configuration": map[string]any{"color": "red", "status": "active"},
		"variants":      []any{map[string]any{"color": "blue"}},
		"released_at":   "2024-05-01T12:00:00+02:00",
	})
	text, err := json.Marshal(m)
	require.NoError(t, err)

	back, err := product.One().CastInstance(string(text))
	require.NoError(t, err)
	assert.True(t, back.Equal(m), "%s", text)
}

func TestMarshalJSON(t *testing.T) {
	inst := point(t).MustNew(map[string]any{"x": 1})
	b, err := json.Marshal(inst)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1,"y":null}`, string(b))
}
