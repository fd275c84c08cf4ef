package storemodel_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/reoring/storemodel"
	"github.com/reoring/storemodel/dsl"
)

func TestUnion_ResolvesByDiscriminator(t *testing.T) {
	e, s := email(t), sms(t)
	u, err := storemodel.Union([]*storemodel.Schema{e, s}, "channel")
	require.NoError(t, err)

	inst, err := u.One().CastInstance(map[string]any{"channel": "sms", "message": "hi"})
	require.NoError(t, err)
	assert.Same(t, s, inst.Schema())
	assert.Equal(t, "hi", inst.MustGet("message"))
	assert.Equal(t, "sms", inst.MustGet("channel"))
}

func TestUnion_UnknownAndMissingDiscriminator(t *testing.T) {
	u := storemodel.MustUnion([]*storemodel.Schema{email(t), sms(t)}, "channel")

	_, err := u.One().Cast(map[string]any{"channel": "fax"})
	var de *storemodel.DiscriminatorError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, storemodel.CodeDiscriminatorUnknown, de.Code())
	assert.False(t, de.Construction())
	assert.Contains(t, err.Error(), "unknown discriminator value for union: fax")

	_, err = u.One().Cast(map[string]any{"message": "hi"})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, storemodel.CodeDiscriminatorAbsent, de.Code())
}

func TestUnion_DuplicateDiscriminatorFailsConstruction(t *testing.T) {
	other := storemodel.NewSchema("Other").Discriminator("channel", nil, "sms").MustBuild()
	_, err := storemodel.Union([]*storemodel.Schema{email(t), sms(t), other}, "channel")
	var de *storemodel.DiscriminatorError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, storemodel.CodeDiscriminatorDuplicate, de.Code())
	assert.True(t, de.Construction())
	assert.Equal(t, "Other", de.Schema)
	assert.Equal(t, "Sms", de.Other)
}

func TestUnion_MissingDiscriminatorFailsConstruction(t *testing.T) {
	plain := storemodel.NewSchema("Plain").Attribute("message", dsl.String()).MustBuild()
	blank := storemodel.NewSchema("Blank").Attribute("channel", dsl.String(), storemodel.Default(" ")).MustBuild()
	_, err := storemodel.Union([]*storemodel.Schema{email(t), plain, blank}, "channel")
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.Equal(t, storemodel.CodeDiscriminatorMissing, storemodel.CodeOf(e))
	}
	assert.Panics(t, func() { storemodel.MustUnion([]*storemodel.Schema{plain}, "channel") })
}

func TestUnion_PlainAttributeDefaultCountsAsDiscriminator(t *testing.T) {
	a := storemodel.NewSchema("A").Attribute("kind", dsl.String(), storemodel.Default("a")).MustBuild()
	b := storemodel.NewSchema("B").Attribute("kind", dsl.String(), storemodel.Default("b")).MustBuild()
	u, err := storemodel.Union([]*storemodel.Schema{a, b}, "kind")
	require.NoError(t, err)

	inst, err := u.One().CastInstance(`{"kind":"b"}`)
	require.NoError(t, err)
	assert.Same(t, b, inst.Schema())
}

func TestUnion_DefaultDiscriminatorName(t *testing.T) {
	a := storemodel.NewSchema("A").Discriminator("", nil, "a").MustBuild()
	b := storemodel.NewSchema("B").Discriminator("", nil, "b").MustBuild()
	assert.Equal(t, storemodel.DefaultDiscriminator, a.DiscriminatorName())

	u := storemodel.MustUnion([]*storemodel.Schema{a, b}, "")
	inst, err := u.One().CastInstance(map[string]any{"type": "a"})
	require.NoError(t, err)
	assert.Same(t, a, inst.Schema())
}

func TestUnion_NumericDiscriminatorMatchesWireForms(t *testing.T) {
	one := storemodel.NewSchema("One").Discriminator("version", dsl.Integer(), 1).MustBuild()
	two := storemodel.NewSchema("Two").Discriminator("version", dsl.Integer(), 2).MustBuild()
	u := storemodel.MustUnion([]*storemodel.Schema{one, two}, "version")

	for _, raw := range []any{
		`{"version":2}`,
		map[string]any{"version": json.Number("2")},
		map[string]any{"version": 2.0},
		map[string]any{"version": "2"},
	} {
		inst, err := u.One().CastInstance(raw)
		require.NoError(t, err, "%#v", raw)
		assert.Same(t, two, inst.Schema(), "%#v", raw)
		assert.Equal(t, int64(2), inst.MustGet("version"))
	}
}

func TestUnion_ManyAndHash(t *testing.T) {
	e, s := email(t), sms(t)
	u := storemodel.MustUnion([]*storemodel.Schema{e, s}, "channel")

	list, err := u.Many().CastInstances(`[{"channel":"email","address":"a@example.com"},{"channel":"sms","phone":"1","extra":1}]`)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Same(t, e, list[0].Schema())
	assert.Same(t, s, list[1].Schema())
	assert.Contains(t, list[1].UnknownAttributes(), "extra")

	wire, err := u.Many().Serialize(list)
	require.NoError(t, err)
	back, err := u.Many().Cast(wire)
	require.NoError(t, err)
	assert.True(t, storemodel.Equal(list, back))

	byKey, err := u.Hash().CastInstances(map[string]any{"home": map[string]any{"channel": "email"}})
	require.NoError(t, err)
	assert.Same(t, e, byKey["home"].Schema())
	assert.Equal(t, storemodel.KindHashPolymorphic, u.Hash().Kind())
}

func TestPolymorphic_AcceptsAnyInstance(t *testing.T) {
	u := storemodel.MustUnion([]*storemodel.Schema{email(t), sms(t)}, "channel")
	unrelated := configuration(t).MustNew(nil)
	got, err := u.One().Cast(unrelated)
	require.NoError(t, err)
	assert.Same(t, unrelated, got)
}

func TestPolymorphic_MalformedTextYieldsNil(t *testing.T) {
	u := storemodel.MustUnion([]*storemodel.Schema{email(t), sms(t)}, "channel")
	v, err := u.One().Cast(`{"channel":`)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestOneOf_ResolverContract(t *testing.T) {
	s := sms(t)
	sentinel := errors.New("resolver down")
	p := storemodel.OneOf(func(payload map[string]any) (*storemodel.Schema, error) {
		switch payload["pick"] {
		case "sms":
			return s, nil
		case "fail":
			return nil, sentinel
		}
		return nil, nil
	})

	inst, err := p.One().CastInstance(map[string]any{"pick": "sms", "phone": "1"})
	require.NoError(t, err)
	assert.Same(t, s, inst.Schema())
	assert.Equal(t, map[string]any{"pick": "sms"}, inst.UnknownAttributes())

	_, err = p.One().Cast(map[string]any{"pick": "fail"})
	assert.ErrorIs(t, err, sentinel)

	_, err = p.One().Cast(map[string]any{"pick": "nothing"})
	var ew *storemodel.ExpandWrapperError
	require.ErrorAs(t, err, &ew)
	assert.Equal(t, storemodel.CodeExpandWrapper, storemodel.CodeOf(err))

	_, err = p.Many().Cast([]any{map[string]any{"pick": "nothing"}})
	require.ErrorAs(t, err, &ew)
}
