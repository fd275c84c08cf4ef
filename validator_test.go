package storemodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/storemodel"
	"github.com/reoring/storemodel/dsl"
)

func product(t *testing.T, opts ...storemodel.NestedOption) *storemodel.Schema {
	t.Helper()
	cfgSchema := configuration(t)
	return storemodel.NewSchema("Product").
		Attribute("configuration", cfgSchema.One()).
		Attribute("configurations", cfgSchema.Many()).
		Attribute("variants", cfgSchema.Hash()).
		ValidatesNested("configuration", append([]storemodel.NestedOption{storemodel.AllowNil()}, opts...)...).
		ValidatesNested("configurations", append([]storemodel.NestedOption{storemodel.AllowNil()}, opts...)...).
		ValidatesNested("variants", append([]storemodel.NestedOption{storemodel.AllowNil()}, opts...)...).
		MustBuild()
}

func TestValidatesPresence(t *testing.T) {
	s := configuration(t)
	inst := s.MustNew(nil)
	assert.False(t, inst.Validate())
	assert.True(t, inst.Invalid())
	assert.Equal(t, []string{"Color can't be blank"}, inst.Errors().FullMessages())
	assert.Equal(t, []string{"can't be blank"}, inst.Errors().On("color"))

	require.NoError(t, inst.Set("color", "red"))
	assert.True(t, inst.Validate())
	assert.True(t, inst.Errors().Empty())
	assert.NoError(t, inst.Check())
}

func TestValidateNested_SequenceMarkInvalidByDefault(t *testing.T) {
	p := product(t).MustNew(map[string]any{
		"configurations": []any{
			map[string]any{"color": "red"},
			map[string]any{"model": "x"},
		},
	})
	require.False(t, p.Validate())

	details := p.Errors().Details()
	require.Len(t, details, 1)
	assert.Equal(t, "configurations", details[0].Attribute)
	assert.Equal(t, "is invalid", details[0].Message)

	children, ok := details[0].Meta[storemodel.MetaErrors].([]storemodel.ChildErrors)
	require.True(t, ok)
	require.Len(t, children, 2)
	assert.Equal(t, "1", children[1].Label)
	assert.Equal(t, []string{"Color can't be blank"}, children[1].Errors.FullMessages())
	assert.True(t, children[0].Errors.Empty())
}

func TestValidateNested_SequenceMergeIndexed(t *testing.T) {
	p := product(t, storemodel.WithMergeArrayErrors("merge_array")).MustNew(map[string]any{
		"configurations": []any{
			map[string]any{"color": "red"},
			map[string]any{"model": "x"},
		},
	})
	require.False(t, p.Validate())
	assert.Equal(t, []string{"[1] Color can't be blank"}, p.Errors().Messages())
	assert.Equal(t, []string{"Configurations [1] Color can't be blank"}, p.Errors().FullMessages())
}

func TestValidateNested_KeyedMergeKeyed(t *testing.T) {
	p := product(t, storemodel.WithMergeHashErrors(true)).MustNew(map[string]any{
		"variants": map[string]any{
			"primary":   map[string]any{"model": "x"},
			"secondary": map[string]any{"color": "blue"},
		},
	})
	require.False(t, p.Validate())
	assert.Equal(t, []string{"[primary] Color can't be blank"}, p.Errors().Messages())
}

func TestValidateNested_KeyedMarkInvalidAttachesOnlyInvalidChildren(t *testing.T) {
	p := product(t).MustNew(map[string]any{
		"variants": map[string]any{
			"primary":   map[string]any{"model": "x"},
			"secondary": map[string]any{"color": "blue"},
		},
	})
	require.False(t, p.Validate())
	children := p.Errors().Details()[0].Meta[storemodel.MetaErrors].([]storemodel.ChildErrors)
	require.Len(t, children, 1)
	assert.Equal(t, "primary", children[0].Label)
}

func TestValidateNested_Single(t *testing.T) {
	raw := map[string]any{"configuration": map[string]any{"model": "x"}}

	p := product(t).MustNew(raw)
	require.False(t, p.Validate())
	d := p.Errors().Details()[0]
	assert.Equal(t, "Configuration is invalid", d.FullMessage())
	childErrs, ok := d.Meta[storemodel.MetaErrors].(*storemodel.Errors)
	require.True(t, ok)
	assert.Equal(t, []string{"Color can't be blank"}, childErrs.FullMessages())

	p = product(t, storemodel.WithMergeErrors(true)).MustNew(raw)
	require.False(t, p.Validate())
	assert.Equal(t, []string{"Configuration Color can't be blank"}, p.Errors().FullMessages())

	p = product(t, storemodel.WithMergeErrors(storemodel.Merge{CopyAttributes: true})).MustNew(raw)
	require.False(t, p.Validate())
	assert.Equal(t, []string{"Color can't be blank"}, p.Errors().FullMessages())
	assert.Equal(t, "color", p.Errors().Details()[0].Attribute)
}

func TestValidateNested_ValidChildrenAddNothing(t *testing.T) {
	p := product(t).MustNew(map[string]any{
		"configuration":  map[string]any{"color": "red"},
		"configurations": []any{map[string]any{"color": "red"}},
		"variants":       map[string]any{"a": map[string]any{"color": "red"}},
	})
	assert.True(t, p.Validate())
}

func TestValidateNested_NilIsBlankUnlessAllowed(t *testing.T) {
	s := storemodel.NewSchema("Product").
		Attribute("configuration", configuration(t).One()).
		ValidatesNested("configuration").
		MustBuild()
	p := s.MustNew(nil)
	require.False(t, p.Validate())
	assert.Equal(t, []string{"Configuration can't be blank"}, p.Errors().FullMessages())

	assert.True(t, product(t).MustNew(nil).Validate())
}

func TestValidateNested_ConfigFallback(t *testing.T) {
	cfg := storemodel.DefaultConfig()
	cfg.MergeArrayErrors = true
	useDefault(t, cfg)

	p := product(t).MustNew(map[string]any{
		"configurations": []any{map[string]any{}, map[string]any{"color": "red"}},
	})
	require.False(t, p.Validate())
	assert.Equal(t, []string{"[0] Color can't be blank"}, p.Errors().Messages())

	// A call-site selector still wins over the Config.
	p = product(t, storemodel.WithMergeArrayErrors(storemodel.MarkInvalid{})).MustNew(map[string]any{
		"configurations": []any{map[string]any{}},
	})
	require.False(t, p.Validate())
	assert.Equal(t, []string{"is invalid"}, p.Errors().Messages())
}

func TestValidateNested_MixedStrategiesPerShape(t *testing.T) {
	p := product(t, storemodel.WithMergeArrayErrors(true)).MustNew(map[string]any{
		"configuration":  map[string]any{},
		"configurations": []any{map[string]any{}},
	})
	require.False(t, p.Validate())
	assert.Equal(t, []string{"is invalid", "[0] Color can't be blank"}, p.Errors().Messages())
}

func TestValidateNested_Polymorphic(t *testing.T) {
	e := storemodel.NewSchema("Email").
		Discriminator("channel", dsl.String(), "email").
		Attribute("address", dsl.String()).
		ValidatesPresence("address").
		MustBuild()
	u := storemodel.MustUnion([]*storemodel.Schema{e, sms(t)}, "channel")
	s := storemodel.NewSchema("Notification").
		Attribute("targets", u.Many()).
		ValidatesNested("targets", storemodel.WithMergeArrayErrors(true)).
		MustBuild()

	n := s.MustNew(map[string]any{"targets": []any{
		map[string]any{"channel": "sms"},
		map[string]any{"channel": "email"},
	}})
	require.False(t, n.Validate())
	assert.Equal(t, []string{"[1] Address can't be blank"}, n.Errors().Messages())
}

func TestValidate_CustomRule(t *testing.T) {
	s := storemodel.NewSchema("Range").
		Attribute("min", dsl.Integer()).
		Attribute("max", dsl.Integer()).
		Validate(func(inst *storemodel.Instance, errs *storemodel.Errors) {
			lo, _ := inst.MustGet("min").(int64)
			hi, _ := inst.MustGet("max").(int64)
			if lo > hi {
				errs.Add(storemodel.AttributeBase, "range", storemodel.WithMessage("min must not exceed max"))
			}
		}).
		MustBuild()

	r := s.MustNew(map[string]any{"min": 5, "max": 1})
	err := r.Check()
	ve, ok := storemodel.AsValidationErrors(err)
	require.True(t, ok)
	require.Len(t, ve, 1)
	assert.Equal(t, "min must not exceed max", ve[0].FullMessage())
	assert.Equal(t, "min must not exceed max", err.Error())
}

func TestValidate_Observer(t *testing.T) {
	obs := &recordingObserver{}
	cfg := storemodel.DefaultConfig()
	cfg.Observer = obs
	s := configuration(t, func(b *storemodel.SchemaBuilder) { b.WithConfig(cfg) })

	s.MustNew(nil).Validate()
	s.MustNew(map[string]any{"color": "red"}).Validate()
	assert.Equal(t, []bool{false, true}, obs.validated["Configuration"])
}

func TestBuild_RejectsBadValidations(t *testing.T) {
	_, err := storemodel.NewSchema("Bad").
		Attribute("name", dsl.String()).
		ValidatesNested("name").
		ValidatesPresence("missing").
		Build()
	var se *storemodel.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), `nested validation on primitive attribute "name"`)
	assert.Contains(t, err.Error(), `presence validation on undeclared attribute "missing"`)

	_, err = storemodel.NewSchema("Bad").
		Attribute("c", configuration(t).One()).
		ValidatesNested("c", storemodel.WithMergeErrors("no_such_strategy")).
		Build()
	var us *storemodel.UnknownStrategyError
	require.ErrorAs(t, err, &us)
	assert.Equal(t, "no_such_strategy", us.Name)
}

func TestValidate_UnknownStrategyFromConfig(t *testing.T) {
	cfg := storemodel.DefaultConfig()
	cfg.MergeErrors = "no_such_strategy"
	useDefault(t, cfg)

	p := product(t).MustNew(map[string]any{"configuration": map[string]any{}})
	err := p.Check()
	var us *storemodel.UnknownStrategyError
	require.ErrorAs(t, err, &us)
	assert.False(t, p.Validate())
}
