package storemodel_test

import (
	"sync"
	"testing"

	"github.com/reoring/storemodel"
	"github.com/reoring/storemodel/dsl"
)

func statusEnum() *dsl.EnumType {
	return dsl.Enum(dsl.Pair("active", 1), dsl.Pair("archived", 0))
}

// configuration is the nested model used across the tests.
func configuration(t *testing.T, opts ...func(*storemodel.SchemaBuilder)) *storemodel.Schema {
	t.Helper()
	b := storemodel.NewSchema("Configuration").
		Attribute("color", dsl.String()).
		Attribute("model", dsl.String()).
		Attribute("active", dsl.Boolean(), storemodel.Default(true)).
		Attribute("status", statusEnum()).
		ValidatesPresence("color")
	for _, o := range opts {
		o(b)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("build Configuration: %v", err)
	}
	return s
}

func email(t *testing.T) *storemodel.Schema {
	t.Helper()
	return storemodel.NewSchema("Email").
		Discriminator("channel", dsl.String(), "email").
		Attribute("address", dsl.String()).
		Attribute("message", dsl.String()).
		MustBuild()
}

func sms(t *testing.T) *storemodel.Schema {
	t.Helper()
	return storemodel.NewSchema("Sms").
		Discriminator("channel", dsl.String(), "sms").
		Attribute("phone", dsl.String()).
		Attribute("message", dsl.String()).
		MustBuild()
}

// useDefault installs cfg as the process-wide Config for the duration of t.
func useDefault(t *testing.T, cfg *storemodel.Config) {
	t.Helper()
	storemodel.SetGlobal(cfg)
	t.Cleanup(storemodel.ResetGlobal)
}

type recordingObserver struct {
	mu        sync.Mutex
	casts     []string
	failures  int
	recovered []string
	validated map[string][]bool
}

func (o *recordingObserver) CastCompleted(kind storemodel.Kind, schema string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.casts = append(o.casts, kind.String()+":"+schema)
	if err != nil {
		o.failures++
	}
}

func (o *recordingObserver) UnknownAttributeRecovered(schema, attribute string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recovered = append(o.recovered, schema+"."+attribute)
}

func (o *recordingObserver) Validated(schema string, valid bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.validated == nil {
		o.validated = map[string][]bool{}
	}
	o.validated[schema] = append(o.validated[schema], valid)
}
