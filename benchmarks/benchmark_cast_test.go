package storemodel_test

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/reoring/storemodel"
	"github.com/reoring/storemodel/dsl"
)

// ---- Helpers ----

func configurationSchema(tb testing.TB) *storemodel.Schema {
	tb.Helper()
	s, err := storemodel.NewSchema("Configuration").
		Attribute("id", dsl.String()).
		Attribute("color", dsl.String()).
		Attribute("stock", dsl.Integer()).
		Attribute("status", dsl.EnumOf("draft", "live")).
		ValidatesPresence("color").
		Build()
	if err != nil {
		tb.Fatalf("schema build failed: %v", err)
	}
	return s
}

func channelUnion(tb testing.TB) *storemodel.Polymorphic {
	tb.Helper()
	email := storemodel.NewSchema("Email").Discriminator("channel", dsl.String(), "email").Attribute("address", dsl.String()).MustBuild()
	sms := storemodel.NewSchema("Sms").Discriminator("channel", dsl.String(), "sms").Attribute("number", dsl.String()).MustBuild()
	u, err := storemodel.Union([]*storemodel.Schema{email, sms}, "channel")
	if err != nil {
		tb.Fatalf("union failed: %v", err)
	}
	return u
}

// generateColumnText returns a JSON array of numObjects configurations, each
// carrying extraFields undeclared keys:
// [{"id":"c_0","color":"red","stock":0,"status":"live","k0":"v0",...}, ...]
func generateColumnText(numObjects, extraFields int) string {
	var buf bytes.Buffer
	buf.Grow(numObjects * (64 + extraFields*16))
	buf.WriteByte('[')
	for i := 0; i < numObjects; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"id":"c_`)
		buf.WriteString(strconv.Itoa(i))
		buf.WriteString(`","color":"red","stock":`)
		buf.WriteString(strconv.Itoa(i))
		buf.WriteString(`,"status":"live"`)
		for k := 0; k < extraFields; k++ {
			buf.WriteString(`,"k`)
			buf.WriteString(strconv.Itoa(k))
			buf.WriteString(`":"v`)
			buf.WriteString(strconv.Itoa(k))
			buf.WriteByte('"')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.String()
}

// ---- Benchmarks ----

func BenchmarkManyCast(b *testing.B) {
	s := configurationSchema(b)
	for _, extra := range []int{0, 8} {
		text := generateColumnText(200, extra)
		b.Run("extra="+strconv.Itoa(extra), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				if _, err := s.Many().Cast(text); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkManySerialize(b *testing.B) {
	s := configurationSchema(b)
	v, err := s.Many().Cast(generateColumnText(200, 4))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Many().Serialize(v); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnionCast(b *testing.B) {
	u := channelUnion(b)
	payload := []any{
		map[string]any{"channel": "email", "address": "a@example.com"},
		map[string]any{"channel": "sms", "number": "555"},
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := u.Many().Cast(payload); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkValidateNested(b *testing.B) {
	cfg := configurationSchema(b)
	p := storemodel.NewSchema("Product").
		Attribute("configurations", cfg.Many()).
		ValidatesNested("configurations", storemodel.WithMergeArrayErrors(true)).
		MustBuild()
	inst := p.MustNew(map[string]any{"configurations": generateColumnText(50, 0)})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		inst.Validate()
	}
}

func BenchmarkDriverSelect(b *testing.B) {
	s := configurationSchema(b)
	text := generateColumnText(200, 2)
	for _, tc := range []struct {
		name   string
		driver storemodel.JSONDriver
	}{
		{"gojson", storemodel.GoJSONDriver()},
		{"encoding_json", storemodel.StdJSONDriver()},
	} {
		b.Run(tc.name, func(b *testing.B) {
			storemodel.SetJSONDriver(tc.driver)
			b.Cleanup(storemodel.UseDefaultJSONDriver)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := s.Many().Cast(text); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
