package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemas = `
schemas:
  Variant:
    attributes:
      - {name: color, type: string}
      - {name: size, type: enum, values: {small: 1, large: 2}}
      - {name: stock, type: integer, default: 0}
    aliases:
      colour: color
    validates:
      presence: [color]
  Email:
    discriminator: {name: channel, value: email}
    attributes:
      - {name: address, type: string}
  Sms:
    discriminator: {name: channel, value: sms}
    attributes:
      - {name: number, type: string}
unions:
  Notification:
    discriminator: channel
    schemas: [Email, Sms]
`

func schemaFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(schemas), 0o600))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage:")

	code, stdout, _ := runCLI(t, "", "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "storemodel cast")

	code, _, _ = runCLI(t, "", "frobnicate")
	assert.Equal(t, 2, code)

	code, _, stderr = runCLI(t, "", "cast", "-type", "Variant")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "-schema is required")
}

func TestCast_One(t *testing.T) {
	path := schemaFile(t)
	code, stdout, stderr := runCLI(t, `{"colour":"red","size":"large","legacy":1}`, "cast", "-schema", path, "-type", "Variant")
	require.Equal(t, 0, code, stderr)
	assert.JSONEq(t, `{"color":"red","size":"large","stock":0,"legacy":1}`, stdout)

	code, stdout, stderr = runCLI(t, `{"color":"red","size":2,"legacy":1}`, "cast", "-schema", path, "-type", "Variant", "-unknown=false", "-labels=false")
	require.Equal(t, 0, code, stderr)
	assert.JSONEq(t, `{"color":"red","size":2,"stock":0}`, stdout)
}

func TestCast_UnionMany(t *testing.T) {
	code, stdout, stderr := runCLI(t, `[{"channel":"sms","number":"555"},{"channel":"email","address":"a@b.c"}]`,
		"cast", "-schema", schemaFile(t), "-type", "Notification", "-kind", "many")
	require.Equal(t, 0, code, stderr)
	assert.JSONEq(t, `[{"channel":"sms","number":"555"},{"channel":"email","address":"a@b.c"}]`, stdout)
}

func TestCast_Failures(t *testing.T) {
	path := schemaFile(t)

	code, _, stderr := runCLI(t, `{"color":`, "cast", "-schema", path, "-type", "Variant")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "payload is not valid JSON")

	code, _, stderr = runCLI(t, `{"channel":"fax"}`, "cast", "-schema", path, "-type", "Notification")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown discriminator value for union: fax")

	code, _, stderr = runCLI(t, `{}`, "cast", "-schema", path, "-type", "Nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `no schema or union named "Nope"`)

	code, _, _ = runCLI(t, `{}`, "cast", "-schema", filepath.Join(t.TempDir(), "missing.yaml"), "-type", "Variant")
	assert.Equal(t, 1, code)
}

func TestCast_ReadsPayloadFile(t *testing.T) {
	in := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"a":{"color":"red"}}`), 0o600))
	code, stdout, stderr := runCLI(t, "", "cast", "-schema", schemaFile(t), "-type", "Variant", "-kind", "hash", "-in", in)
	require.Equal(t, 0, code, stderr)
	assert.JSONEq(t, `{"a":{"color":"red","size":null,"stock":0}}`, stdout)
}

func TestValidate(t *testing.T) {
	path := schemaFile(t)

	code, stdout, _ := runCLI(t, `[{"color":"red"},{"size":"small"}]`, "validate", "-schema", path, "-type", "Variant", "-kind", "many")
	assert.Equal(t, 1, code)
	assert.Equal(t, "[1] Color can't be blank\n", stdout)

	code, stdout, _ = runCLI(t, `{"color":"red"}`, "validate", "-schema", path, "-type", "Variant")
	assert.Equal(t, 0, code)
	assert.Equal(t, "ok\n", stdout)
}

func TestInspect_ListsDeclarations(t *testing.T) {
	code, stdout, stderr := runCLI(t, "", "inspect", "-schema", schemaFile(t))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "schema Variant\n  color string\n  size enum [small, large]\n  stock integer\n  alias colour -> color\n")
	assert.Contains(t, stdout, "  channel string discriminator=sms\n")
	assert.Contains(t, stdout, "union Notification [Email, Sms]\n")
}

func TestInspect_DumpsPayload(t *testing.T) {
	code, stdout, stderr := runCLI(t, `{"color":"red","legacy":true}`, "inspect", "-schema", schemaFile(t), "-type", "Variant")
	require.Equal(t, 0, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "Variant\n"))
	assert.Contains(t, stdout, `"red"`)
	assert.Contains(t, stdout, "unknown:")
	assert.Contains(t, stdout, `"legacy"`)
}

func TestJSONSchema(t *testing.T) {
	path := schemaFile(t)
	code, stdout, stderr := runCLI(t, "", "jsonschema", "-schema", path, "-type", "Sms")
	require.Equal(t, 0, code, stderr)
	assert.JSONEq(t, `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"title": "Sms",
		"type": "object",
		"properties": {
			"channel": {"type": "string", "const": "sms"},
			"number": {"type": "string"}
		}
	}`, stdout)

	code, stdout, stderr = runCLI(t, "", "jsonschema", "-schema", path, "-type", "Notification", "-kind", "many")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"#/$defs/Email"`)

	code, _, _ = runCLI(t, "", "jsonschema", "-schema", path)
	assert.Equal(t, 1, code)
}
