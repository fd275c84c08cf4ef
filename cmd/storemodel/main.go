package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/reoring/storemodel"
	"github.com/reoring/storemodel/dsl"
	"github.com/reoring/storemodel/jsonschema"
	"github.com/reoring/storemodel/schemafile"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `storemodel CLI

Usage:
  storemodel cast       -schema schemas.yaml -type Name [-kind one|many|hash] [-in payload.json]
  storemodel validate   -schema schemas.yaml -type Name [-kind one|many|hash] [-in payload.json]
  storemodel inspect    -schema schemas.yaml [-type Name [-kind one|many|hash] [-in payload.json]]
  storemodel jsonschema -schema schemas.yaml -type Name [-kind one|many|hash]

Common flags:
  -config file.yaml   base config (document config blocks override it)
  -labels=bool        serialize enums as labels
  -unknown=bool       serialize unknown attributes
  -v                  debug logging on stderr

The payload is read from stdin unless -in is given.`)
}

// run executes one subcommand and returns the process exit code: 0 on
// success, 1 on failure or invalid payloads, 2 on usage errors.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	var cmd func(*env) error
	switch args[0] {
	case "cast":
		cmd = castCmd
	case "validate":
		cmd = validateCmd
	case "inspect":
		cmd = inspectCmd
	case "jsonschema":
		cmd = jsonschemaCmd
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	default:
		usage(stderr)
		return 2
	}

	e := &env{stdin: stdin, stdout: stdout, stderr: stderr}
	if err := e.parse(args[0], args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "storemodel %s: %v\n", args[0], err)
		return 2
	}
	if err := cmd(e); err != nil {
		var invalid errInvalid
		if !errors.As(err, &invalid) {
			fmt.Fprintf(stderr, "storemodel %s: %v\n", args[0], err)
		}
		return 1
	}
	return 0
}

// errInvalid reports a payload that failed validation; the messages have
// already been written.
type errInvalid struct{ n int }

func (e errInvalid) Error() string { return fmt.Sprintf("%d invalid instance(s)", e.n) }

type env struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	schemaPath string
	configPath string
	typeName   string
	kind       string
	in         string
	labels     bool
	unknown    bool
	verbose    bool
	set        map[string]bool

	logger *slog.Logger
	reg    *schemafile.Registry
}

func (e *env) parse(name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.StringVar(&e.schemaPath, "schema", "", "YAML schema file")
	fs.StringVar(&e.configPath, "config", "", "YAML config file")
	fs.StringVar(&e.typeName, "type", "", "schema or union name")
	fs.StringVar(&e.kind, "kind", "one", "container kind: one, many or hash")
	fs.StringVar(&e.in, "in", "", "payload file (default stdin)")
	fs.BoolVar(&e.labels, "labels", true, "serialize enums as labels")
	fs.BoolVar(&e.unknown, "unknown", true, "serialize unknown attributes")
	fs.BoolVar(&e.verbose, "v", false, "enable debug logs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if e.schemaPath == "" {
		return errors.New("-schema is required")
	}
	e.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { e.set[f.Name] = true })

	level := slog.LevelWarn
	if e.verbose {
		level = slog.LevelDebug
	}
	e.logger = slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// load compiles the schema file against the base config and applies the
// serialization flags given on the command line.
func (e *env) load() error {
	base := storemodel.DefaultConfig()
	if e.configPath != "" {
		var err error
		if base, err = storemodel.LoadConfigFile(e.configPath); err != nil {
			return err
		}
	}
	base.Logger = e.logger
	reg, err := schemafile.LoadFile(e.schemaPath, schemafile.WithBaseConfig(base))
	if err != nil {
		return err
	}
	cfg := reg.Config()
	cfg.Logger = e.logger
	if e.set["labels"] {
		cfg.SerializeEnumsAsLabel = e.labels
	}
	if e.set["unknown"] {
		cfg.SerializeUnknownAttributes = e.unknown
	}
	e.reg = reg
	e.logger.Debug("schemas loaded", "path", e.schemaPath, "schemas", reg.Names(), "unions", reg.UnionNames())
	return nil
}

// payload reads and decodes the JSON input, then casts it through the
// selected container type.
func (e *env) payload() (storemodel.Type, any, error) {
	if e.typeName == "" {
		return nil, nil, errors.New("-type is required")
	}
	t, err := e.reg.Type(e.typeName, e.kind)
	if err != nil {
		return nil, nil, err
	}
	r := e.stdin
	if e.in != "" {
		f, err := os.Open(e.in)
		if err != nil {
			return nil, nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read payload: %w", err)
	}
	decoded, err := storemodel.Unmarshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	v, err := t.Cast(decoded)
	if err != nil {
		return nil, nil, err
	}
	return t, v, nil
}

func castCmd(e *env) error {
	if err := e.load(); err != nil {
		return err
	}
	t, v, err := e.payload()
	if err != nil {
		return err
	}
	out, err := t.Serialize(v)
	if err != nil {
		return err
	}
	if out == nil {
		out = "null"
	}
	_, err = fmt.Fprintln(e.stdout, out)
	return err
}

func validateCmd(e *env) error {
	if err := e.load(); err != nil {
		return err
	}
	_, v, err := e.payload()
	if err != nil {
		return err
	}
	invalid := 0
	for _, li := range labeled(v) {
		err := li.inst.Check()
		if err == nil {
			continue
		}
		if _, ok := storemodel.AsValidationErrors(err); !ok {
			return err
		}
		invalid++
		for _, msg := range li.inst.Errors().FullMessages() {
			if li.label == "" {
				fmt.Fprintln(e.stdout, msg)
			} else {
				fmt.Fprintf(e.stdout, "[%s] %s\n", li.label, msg)
			}
		}
	}
	if invalid > 0 {
		return errInvalid{n: invalid}
	}
	fmt.Fprintln(e.stdout, "ok")
	return nil
}

type labeledInstance struct {
	label string
	inst  *storemodel.Instance
}

// labeled flattens a cast container value into instances labeled by index
// or key.
func labeled(v any) []labeledInstance {
	switch val := v.(type) {
	case *storemodel.Instance:
		return []labeledInstance{{inst: val}}
	case []*storemodel.Instance:
		out := make([]labeledInstance, len(val))
		for i, inst := range val {
			out[i] = labeledInstance{label: fmt.Sprint(i), inst: inst}
		}
		return out
	case map[string]*storemodel.Instance:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]labeledInstance, len(keys))
		for i, k := range keys {
			out[i] = labeledInstance{label: k, inst: val[k]}
		}
		return out
	}
	return nil
}

var dumper = spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true, DisableCapacities: true}

func inspectCmd(e *env) error {
	if err := e.load(); err != nil {
		return err
	}
	if e.typeName != "" {
		_, v, err := e.payload()
		if err != nil {
			return err
		}
		for _, li := range labeled(v) {
			if li.label != "" {
				fmt.Fprintf(e.stdout, "[%s] ", li.label)
			}
			fmt.Fprintf(e.stdout, "%s\n", li.inst.Schema().Name())
			dumper.Fdump(e.stdout, li.inst.Attributes())
			if unknown := li.inst.UnknownAttributes(); len(unknown) > 0 {
				fmt.Fprintln(e.stdout, "unknown:")
				dumper.Fdump(e.stdout, unknown)
			}
		}
		return nil
	}

	for _, name := range e.reg.Names() {
		s, _ := e.reg.Schema(name)
		fmt.Fprintf(e.stdout, "schema %s\n", name)
		for _, attr := range s.AttributeNames() {
			a, _ := s.Attribute(attr)
			line := fmt.Sprintf("  %s %s", attr, typeName(a.Type()))
			if enum, ok := a.Type().(*dsl.EnumType); ok {
				line += " [" + strings.Join(enum.Labels(), ", ") + "]"
			}
			if attr == s.DiscriminatorName() {
				line += fmt.Sprintf(" discriminator=%v", s.DiscriminatorValue())
			}
			fmt.Fprintln(e.stdout, line)
		}
		aliases := s.Aliases()
		for _, alias := range sortedKeys(aliases) {
			fmt.Fprintf(e.stdout, "  alias %s -> %s\n", alias, aliases[alias])
		}
	}
	for _, name := range e.reg.UnionNames() {
		u, _ := e.reg.Union(name)
		members := make([]string, 0, len(u.Schemas()))
		for _, s := range u.Schemas() {
			members = append(members, s.Name())
		}
		fmt.Fprintf(e.stdout, "union %s [%s]\n", name, strings.Join(members, ", "))
	}
	return nil
}

// typeName prefers the dsl name of scalar types over their kind.
func typeName(t storemodel.Type) string {
	if n, ok := t.(interface{ TypeName() string }); ok && !t.Kind().Container() {
		return n.TypeName()
	}
	return t.Kind().String()
}

func jsonschemaCmd(e *env) error {
	if err := e.load(); err != nil {
		return err
	}
	if e.typeName == "" {
		return errors.New("-type is required")
	}
	t, err := e.reg.Type(e.typeName, e.kind)
	if err != nil {
		return err
	}
	doc := jsonschema.ForType(t)
	if e.kind == "one" {
		// A bare instance document reads better than a $ref to itself.
		if s, ok := e.reg.Schema(e.typeName); ok {
			doc = jsonschema.ForSchema(s)
		}
	}
	b, err := doc.Marshal()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.stdout, string(b))
	return err
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
