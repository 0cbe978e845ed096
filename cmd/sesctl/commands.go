package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	ses "github.com/drses/frozen-realms-shim"
	"github.com/drses/frozen-realms-shim/application/realm"
	"github.com/drses/frozen-realms-shim/application/schema"
	"github.com/drses/frozen-realms-shim/domain/entities"
	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/host"
	"github.com/drses/frozen-realms-shim/primordials"
)

// hardeningFlags are shared by every command that initializes a baseline.
type hardeningFlags struct {
	config      string
	policy      string
	maxSeverity string
	defects     []string
	extensions  bool
	debug       bool
	jsonOutput  bool
}

func (h *hardeningFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&h.config, "config", "", "YAML configuration file")
	fs.StringVar(&h.policy, "policy", "", "policy document (YAML, JSON or JSONC); default is the bundled policy")
	fs.StringVar(&h.maxSeverity, "max-severity", "", "worst acceptable severity, e.g. safe-spec-violation")
	fs.StringSliceVar(&h.defects, "defects", nil, "install known native defects: "+strings.Join(primordials.Defects(), ","))
	fs.BoolVar(&h.extensions, "extensions", false, "add non-standard host extensions")
	fs.BoolVar(&h.debug, "debug", false, "log every decision to stderr")
	fs.BoolVar(&h.jsonOutput, "json", false, "print JSON instead of text")
}

// baseline builds and initializes a baseline from the flags. Command-line
// flags override the configuration file.
func (h *hardeningFlags) baseline(ctx context.Context, stderr io.Writer) (*ses.Baseline, *ses.Report, error) {
	logger := newLogger(stderr, h.debug)
	opts := []ses.Option{ses.WithLogger(logger)}
	if h.config != "" {
		cfg, err := ses.LoadConfig(h.config)
		if err != nil {
			return nil, nil, err
		}
		fromFile, err := cfg.Options()
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, fromFile...)
	}
	if h.policy != "" {
		opts = append(opts, ses.WithPolicyFile(h.policy))
	}
	if h.maxSeverity != "" {
		sev, err := entities.ParseSeverity(h.maxSeverity)
		if err != nil {
			return nil, nil, &exitError{code: 2, err: err}
		}
		opts = append(opts, ses.WithThreshold(sev))
	}

	hostOpts := []primordials.HostOption{primordials.WithLogger(logger)}
	if h.extensions {
		hostOpts = append(hostOpts, primordials.WithExtensions())
	}
	if len(h.defects) > 0 {
		hostOpts = append(hostOpts, primordials.WithDefects(h.defects...))
	}
	root, err := primordials.NewHost(hostOpts...)
	if err != nil {
		return nil, nil, err
	}

	b := ses.NewBaseline(root, opts...)
	report, err := b.Initialize(ctx)
	return b, report, err
}

func runInit(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var h hardeningFlags
	fs := pflag.NewFlagSet("init", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	h.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, report, err := h.baseline(ctx, stderr)
	if report != nil {
		if perr := printReport(stdout, report, h.jsonOutput); perr != nil {
			return perr
		}
	}
	if err != nil {
		return &exitError{code: 3, err: err}
	}
	return nil
}

func printReport(w io.Writer, report *ses.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintln(w, report.Summary())
	if report.Taming != nil {
		for _, v := range report.Taming.Examples {
			fmt.Fprintf(w, "  %-14s %-24s %s\n", v.Disposition, v.Severity, v.Path)
		}
		if report.Taming.Omitted > 0 {
			fmt.Fprintf(w, "  ... %d more\n", report.Taming.Omitted)
		}
	}
	return nil
}

func runConfine(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var h hardeningFlags
	var binds []string
	fs := pflag.NewFlagSet("confine", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	h.register(fs)
	fs.StringArrayVar(&binds, "bind", nil, "bind a global, name=value; values are JSON when they parse as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return &exitError{code: 2, err: fmt.Errorf("confine takes exactly one source argument")}
	}
	bindings, err := parseBindings(binds)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	b, _, err := h.baseline(ctx, stderr)
	if err != nil {
		return &exitError{code: 3, err: err}
	}
	v, err := b.Confine(ctx, fs.Arg(0), bindings)
	if err != nil {
		return &exitError{code: 4, err: err}
	}
	return printValue(stdout, v)
}

func runModule(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var h hardeningFlags
	fs := pflag.NewFlagSet("module", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	h.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return &exitError{code: 2, err: fmt.Errorf("module takes exactly one file argument")}
	}
	wasm, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	b, _, err := h.baseline(ctx, stderr)
	if err != nil {
		return &exitError{code: 3, err: err}
	}
	v, err := b.ConfineModule(ctx, wasm, moduleImports())
	if err != nil {
		return &exitError{code: 4, err: err}
	}
	return printValue(stdout, v)
}

// moduleImports are the host functions every module run from the command
// line may call.
func moduleImports() map[string]host.Import {
	number := func(c graph.Call, i int) float64 {
		f, _ := c.Arg(i).(float64)
		return f
	}
	return map[string]host.Import{
		"add": host.Func("add", 2, func(c graph.Call) (graph.Value, error) {
			return number(c, 0) + number(c, 1), nil
		}),
		"mul": host.Func("mul", 2, func(c graph.Call) (graph.Value, error) {
			return number(c, 0) * number(c, 1), nil
		}),
	}
}

func parseBindings(binds []string) (map[string]any, error) {
	out := make(map[string]any, len(binds))
	for _, bind := range binds {
		name, raw, ok := strings.Cut(bind, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid binding %q, want name=value", bind)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[name] = v
	}
	return out, nil
}

func printValue(w io.Writer, v graph.Value) error {
	out, err := realm.Export(v)
	if err != nil {
		_, err = fmt.Fprintln(w, graph.Describe(v))
		return err
	}
	if _, isFn := out.(*graph.Object); isFn {
		_, err = fmt.Fprintln(w, graph.Describe(v))
		return err
	}
	data, err := json.Marshal(out)
	if err != nil {
		// NaN and the infinities have no JSON form.
		_, err = fmt.Fprintln(w, graph.Describe(v))
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func runSchema(args []string, stdout io.Writer) error {
	which := "config"
	if len(args) > 0 {
		which = args[0]
	}
	switch which {
	case "config":
		out, err := ses.ConfigSchema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(out))
		return err
	case schema.PolicySchemaName:
		_, err := fmt.Fprintln(stdout, schema.PolicySchema())
		return err
	default:
		return &exitError{code: 2, err: fmt.Errorf("unknown schema %q, want config or policy", which)}
	}
}
