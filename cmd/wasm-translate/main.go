package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-translator/environ"
	"github.com/wippyai/wasm-translator/errors"
	"github.com/wippyai/wasm-translator/translate"
	"github.com/wippyai/wasm-translator/wasm"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to core wasm module")
		names       = flag.Bool("names", false, "Print the name section")
		check       = flag.Bool("check", false, "Cross-check the result against wazero")
		interactive = flag.Bool("i", false, "Interactive function browser")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: wasm-translate -wasm <file.wasm> [-names] [-check] [-v]")
		fmt.Fprintln(os.Stderr, "       wasm-translate -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = log.Sync() }()
		translate.SetLogger(log)
		environ.SetLogger(log)
	}

	if *interactive {
		if err := runInteractive(*wasmFile); err != nil {
			fmt.Fprintln(os.Stderr, describe(err))
			os.Exit(1)
		}
		return
	}

	st := newStyles(term.IsTerminal(int(os.Stdout.Fd())))
	if err := run(os.Stdout, st, *wasmFile, *names, *check); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func run(w io.Writer, st styles, wasmFile string, names, check bool) error {
	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	info, state, err := environ.Translate(data)
	if err != nil {
		return err
	}

	report(w, st, wasmFile, info)
	if names {
		reportNames(w, st, info)
	}

	if check {
		if err := crossCheck(context.Background(), data, info, state); err != nil {
			return fmt.Errorf("check: %w", err)
		}
		fmt.Fprintf(w, "\n%s\n", st.ok.Render("wazero agrees"))
	}
	return nil
}

// describe labels an error so unsupported input reads differently from a
// broken module.
func describe(err error) string {
	switch {
	case errors.IsUnsupported(err):
		return "not supported: " + err.Error()
	case errors.IsMalformed(err), errors.IsStructural(err):
		return "invalid module: " + err.Error()
	case errors.IsBackend(err):
		return "backend error: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

type styles struct {
	title lipgloss.Style
	name  lipgloss.Style
	kind  lipgloss.Style
	dim   lipgloss.Style
	ok    lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{title: plain, name: plain, kind: plain, dim: plain, ok: plain}
	}
	return styles{
		title: titleStyle,
		name:  funcStyle,
		kind:  typeStyle,
		dim:   helpStyle,
		ok:    resultStyle,
	}
}

func report(w io.Writer, st styles, file string, info *environ.ModuleInfo) {
	header := "Module: " + file
	if info.Name != "" {
		header += fmt.Sprintf(" (%s)", info.Name)
	}
	fmt.Fprintln(w, st.title.Render(header))

	fmt.Fprintf(w, "Types: %d\n", len(info.Signatures))
	fmt.Fprintf(w, "Imports: %d\n", len(info.Imports))
	fmt.Fprintf(w, "Functions: %d (%d defined)\n", info.FunctionCount(), info.DefinedFunctionCount())
	fmt.Fprintf(w, "Tables: %d  Memories: %d  Globals: %d\n", info.TableCount(), info.MemoryCount(), info.GlobalCount())
	fmt.Fprintf(w, "Element segments: %d  Data segments: %d\n", len(info.Elements), len(info.Data))

	if len(info.Imports) > 0 {
		fmt.Fprintf(w, "\nImports:\n")
		for _, imp := range info.Imports {
			fmt.Fprintf(w, "  %s.%s %s\n", imp.Module, imp.Name, st.kind.Render(imp.Desc.Kind.String()))
		}
	}

	if len(info.Exports) > 0 {
		fmt.Fprintf(w, "\nExports:\n")
		for _, exp := range info.Exports {
			line := fmt.Sprintf("  %s %s[%d]", st.name.Render(exp.Name), st.kind.Render(exp.Kind.String()), exp.Index)
			if exp.Kind == wasm.KindFunc {
				if sig, ok := info.FunctionType(exp.Index); ok {
					line += " " + st.dim.Render(sig.String())
				}
			}
			fmt.Fprintln(w, line)
		}
	}

	if info.Start != nil {
		start := fmt.Sprintf("func[%d]", *info.Start)
		if name := info.FunctionName(*info.Start); name != "" {
			start += " " + name
		}
		fmt.Fprintf(w, "\nStart: %s\n", start)
	}

	if len(info.CustomSections) > 0 {
		customs := make([]string, len(info.CustomSections))
		for i, cs := range info.CustomSections {
			customs[i] = fmt.Sprintf("%s (%d bytes)", cs.Name, len(cs.Data))
		}
		fmt.Fprintf(w, "\nCustom sections: %s\n", strings.Join(customs, ", "))
	}
}

func reportNames(w io.Writer, st styles, info *environ.ModuleInfo) {
	fmt.Fprintf(w, "\nNames:\n")
	if info.Name != "" {
		fmt.Fprintf(w, "  module %s\n", st.name.Render(info.Name))
	}
	for _, idx := range sortedKeys(info.Names.FunctionNames) {
		fmt.Fprintf(w, "  func[%d] %s\n", idx, st.name.Render(info.Names.FunctionNames[idx]))
		locals := info.Names.LocalNames[idx]
		for _, l := range sortedKeys(locals) {
			fmt.Fprintf(w, "    local[%d] %s\n", l, st.dim.Render(locals[l]))
		}
	}
}

func sortedKeys(m map[wasm.Index]string) []wasm.Index {
	keys := make([]wasm.Index, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// crossCheck compiles the module with wazero and compares what it sees
// against the translated result.
func crossCheck(ctx context.Context, data []byte, info *environ.ModuleInfo, state *translate.State) error {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		return fmt.Errorf("wazero rejected module: %w", err)
	}
	defer compiled.Close(ctx)

	if got, want := uint32(len(compiled.ImportedFunctions())), state.ImportedFunctionCount(); got != want {
		return fmt.Errorf("imported functions: wazero %d, translated %d", got, want)
	}
	if compiled.Name() != info.Name {
		return fmt.Errorf("module name: wazero %q, translated %q", compiled.Name(), info.Name)
	}

	funcExports := 0
	for _, exp := range info.Exports {
		if exp.Kind != wasm.KindFunc {
			continue
		}
		funcExports++
		def, ok := compiled.ExportedFunctions()[exp.Name]
		if !ok {
			return fmt.Errorf("export %q missing in wazero", exp.Name)
		}
		sig, _ := state.FunctionSignature(exp.Index)
		if len(sig.Params) != len(def.ParamTypes()) || len(sig.Results) != len(def.ResultTypes()) {
			return fmt.Errorf("export %q: signature %s disagrees with wazero", exp.Name, sig)
		}
	}
	if funcExports != len(compiled.ExportedFunctions()) {
		return fmt.Errorf("function exports: wazero %d, translated %d", len(compiled.ExportedFunctions()), funcExports)
	}
	return nil
}
