package goverif

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// resolvedParam is one model parameter correlated back to the function
// argument it constrains.
type resolvedParam struct {
	name        string
	typeName    string
	valueString string
	// paramOrdinal is set only when the access path is the argument
	// itself, not a location inside it.
	paramOrdinal int
	// owningOrdinal is the ordinal of the argument at the root of the
	// access path, whatever the nesting depth.
	owningOrdinal int
}

type funcArg struct {
	typeName string
	name     string
	ordinal  int

	// fields reached through qualified paths rooted at this argument,
	// in first-seen order. First write wins so that constructor stub
	// signatures stay stable across solver queries.
	fieldNames []string
	fields     map[string]*resolvedParam
}

func (a *funcArg) displayName() string {
	if a.name != "" {
		return a.name
	}
	return fmt.Sprintf("param_%d", a.ordinal)
}

type testcase struct {
	// The checked symbolic value is carried along but not rendered.
	checked   ExprPtr
	paramList []*resolvedParam
}

type funcTestGroup struct {
	funcName    string
	funcNameRaw string
	paramNames  []string
	paramMap    map[string]*resolvedParam
	args        []*funcArg
	testcases   []*testcase
}

// TestGen accumulates satisfying assignments per function and turns them
// into generated test source. One instance per verification run: NewTestGen,
// any number of AddTest calls, one Emit.
type TestGen struct {
	outputDir       string
	tctx            TypeContext
	maxTestsPerFunc int
	groups          map[string]*funcTestGroup
	log             *slog.Logger
}

func NewTestGen(outputDir string, tctx TypeContext) *TestGen {
	return &TestGen{
		outputDir: outputDir,
		tctx:      tctx,
		groups:    make(map[string]*funcTestGroup),
		log:       slog.Default(),
	}
}

func NewTestGenWithConfig(cfg *Config, tctx TypeContext) *TestGen {
	tg := NewTestGen(cfg.TestOutputDir, tctx)
	tg.maxTestsPerFunc = cfg.MaxTestsPerFunc
	return tg
}

func sanitizeFuncName(name string) string {
	r := strings.NewReplacer("::", "_", ".", "_", "/", "_", "-", "_", " ", "_")
	return r.Replace(name)
}

func (tg *TestGen) getOrCreateGroup(functionName string, meta *FuncMeta, debugNames map[int]string) *funcTestGroup {
	funcName := sanitizeFuncName(functionName)
	if g, ok := tg.groups[funcName]; ok {
		return g
	}

	args := make([]*funcArg, 0, len(meta.Args))
	for i := 0; i < len(meta.Args); i++ {
		ordinal := i + 1
		name := debugNames[ordinal]
		if name == "" {
			name = meta.Args[i].DebugName
		}
		args = append(args, &funcArg{
			typeName: meta.Args[i].TypeName,
			name:     name,
			ordinal:  ordinal,
			fields:   make(map[string]*resolvedParam),
		})
	}

	g := &funcTestGroup{
		funcName:    funcName,
		funcNameRaw: functionName,
		paramMap:    make(map[string]*resolvedParam),
		args:        args,
	}
	tg.groups[funcName] = g
	return g
}

// AddTest records one satisfying assignment for functionName. Every model
// parameter must carry an access path rooted at one of the function's
// arguments; anything else is an error in the caller-supplied data.
func (tg *TestGen) AddTest(functionName string, checked ExprPtr, params []*ModelParam,
	meta *FuncMeta, debugNames map[int]string, at SourceSpan) error {

	g := tg.getOrCreateGroup(functionName, meta, debugNames)

	if tg.maxTestsPerFunc > 0 && len(g.testcases) >= tg.maxTestsPerFunc {
		tg.log.Debug("test generation: per-function cap reached, dropping assignment",
			slog.String("function", g.funcName),
			slog.Int("cap", tg.maxTestsPerFunc))
		return nil
	}

	resolvedParams := make([]*resolvedParam, 0, len(params))
	for _, param := range params {
		if param.Path == nil {
			return fmt.Errorf("model parameter %q has no access path", param.Name)
		}
		root := param.Path.Root()
		if root.Kind() != PATH_PARAMETER {
			return fmt.Errorf("model parameter %q is not rooted at a function argument (root %s)",
				param.Name, root)
		}
		owning := root.Ordinal()
		if owning < 1 || owning > len(g.args) {
			return fmt.Errorf("model parameter %q has argument ordinal %d out of range for %s",
				param.Name, owning, g.funcNameRaw)
		}

		paramOrdinal := 0
		if param.Path.Kind() == PATH_PARAMETER {
			paramOrdinal = param.Path.Ordinal()
		}

		name := param.Name
		if name == "" {
			if sel, err := param.Path.Selector(); err == nil {
				name = sel.DisplayName()
			} else {
				name = param.Path.String()
			}
		}

		resolvedParams = append(resolvedParams, &resolvedParam{
			name:          name,
			typeName:      tg.tctx.PathTypeName(param.Path, at),
			valueString:   param.Value.Literal(),
			paramOrdinal:  paramOrdinal,
			owningOrdinal: owning,
		})
	}

	// Commit only after every parameter resolved: a rejected call must not
	// leave partial fields behind.
	for _, resolved := range resolvedParams {
		if _, ok := g.paramMap[resolved.name]; !ok {
			g.paramMap[resolved.name] = resolved
			g.paramNames = append(g.paramNames, resolved.name)
		}
		if resolved.paramOrdinal == 0 {
			arg := g.args[resolved.owningOrdinal-1]
			if _, ok := arg.fields[resolved.name]; !ok {
				arg.fields[resolved.name] = resolved
				arg.fieldNames = append(arg.fieldNames, resolved.name)
			}
		}
	}

	g.testcases = append(g.testcases, &testcase{checked: checked, paramList: resolvedParams})
	return nil
}

func (tg *TestGen) outputConstructorStub(arg *funcArg) string {
	fields := make([]string, 0, len(arg.fieldNames))
	for _, name := range arg.fieldNames {
		fields = append(fields, fmt.Sprintf("%s: Option<%s>", name, arg.fields[name].typeName))
	}
	return fmt.Sprintf("    fn make_%s(%s) -> %s {\n        todo!()\n    }\n",
		arg.displayName(), strings.Join(fields, ", "), arg.typeName)
}

func (tg *TestGen) outputTestcase(testInd int, g *funcTestGroup, tc *testcase) string {
	initializers := strings.Builder{}
	for _, param := range tc.paramList {
		initializers.WriteString(fmt.Sprintf("        let %s: %s = %s;\n",
			param.name, param.typeName, param.valueString))
	}

	// Direct (depth-0) values for each argument position, if this
	// assignment produced one.
	resolvedArgs := make([]*resolvedParam, len(g.args))
	for _, resolved := range tc.paramList {
		if resolved.paramOrdinal > 0 {
			resolvedArgs[resolved.paramOrdinal-1] = resolved
		}
	}

	// Field values constrained in this particular assignment, per
	// argument ordinal.
	caseFields := make(map[int]map[string]*resolvedParam)
	for _, resolved := range tc.paramList {
		if resolved.paramOrdinal > 0 {
			continue
		}
		if _, ok := caseFields[resolved.owningOrdinal]; !ok {
			caseFields[resolved.owningOrdinal] = make(map[string]*resolvedParam)
		}
		caseFields[resolved.owningOrdinal][resolved.name] = resolved
	}

	callArgs := make([]string, 0, len(g.args))
	for i := 0; i < len(g.args); i++ {
		arg := g.args[i]
		if resolved := resolvedArgs[i]; resolved != nil {
			callArgs = append(callArgs, resolved.valueString)
			continue
		}
		if len(arg.fieldNames) > 0 {
			ctorArgs := make([]string, 0, len(arg.fieldNames))
			for _, name := range arg.fieldNames {
				if resolved, ok := caseFields[arg.ordinal][name]; ok {
					ctorArgs = append(ctorArgs, fmt.Sprintf("Some(%s)", resolved.valueString))
				} else {
					ctorArgs = append(ctorArgs, "None")
				}
			}
			callArgs = append(callArgs, fmt.Sprintf("make_%s(%s)", arg.displayName(), strings.Join(ctorArgs, ", ")))
			continue
		}
		// No value and no known fields: assume the surrounding scaffold
		// binds the display name.
		tg.log.Warn("test generation: argument has no resolved value, using its display name",
			slog.String("function", g.funcName),
			slog.String("argument", arg.displayName()),
			slog.Int("test", testInd))
		callArgs = append(callArgs, arg.displayName())
	}

	funcCall := fmt.Sprintf("%s(%s);", g.funcNameRaw, strings.Join(callArgs, ", "))
	return fmt.Sprintf("    #[test]\n    fn test_%d() {\n%s\n        %s\n    }\n",
		testInd, initializers.String(), funcCall)
}

func (tg *TestGen) outputFunctionTestcases(g *funcTestGroup) string {
	out := strings.Builder{}
	out.WriteString(fmt.Sprintf("#[cfg(test)]\nmod %s_tests {\n    use super::*;\n", g.funcName))
	for i := 0; i < len(g.args); i++ {
		if len(g.args[i].fieldNames) > 0 {
			out.WriteString(tg.outputConstructorStub(g.args[i]))
		}
	}
	for i, tc := range g.testcases {
		out.WriteString(tg.outputTestcase(i, g, tc))
	}
	out.WriteString("}")
	return out.String()
}

// Emit writes one generated source unit per recorded function into the
// output directory, in sorted order. A failed write is logged and skipped;
// generation is best-effort, not all-or-nothing.
func (tg *TestGen) Emit() error {
	if err := os.MkdirAll(tg.outputDir, 0o755); err != nil {
		return fmt.Errorf("test generation: cannot create %s: %w", tg.outputDir, err)
	}

	names := make([]string, 0, len(tg.groups))
	for name := range tg.groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		content := tg.outputFunctionTestcases(tg.groups[name])
		path := filepath.Join(tg.outputDir, name+"_tests.rs")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			tg.log.Error("test generation: write failed",
				slog.String("file", path),
				slog.String("error", err.Error()))
			continue
		}
		tg.log.Debug("test generation: wrote test unit",
			slog.String("file", path),
			slog.Int("testcases", len(tg.groups[name].testcases)))
	}
	return nil
}
