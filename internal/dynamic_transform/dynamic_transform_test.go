package dynamic_transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bundlekit/lazydynamic/internal/js_printer"
	"github.com/bundlekit/lazydynamic/pkg/js_ast"
	"github.com/bundlekit/lazydynamic/pkg/logger"
)

func str(value string) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EString{Value: value}}
}

func ident(name string) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EIdentifier{Name: name}}
}

func number(value float64) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.ENumber{Value: value}}
}

func callExpr(target js_ast.Expr, args ...js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.ECall{Target: target, Args: args}}
}

func arrowReturning(value js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EArrow{
		PreferExpr: true,
		Body: js_ast.FnBody{Stmts: []js_ast.Stmt{
			{Data: &js_ast.SReturn{ValueOrNil: value}},
		}},
	}}
}

// () => import("<specifier>")
func loader(specifier string) js_ast.Expr {
	return arrowReturning(js_ast.Expr{Data: &js_ast.EImport{Expr: str(specifier)}})
}

func prop(key string, value js_ast.Expr) js_ast.Property {
	return js_ast.Property{Key: str(key), ValueOrNil: value}
}

func objectLit(props ...js_ast.Property) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EObject{Properties: props, IsSingleLine: true}}
}

func helperImport(local string, path string) js_ast.Stmt {
	name := js_ast.LocName{Name: local}
	return js_ast.Stmt{Data: &js_ast.SImport{DefaultName: &name, PathText: path}}
}

func constDecl(name string, value js_ast.Expr) js_ast.Stmt {
	return js_ast.Stmt{Data: &js_ast.SLocal{
		Kind: js_ast.LocalConst,
		Decls: []js_ast.Decl{{
			Binding:    js_ast.Binding{Data: &js_ast.BIdentifier{Name: name}},
			ValueOrNil: value,
		}},
	}}
}

func moduleOf(stmts ...js_ast.Stmt) *js_ast.Module {
	return &js_ast.Module{Stmts: stmts}
}

func testSource() logger.Source {
	return logger.Source{
		KeyPath:    logger.Path{Text: "/project/src/page.js", Namespace: "file"},
		PrettyPath: "src/page.js",
	}
}

func runPass(t *testing.T, module *js_ast.Module, options Options) (string, []logger.Msg) {
	t.Helper()
	log := logger.NewDeferLog()
	source := testSource()
	Transform(log, &source, module, options)
	return string(js_printer.Print(module, js_printer.Options{}).JS), log.Done()
}

func printModule(module *js_ast.Module) string {
	return string(js_printer.Print(module, js_printer.Options{}).JS)
}

func TestWebpackDevelopment(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("Hello", callExpr(ident("dynamic"), loader("../components/hello"))),
	)

	js, msgs := runPass(t, module, Options{
		Mode:          ModeWebpack,
		IsDevelopment: true,
		BaseDir:       "/project/pages",
	})

	assert.Empty(t, msgs)
	assert.Equal(t, `import dynamic from "next/dynamic";
const Hello = dynamic(() => import("../components/hello"), { loadableGenerated: { modules: ["src/page.js -> " + "../components/hello"] } });
`, js)
}

func TestWebpackServerCompiler(t *testing.T) {
	// The server compiler gets manifest keys even in production builds
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("Hello", callExpr(ident("dynamic"), loader("./hello"))),
	)

	js, msgs := runPass(t, module, Options{
		Mode:             ModeWebpack,
		IsServerCompiler: true,
		BaseDir:          "/project/pages",
	})

	assert.Empty(t, msgs)
	assert.Contains(t, js, `modules: ["src/page.js -> " + "./hello"]`)
}

func TestWebpackProductionClient(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("Hello", callExpr(ident("dynamic"), loader("../components/hello"))),
	)

	js, msgs := runPass(t, module, Options{
		Mode:    ModeWebpack,
		BaseDir: "/project/pages",
	})

	assert.Empty(t, msgs)
	assert.Equal(t, `import dynamic from "next/dynamic";
const Hello = dynamic(() => import("../components/hello"), { loadableGenerated: { webpack: () => [require.resolveWeak("../components/hello")] } });
`, js)
}

func TestWebpackExistingOptionsComeAfterMetadata(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("Hello", callExpr(ident("dynamic"),
			loader("./hello"),
			objectLit(
				prop("loading", ident("Spinner")),
				prop("ssr", js_ast.Expr{Data: &js_ast.EBoolean{Value: true}}),
			),
		)),
	)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack, IsDevelopment: true})

	assert.Empty(t, msgs)
	assert.Contains(t, js,
		`{ loadableGenerated: { modules: ["/project/src/page.js -> " + "./hello"] }, loading: Spinner, ssr: true }`)
}

func TestWebpackSSRFalseDecoupling(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("Hello", callExpr(ident("dynamic"),
			loader("./client-mod"),
			objectLit(prop("ssr", js_ast.Expr{Data: &js_ast.EBoolean{Value: false}})),
		)),
	)

	js, msgs := runPass(t, module, Options{
		Mode:             ModeWebpack,
		IsServerCompiler: true,
		PreferESM:        true,
		BaseDir:          "/project/pages",
	})

	assert.Empty(t, msgs)
	assert.Equal(t, `import dynamic from "next/dynamic";
const Hello = dynamic(async () => {
  typeof require.resolveWeak !== "undefined" && require.resolveWeak("./client-mod");
}, { loadableGenerated: { modules: ["src/page.js -> " + "./client-mod"] }, ssr: false });
`, js)
}

func TestWebpackSSRFalseKeepsLoaderOnReactServerLayer(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("Hello", callExpr(ident("dynamic"),
			loader("./client-mod"),
			objectLit(prop("ssr", js_ast.Expr{Data: &js_ast.EBoolean{Value: false}})),
		)),
	)

	js, _ := runPass(t, module, Options{
		Mode:               ModeWebpack,
		IsServerCompiler:   true,
		IsReactServerLayer: true,
		PreferESM:          true,
	})

	assert.Contains(t, js, `dynamic(() => import("./client-mod"),`)
}

func TestWebpackSSRFalseKeepsLoaderWithoutPreferESM(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("Hello", callExpr(ident("dynamic"),
			loader("./client-mod"),
			objectLit(prop("ssr", js_ast.Expr{Data: &js_ast.EBoolean{Value: false}})),
		)),
	)

	js, _ := runPass(t, module, Options{
		Mode:             ModeWebpack,
		IsServerCompiler: true,
	})

	assert.Contains(t, js, `dynamic(() => import("./client-mod"),`)
}

func TestTurbopack(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("A", callExpr(ident("dynamic"),
			loader("./y"),
			objectLit(prop("ssr", js_ast.Expr{Data: &js_ast.EBoolean{Value: false}})),
		)),
	)

	js, msgs := runPass(t, module, Options{
		Mode:           ModeTurbopack,
		TransitionName: "next-dynamic",
	})

	assert.Empty(t, msgs)
	assert.Equal(t, `import { __turbopack_module_id__ as id } from "./y" with { "turbopack-transition": "next-dynamic", "turbopack-chunking-type": "none" };
import dynamic from "next/dynamic";
const A = dynamic(() => import("./y", { with: { "turbopack-transition": "next-dynamic" } }), { loadableGenerated: { modules: [id] }, ssr: false });
`, js)
}

func TestTurbopackRepeatedSpecifierIsNotDeduplicated(t *testing.T) {
	// Each call site is its own manifest entry, so two calls loading the same
	// module still get two imports under two fresh names
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("A", callExpr(ident("dynamic"), loader("./y"))),
		constDecl("B", callExpr(ident("dynamic"), loader("./y"))),
	)

	js, msgs := runPass(t, module, Options{
		Mode:           ModeTurbopack,
		TransitionName: "next-dynamic",
	})

	assert.Empty(t, msgs)
	assert.Equal(t, `import { __turbopack_module_id__ as id } from "./y" with { "turbopack-transition": "next-dynamic", "turbopack-chunking-type": "none" };
import { __turbopack_module_id__ as id1 } from "./y" with { "turbopack-transition": "next-dynamic", "turbopack-chunking-type": "none" };
import dynamic from "next/dynamic";
const A = dynamic(() => import("./y", { with: { "turbopack-transition": "next-dynamic" } }), { loadableGenerated: { modules: [id] } });
const B = dynamic(() => import("./y", { with: { "turbopack-transition": "next-dynamic" } }), { loadableGenerated: { modules: [id1] } });
`, js)
}

func TestNoHelperImportLeavesModuleUnchanged(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "some-other-module"),
		constDecl("Hello", callExpr(ident("dynamic"), loader("./hello"))),
	)
	before := printModule(module)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack, IsDevelopment: true})

	assert.Empty(t, msgs)
	assert.Equal(t, before, js)
}

func TestNamedImportFromHelperIsIgnored(t *testing.T) {
	items := []js_ast.ClauseItem{{Alias: "noSSR", Name: js_ast.LocName{Name: "noSSR"}}}
	module := moduleOf(
		js_ast.Stmt{Data: &js_ast.SImport{Items: &items, PathText: "next/dynamic"}},
		constDecl("Hello", callExpr(ident("noSSR"), loader("./hello"))),
	)
	before := printModule(module)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack, IsDevelopment: true})

	assert.Empty(t, msgs)
	assert.Equal(t, before, js)
}

func TestMultipleDefaultBindingsAreAllEligible(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		helperImport("lazy", "next/dynamic"),
		constDecl("A", callExpr(ident("dynamic"), loader("./a"))),
		constDecl("B", callExpr(ident("lazy"), loader("./b"))),
	)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack, IsDevelopment: true})

	assert.Empty(t, msgs)
	assert.Contains(t, js, `"/project/src/page.js -> " + "./a"`)
	assert.Contains(t, js, `"/project/src/page.js -> " + "./b"`)
}

func TestCustomHelperModule(t *testing.T) {
	module := moduleOf(
		helperImport("lazyLoad", "framework/lazy"),
		constDecl("A", callExpr(ident("lazyLoad"), loader("./a"))),
	)

	js, msgs := runPass(t, module, Options{
		Mode:          ModeWebpack,
		IsDevelopment: true,
		HelperModule:  "framework/lazy",
	})

	assert.Empty(t, msgs)
	assert.Contains(t, js, "loadableGenerated")
}

func TestZeroArgumentsIsAnError(t *testing.T) {
	source := logger.Source{
		KeyPath:    logger.Path{Text: "/project/src/page.js", Namespace: "file"},
		PrettyPath: "src/page.js",
		Contents:   "const A = dynamic();",
	}
	call := js_ast.Expr{Data: &js_ast.ECall{
		Target: js_ast.Expr{Loc: logger.Loc{Start: 10}, Data: &js_ast.EIdentifier{Name: "dynamic"}},
	}}
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("A", call),
	)
	before := printModule(module)

	log := logger.NewDeferLog()
	Transform(log, &source, module, Options{Mode: ModeWebpack})
	msgs := log.Done()

	require.Len(t, msgs, 1)
	assert.Equal(t, logger.Error, msgs[0].Kind)
	assert.Equal(t, "next/dynamic requires at least one argument", msgs[0].Text)
	require.NotNil(t, msgs[0].Location)
	assert.Equal(t, "src/page.js", msgs[0].Location.File)
	assert.Equal(t, 1, msgs[0].Location.Line)
	assert.Equal(t, 10, msgs[0].Location.Column)
	assert.Equal(t, len("dynamic"), msgs[0].Location.Length)

	assert.Equal(t, before, printModule(module))
}

func TestTooManyArgumentsIsAnError(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("A", callExpr(ident("dynamic"), loader("./a"), objectLit(), number(3))),
	)
	before := printModule(module)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack})

	require.Len(t, msgs, 1)
	assert.Equal(t, "next/dynamic only accepts 2 arguments", msgs[0].Text)
	assert.Equal(t, before, js)
}

func TestNonObjectOptionsIsAnError(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("A", callExpr(ident("dynamic"), loader("./a"), ident("options"))),
	)
	before := printModule(module)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack})

	require.Len(t, msgs, 1)
	assert.Equal(t, "next/dynamic options must be an object literal.\n"+
		"Read more: https://nextjs.org/docs/messages/invalid-dynamic-options-type", msgs[0].Text)
	assert.Equal(t, before, js)
}

func TestErrorDoesNotStopSiblingRewrites(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("Bad", callExpr(ident("dynamic"))),
		constDecl("Good", callExpr(ident("dynamic"), loader("./good"))),
	)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack, IsDevelopment: true})

	require.Len(t, msgs, 1)
	assert.Contains(t, js, `dynamic();`)
	assert.Contains(t, js, `"/project/src/page.js -> " + "./good"`)
}

func TestNonLiteralLoaderIsSilentlySkipped(t *testing.T) {
	// A loader without a directly-literal import() gets no metadata and no
	// diagnostic
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("A", callExpr(ident("dynamic"),
			arrowReturning(js_ast.Expr{Data: &js_ast.EImport{Expr: ident("path")}}))),
	)
	before := printModule(module)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack, IsDevelopment: true})

	assert.Empty(t, msgs)
	assert.Equal(t, before, js)
}

func TestLoaderWithoutImportIsSilentlySkipped(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("A", callExpr(ident("dynamic"), arrowReturning(ident("component")))),
	)
	before := printModule(module)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack, IsDevelopment: true})

	assert.Empty(t, msgs)
	assert.Equal(t, before, js)
}

func TestTemplateLiteralSpecifier(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("A", callExpr(ident("dynamic"),
			arrowReturning(js_ast.Expr{Data: &js_ast.EImport{
				Expr: js_ast.Expr{Data: &js_ast.ETemplate{HeadCooked: "./tpl", HeadRaw: "./tpl"}},
			}}))),
	)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack, IsDevelopment: true})

	assert.Empty(t, msgs)
	assert.Contains(t, js, `"/project/src/page.js -> " + "./tpl"`)
}

func TestTemplateWithSubstitutionsIsSkipped(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("A", callExpr(ident("dynamic"),
			arrowReturning(js_ast.Expr{Data: &js_ast.EImport{
				Expr: js_ast.Expr{Data: &js_ast.ETemplate{
					HeadRaw: "./",
					Parts:   []js_ast.TemplatePart{{Value: ident("name")}},
				}},
			}}))),
	)
	before := printModule(module)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack, IsDevelopment: true})

	assert.Empty(t, msgs)
	assert.Equal(t, before, js)
}

func TestSSRFalseDetectionIgnoresOtherShapes(t *testing.T) {
	// A truthy "ssr" value and a computed key both leave the loader alone
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("A", callExpr(ident("dynamic"),
			loader("./a"),
			objectLit(prop("ssr", js_ast.Expr{Data: &js_ast.EBoolean{Value: true}})),
		)),
		constDecl("B", callExpr(ident("dynamic"),
			loader("./b"),
			objectLit(js_ast.Property{
				Key:        str("ssr"),
				ValueOrNil: js_ast.Expr{Data: &js_ast.EBoolean{Value: false}},
				IsComputed: true,
			}),
		)),
	)

	js, _ := runPass(t, module, Options{
		Mode:             ModeWebpack,
		IsServerCompiler: true,
		PreferESM:        true,
	})

	assert.Contains(t, js, `dynamic(() => import("./a"),`)
	assert.Contains(t, js, `dynamic(() => import("./b"),`)
}

func TestNestedCallsAreRewritten(t *testing.T) {
	// A dynamic() call inside another expression is still found
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		js_ast.Stmt{Data: &js_ast.SExpr{Value: callExpr(ident("register"),
			callExpr(ident("dynamic"), loader("./inner")))}},
	)

	js, msgs := runPass(t, module, Options{Mode: ModeWebpack, IsDevelopment: true})

	assert.Empty(t, msgs)
	assert.Contains(t, js, `register(dynamic(() => import("./inner"), { loadableGenerated:`)
}

func TestSecondPassAfterDecouplingIsANoOp(t *testing.T) {
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("Hello", callExpr(ident("dynamic"),
			loader("./client-mod"),
			objectLit(prop("ssr", js_ast.Expr{Data: &js_ast.EBoolean{Value: false}})),
		)),
	)
	options := Options{
		Mode:             ModeWebpack,
		IsServerCompiler: true,
		PreferESM:        true,
	}

	first, msgs := runPass(t, module, options)
	assert.Empty(t, msgs)

	// The rewritten loader no longer contains a literal import(), so the
	// extractor finds nothing and the call is left alone
	second, msgs := runPass(t, module, options)
	assert.Empty(t, msgs)
	assert.Equal(t, first, second)
}

func TestSecondPassIsNotIdempotentInGeneral(t *testing.T) {
	// The turbopack loader rewrite still contains a literal import(), so a
	// second run matches it again and stacks more metadata. Running the pass
	// twice over one module is a caller bug.
	module := moduleOf(
		helperImport("dynamic", "next/dynamic"),
		constDecl("A", callExpr(ident("dynamic"), loader("./y"))),
	)
	options := Options{Mode: ModeTurbopack, TransitionName: "next-dynamic"}

	first, _ := runPass(t, module, options)
	second, _ := runPass(t, module, options)
	assert.NotEqual(t, first, second)
}

func TestRelFilename(t *testing.T) {
	filePath := logger.Path{Text: "/project/src/page.js", Namespace: "file"}

	assert.Equal(t, "src/page.js", relFilename("/project", filePath))
	assert.Equal(t, "/project/src/page.js", relFilename("", filePath))
	assert.Equal(t, "stdin", relFilename("/project", logger.Path{Text: "stdin", Namespace: "virtual"}))
}
