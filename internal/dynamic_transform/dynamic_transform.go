package dynamic_transform

// This pass rewrites calls to a lazy-load helper so that each call site
// carries generated metadata describing how the lazily-loaded module gets
// registered with the bundler that consumes the output.
//
// The helper takes a loader (a zero-argument function that performs a dynamic
// "import()") and an optional options object:
//
//	import dynamic from "next/dynamic"
//	const Hello = dynamic(() => import("../components/hello"), { ssr: false })
//
// In webpack mode each call site generates a "loadableGenerated" key that
// matches an entry in the loadable manifest built by a separate build step.
// In turbopack mode each call site instead imports the lazily-loaded module's
// id through a named transition, which takes care of adding the manifest
// entry itself.

import (
	"fmt"
	"path/filepath"

	"github.com/bundlekit/lazydynamic/pkg/js_ast"
	"github.com/bundlekit/lazydynamic/pkg/logger"
)

type Mode uint8

const (
	// In webpack mode, each call generates a key composed from the current
	// module's path relative to the pages (or app) directory and the imported
	// specifier, of the form "{currentModulePath} -> {importedSpecifier}".
	// The key corresponds to an entry in the loadable manifest generated by
	// the loadable webpack plugin.
	ModeWebpack Mode = iota

	// In turbopack mode, each call imports the lazily-loaded module's id
	// through the configured transition. The transition registers the module
	// with the manifest and resolves the import to an asset exporting the
	// entry's key.
	ModeTurbopack
)

// The module whose default export is the lazy-load helper, unless overridden
// by Options.HelperModule.
const DefaultHelperModule = "next/dynamic"

// Turbopack rewrites this well-known named import into the imported module's
// id.
const moduleIDExport = "__turbopack_module_id__"

const transitionAttribute = "turbopack-transition"
const chunkingTypeAttribute = "turbopack-chunking-type"

type Options struct {
	Mode Mode

	// The transition companion imports are routed through. Turbopack mode
	// only.
	TransitionName string

	IsDevelopment      bool
	IsServerCompiler   bool
	IsReactServerLayer bool
	PreferESM          bool

	// The pages or app directory. Its parent anchors the relative module
	// paths baked into webpack manifest keys. May be empty.
	BaseDir string

	// Overrides DefaultHelperModule when non-empty
	HelperModule string
}

// Transform rewrites all eligible lazy-load calls in the module, in place.
// Source misuse (wrong arity, non-object options) is reported through "log"
// and leaves the offending call unchanged; the rest of the module is still
// processed.
func Transform(log logger.Log, source *logger.Source, module *js_ast.Module, options Options) {
	if options.HelperModule == "" {
		options.HelperModule = DefaultHelperModule
	}

	p := &patcher{
		options: options,
		log:     log,
		source:  source,

		dynamicBindings: make(map[string]bool),
	}

	p.scanHelperBindings(module)
	for i := range module.Stmts {
		p.visitStmt(&module.Stmts[i])
	}
	p.injectPendingImports(module)
}

type extractedSpecifier struct {
	text string
	loc  logger.Loc
}

type pendingImport struct {
	// The synthetic local name the module id is imported under
	name string

	// The specifier of the lazily-loaded module
	specifier string
}

type patcher struct {
	options Options
	log     logger.Log
	source  *logger.Source

	// Local names bound to the helper module's default export
	dynamicBindings map[string]bool

	// Set while re-visiting an eligible call's first argument to extract the
	// dynamically imported specifier
	insideLoaderArg bool

	// The specifier captured during the extraction visit, if any
	importedSpecifier *extractedSpecifier

	// Companion imports queued up by turbopack mode, flushed once at the end
	// of the module
	pendingImports []pendingImport
	syntheticCount int
}

// Records every local name bound as a default import of the helper module.
// Named and namespace specifiers are ignored. An absent helper import leaves
// the set empty and the pass becomes a no-op.
func (p *patcher) scanHelperBindings(module *js_ast.Module) {
	for i := range module.Stmts {
		imp, ok := module.Stmts[i].Data.(*js_ast.SImport)
		if !ok || imp.PathText != p.options.HelperModule {
			continue
		}
		if imp.DefaultName != nil {
			p.dynamicBindings[imp.DefaultName.Name] = true
		}
	}
}

func (p *patcher) visitStmt(stmt *js_ast.Stmt) {
	js_ast.VisitStmtChildren(stmt, p.visitExpr, p.visitStmt)
}

func (p *patcher) visitExpr(expr *js_ast.Expr) {
	if p.insideLoaderArg {
		// Extraction mode: look for a literal specifier inside the host
		// dynamic-import primitive. A later match overwrites an earlier one.
		if imp, ok := expr.Data.(*js_ast.EImport); ok {
			p.captureSpecifier(imp)
		}
		js_ast.VisitExprChildren(expr, p.visitExpr, p.visitStmt)
		return
	}

	// Nested calls are rewritten before their parents
	js_ast.VisitExprChildren(expr, p.visitExpr, p.visitStmt)

	if call, ok := expr.Data.(*js_ast.ECall); ok {
		p.rewriteCall(call)
	}
}

// Only plain string literals and single-piece template literals yield a
// specifier. Everything else (concatenations, identifiers, computed strings)
// is deliberately left alone: the pass only handles the common
// directly-literal import pattern, and downstream consumers treat missing
// metadata as the "not statically analyzable" signal.
func (p *patcher) captureSpecifier(imp *js_ast.EImport) {
	switch arg := imp.Expr.Data.(type) {
	case *js_ast.EString:
		p.importedSpecifier = &extractedSpecifier{text: arg.Value, loc: imp.Expr.Loc}

	case *js_ast.ETemplate:
		if arg.TagOrNil.Data == nil && len(arg.Parts) == 0 {
			p.importedSpecifier = &extractedSpecifier{text: arg.HeadRaw, loc: arg.HeadLoc}
		}
	}
}

func (p *patcher) rewriteCall(call *js_ast.ECall) {
	callee, ok := call.Target.Data.(*js_ast.EIdentifier)
	if !ok || !p.dynamicBindings[callee.Name] {
		return
	}

	calleeRange := logger.Range{Loc: call.Target.Loc, Len: int32(len(callee.Name))}

	if len(call.Args) == 0 {
		p.log.AddRangeError(p.source, calleeRange,
			fmt.Sprintf("%s requires at least one argument", p.options.HelperModule))
		return
	}
	if len(call.Args) > 2 {
		p.log.AddRangeError(p.source, calleeRange,
			fmt.Sprintf("%s only accepts 2 arguments", p.options.HelperModule))
		return
	}
	if len(call.Args) == 2 {
		if _, ok := call.Args[1].Data.(*js_ast.EObject); !ok {
			p.log.AddRangeError(p.source, calleeRange, fmt.Sprintf(
				"%s options must be an object literal.\n"+
					"Read more: https://nextjs.org/docs/messages/invalid-dynamic-options-type",
				p.options.HelperModule))
			return
		}
	}

	// Re-visit the loader argument in extraction mode
	p.insideLoaderArg = true
	p.importedSpecifier = nil
	p.visitExpr(&call.Args[0])
	p.insideLoaderArg = false

	specifier := p.importedSpecifier
	p.importedSpecifier = nil
	if specifier == nil {
		// The loader doesn't contain a literal "import()", so there is no
		// metadata to generate
		return
	}

	var generated js_ast.Expr
	switch p.options.Mode {
	case ModeWebpack:
		generated = p.webpackGenerated(specifier)
	case ModeTurbopack:
		generated = p.turbopackGenerated(specifier)
	}

	props := []js_ast.Property{{
		Key:        js_ast.Expr{Data: &js_ast.EString{Value: "loadableGenerated"}},
		ValueOrNil: generated,
	}}

	hasSSRFalse := false
	if len(call.Args) == 2 {
		options := call.Args[1].Data.(*js_ast.EObject)
		for _, prop := range options.Properties {
			if prop.Kind != js_ast.PropertyNormal || prop.IsComputed || prop.ValueOrNil.Data == nil {
				continue
			}
			if key, ok := prop.Key.Data.(*js_ast.EString); ok && key.Value == "ssr" {
				if boolean, ok := prop.ValueOrNil.Data.(*js_ast.EBoolean); ok && !boolean.Value {
					hasSSRFalse = true
				}
			}
		}
		props = append(props, options.Properties...)
	}

	switch p.options.Mode {
	case ModeWebpack:
		// Only webpack needs the loader decoupled with "require.resolveWeak";
		// turbopack's transition handles this itself.
		//
		// When not preferring ESM (the pages router) the loader never enters
		// the non-ssr module, and "require.resolveWeak" doesn't work with ESM
		// assets anyway.
		if hasSSRFalse && p.options.IsServerCompiler && !p.options.IsReactServerLayer && p.options.PreferESM {
			call.Args[0] = sideEffectFreeLoader(specifier.text)
		}

	case ModeTurbopack:
		call.Args[0] = transitionLoader(specifier.text, p.options.TransitionName)
	}

	newOptions := js_ast.Expr{Data: &js_ast.EObject{Properties: props, IsSingleLine: true}}
	if len(call.Args) == 2 {
		newOptions.Loc = call.Args[1].Loc
		call.Args[1] = newOptions
	} else {
		call.Args = append(call.Args, newOptions)
	}
}

// loadableGenerated: { modules: [<moduleID>] }
func moduleIDOptions(moduleID js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EObject{
		IsSingleLine: true,
		Properties: []js_ast.Property{{
			Key: js_ast.Expr{Data: &js_ast.EString{Value: "modules"}},
			ValueOrNil: js_ast.Expr{Data: &js_ast.EArray{
				Items:        []js_ast.Expr{moduleID},
				IsSingleLine: true,
			}},
		}},
	}}
}

// loadableGenerated: { webpack: () => [<moduleID>] }
func webpackOptions(moduleID js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EObject{
		IsSingleLine: true,
		Properties: []js_ast.Property{{
			Key: js_ast.Expr{Data: &js_ast.EString{Value: "webpack"}},
			ValueOrNil: js_ast.Expr{Data: &js_ast.EArrow{
				PreferExpr: true,
				Body: js_ast.FnBody{Stmts: []js_ast.Stmt{{Data: &js_ast.SReturn{
					ValueOrNil: js_ast.Expr{Data: &js_ast.EArray{
						Items:        []js_ast.Expr{moduleID},
						IsSingleLine: true,
					}},
				}}}},
			}},
		}},
	}}
}

func (p *patcher) webpackGenerated(specifier *extractedSpecifier) js_ast.Expr {
	// Development build or server compilation:
	//   loadableGenerated: { modules: ["a/b.js -> " + "../x"] }
	//
	// Production client build:
	//   loadableGenerated: { webpack: () => [require.resolveWeak("../x")] }
	if p.options.IsDevelopment || p.options.IsServerCompiler {
		var projectDir string
		if p.options.BaseDir != "" {
			projectDir = filepath.Dir(p.options.BaseDir)
		}
		left := js_ast.Expr{Data: &js_ast.EString{
			Value: fmt.Sprintf("%s -> ", relFilename(projectDir, p.source.KeyPath)),
		}}
		right := js_ast.Expr{Data: &js_ast.EString{Value: specifier.text}}
		return moduleIDOptions(js_ast.JoinWithAdd(left, right))
	}

	return webpackOptions(js_ast.Expr{Data: &js_ast.ECall{
		Target: requireResolveWeak(),
		Args:   []js_ast.Expr{{Data: &js_ast.EString{Value: specifier.text}}},
	}})
}

func (p *patcher) turbopackGenerated(specifier *extractedSpecifier) js_ast.Expr {
	name := p.newSyntheticName()
	p.pendingImports = append(p.pendingImports, pendingImport{
		name:      name,
		specifier: specifier.text,
	})
	return moduleIDOptions(js_ast.Expr{
		Loc:  specifier.loc,
		Data: &js_ast.EIdentifier{Name: name, Synthetic: true},
	})
}

// Each call site gets its own fresh name, unique within the module
func (p *patcher) newSyntheticName() string {
	p.syntheticCount++
	if p.syntheticCount == 1 {
		return "id"
	}
	return fmt.Sprintf("id%d", p.syntheticCount-1)
}

func requireResolveWeak() js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EDot{
		Target: js_ast.Expr{Data: &js_ast.EIdentifier{Name: "require"}},
		Name:   "resolveWeak",
	}}
}

// async () => {
//   typeof require.resolveWeak !== "undefined" && require.resolveWeak("<specifier>");
// }
//
// The guard keeps the loader from throwing in environments where the
// weak-resolution primitive doesn't exist.
func sideEffectFreeLoader(specifier string) js_ast.Expr {
	resolveWeakCall := js_ast.Expr{Data: &js_ast.ECall{
		Target: requireResolveWeak(),
		Args:   []js_ast.Expr{{Data: &js_ast.EString{Value: specifier}}},
	}}

	guard := js_ast.Expr{Data: &js_ast.EBinary{
		Op: js_ast.BinOpStrictNe,
		Left: js_ast.Expr{Data: &js_ast.EUnary{
			Op:    js_ast.UnOpTypeof,
			Value: requireResolveWeak(),
		}},
		Right: js_ast.Expr{Data: &js_ast.EString{Value: "undefined"}},
	}}

	return js_ast.Expr{Data: &js_ast.EArrow{
		IsAsync: true,
		Body: js_ast.FnBody{Stmts: []js_ast.Stmt{{Data: &js_ast.SExpr{
			Value: js_ast.Expr{Data: &js_ast.EBinary{
				Op:    js_ast.BinOpLogicalAnd,
				Left:  guard,
				Right: resolveWeakCall,
			}},
		}}}},
	}}
}

// () => import("<specifier>", { with: { "turbopack-transition": "<name>" } })
func transitionLoader(specifier string, transitionName string) js_ast.Expr {
	importCall := js_ast.Expr{Data: &js_ast.EImport{
		Expr: js_ast.Expr{Data: &js_ast.EString{Value: specifier}},
		OptionsOrNil: js_ast.Expr{Data: &js_ast.EObject{
			IsSingleLine: true,
			Properties: []js_ast.Property{{
				Key: js_ast.Expr{Data: &js_ast.EString{Value: "with"}},
				ValueOrNil: js_ast.Expr{Data: &js_ast.EObject{
					IsSingleLine: true,
					Properties: []js_ast.Property{{
						Key:        js_ast.Expr{Data: &js_ast.EString{Value: transitionAttribute}},
						ValueOrNil: js_ast.Expr{Data: &js_ast.EString{Value: transitionName}},
					}},
				}},
			}},
		}},
	}}

	return js_ast.Expr{Data: &js_ast.EArrow{
		PreferExpr: true,
		Body: js_ast.FnBody{Stmts: []js_ast.Stmt{{Data: &js_ast.SReturn{
			ValueOrNil: importCall,
		}}}},
	}}
}

// Drains the queued companion imports and prepends one import declaration per
// request, in encounter order:
//
//	import { __turbopack_module_id__ as id } from "<specifier>"
//	  with { "turbopack-transition": "<name>", "turbopack-chunking-type": "none" };
//
// Imports are intentionally not deduplicated by specifier: each call site is
// its own manifest entry. Webpack mode never queues any.
func (p *patcher) injectPendingImports(module *js_ast.Module) {
	if len(p.pendingImports) == 0 {
		return
	}

	stmts := make([]js_ast.Stmt, 0, len(p.pendingImports)+len(module.Stmts))
	for _, imp := range p.pendingImports {
		items := []js_ast.ClauseItem{{
			Alias: moduleIDExport,
			Name:  js_ast.LocName{Name: imp.name},
		}}
		stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SImport{
			Items:    &items,
			PathText: imp.specifier,
			Attributes: []js_ast.ImportAttribute{
				{Key: transitionAttribute, Value: p.options.TransitionName},
				{Key: chunkingTypeAttribute, Value: "none"},
			},
			IsSingleLine: true,
		}})
	}
	p.pendingImports = nil

	module.Stmts = append(stmts, module.Stmts...)
}

// The module path baked into webpack manifest keys: the file relative to the
// base directory when both are concrete paths, otherwise the file's own text.
func relFilename(base string, file logger.Path) string {
	if base == "" {
		return file.Text
	}
	if !file.IsFile() {
		return file.Text
	}
	rel, err := filepath.Rel(base, file.Text)
	if err != nil {
		return file.Text
	}
	return filepath.ToSlash(rel)
}
