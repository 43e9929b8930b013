// This API exposes the lazy-load rewrite pass to embedding bundlers. The
// caller parses a module with its own front end, hands the tree to
// TransformModule, and gets back the rewritten tree (mutated in place), the
// printed JavaScript, and any diagnostics.
package api

import (
	"github.com/bundlekit/lazydynamic/internal/dynamic_transform"
	"github.com/bundlekit/lazydynamic/internal/js_printer"
	"github.com/bundlekit/lazydynamic/pkg/js_ast"
	"github.com/bundlekit/lazydynamic/pkg/logger"
)

type Mode uint8

const (
	// Generate "loadableGenerated" metadata keyed by the loadable manifest
	// that a separate webpack build step produces
	ModeWebpack Mode = iota

	// Generate "loadableGenerated" metadata backed by companion imports
	// routed through a named turbopack transition
	ModeTurbopack
)

type TransformOptions struct {
	Mode Mode

	// Required in turbopack mode
	TransitionName string

	IsDevelopment      bool
	IsServerCompiler   bool
	IsReactServerLayer bool
	PreferESM          bool

	// The pages or app directory anchoring relative manifest keys
	BaseDir string

	// The module whose default export is the lazy-load helper. Defaults to
	// "next/dynamic".
	HelperModule string
}

type TransformResult struct {
	// The printed JavaScript for the rewritten module
	JS []byte

	Errors   []logger.Msg
	Warnings []logger.Msg
}

// TransformModule rewrites every eligible lazy-load call in the module. The
// tree is mutated in place. Diagnostics never abort the pass: an invalid call
// is reported and left unchanged while the rest of the module is still
// rewritten.
func TransformModule(module *js_ast.Module, source logger.Source, options TransformOptions) TransformResult {
	log := logger.NewDeferLog()

	if module == nil {
		log.AddError(nil, logger.Loc{}, "Cannot transform a nil module")
		return resultFromMsgs(nil, log.Done())
	}

	dynamic_transform.Transform(log, &source, module, dynamic_transform.Options{
		Mode:               dynamic_transform.Mode(options.Mode),
		TransitionName:     options.TransitionName,
		IsDevelopment:      options.IsDevelopment,
		IsServerCompiler:   options.IsServerCompiler,
		IsReactServerLayer: options.IsReactServerLayer,
		PreferESM:          options.PreferESM,
		BaseDir:            options.BaseDir,
		HelperModule:       options.HelperModule,
	})

	js := js_printer.Print(module, js_printer.Options{}).JS
	return resultFromMsgs(js, log.Done())
}

func resultFromMsgs(js []byte, msgs []logger.Msg) TransformResult {
	result := TransformResult{JS: js}
	for _, msg := range msgs {
		switch msg.Kind {
		case logger.Error:
			result.Errors = append(result.Errors, msg)
		case logger.Warning:
			result.Warnings = append(result.Warnings, msg)
		}
	}
	return result
}
