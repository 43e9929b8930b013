package js_printer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bundlekit/lazydynamic/pkg/js_ast"
)

type Options struct {
	// The number of levels everything is indented by
	Indent int
}

type PrintResult struct {
	JS []byte
}

func Print(module *js_ast.Module, options Options) PrintResult {
	p := &printer{options: options}
	for i := range module.Stmts {
		p.printStmt(module.Stmts[i])
	}
	return PrintResult{JS: p.js}
}

// PrintExpr prints a single expression. This is mainly useful in tests and
// debug output.
func PrintExpr(expr js_ast.Expr) []byte {
	p := &printer{}
	p.printExpr(expr, js_ast.LLowest)
	return p.js
}

type printer struct {
	options Options
	js      []byte
}

func (p *printer) print(text string) {
	p.js = append(p.js, text...)
}

func (p *printer) printIndent() {
	for i := 0; i < p.options.Indent; i++ {
		p.print("  ")
	}
}

func (p *printer) printNewline() {
	p.print("\n")
}

func (p *printer) printSpace() {
	p.print(" ")
}

func (p *printer) printSemicolonAfterStatement() {
	p.print(";\n")
}

func canPrintIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		if c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			continue
		}
		if i > 0 && c >= '0' && c <= '9' {
			continue
		}
		return false
	}
	return true
}

func (p *printer) printQuoted(text string) {
	p.print("\"")
	for i := 0; i < len(text); {
		c, width := utf8.DecodeRuneInString(text[i:])
		if c == utf8.RuneError && width <= 1 {
			// An invalid byte is escaped instead of decaying to U+FFFD
			hex := strconv.FormatUint(uint64(text[i]), 16)
			p.print("\\x")
			p.print(strings.Repeat("0", 2-len(hex)))
			p.print(hex)
			i++
			continue
		}
		i += width
		switch c {
		case '\b':
			p.print("\\b")
		case '\f':
			p.print("\\f")
		case '\n':
			p.print("\\n")
		case '\r':
			p.print("\\r")
		case '\t':
			p.print("\\t")
		case '\\':
			p.print("\\\\")
		case '"':
			p.print("\\\"")
		default:
			if c < 0x20 {
				p.print("\\u")
				hex := strconv.FormatInt(int64(c), 16)
				p.print(strings.Repeat("0", 4-len(hex)))
				p.print(hex)
			} else {
				p.js = append(p.js, string(c)...)
			}
		}
	}
	p.print("\"")
}

func (p *printer) printFnArgs(args []js_ast.Arg) {
	p.print("(")
	for i, arg := range args {
		if i != 0 {
			p.print(",")
			p.printSpace()
		}
		p.printBinding(arg.Binding)
		if arg.DefaultOrNil.Data != nil {
			p.printSpace()
			p.print("=")
			p.printSpace()
			p.printExpr(arg.DefaultOrNil, js_ast.LComma)
		}
	}
	p.print(")")
}

func (p *printer) printBinding(binding js_ast.Binding) {
	switch b := binding.Data.(type) {
	case *js_ast.BMissing:

	case *js_ast.BIdentifier:
		p.print(b.Name)
	}
}

func (p *printer) printBlock(stmts []js_ast.Stmt) {
	p.print("{")
	p.printNewline()

	p.options.Indent++
	for i := range stmts {
		p.printStmt(stmts[i])
	}
	p.options.Indent--

	p.printIndent()
	p.print("}")
}

func (p *printer) printProperty(item js_ast.Property) {
	if item.Kind == js_ast.PropertySpread {
		p.print("...")
		p.printExpr(item.ValueOrNil, js_ast.LComma)
		return
	}

	if item.IsComputed {
		p.print("[")
		p.printExpr(item.Key, js_ast.LComma)
		p.print("]")
	} else if str, ok := item.Key.Data.(*js_ast.EString); ok && canPrintIdentifier(str.Value) {
		p.print(str.Value)
		if item.WasShorthand {
			return
		}
	} else {
		p.printExpr(item.Key, js_ast.LLowest)
	}

	p.print(":")
	p.printSpace()
	p.printExpr(item.ValueOrNil, js_ast.LComma)
}

func (p *printer) printObject(e *js_ast.EObject) {
	if len(e.Properties) == 0 {
		p.print("{}")
		return
	}

	p.print("{")
	if e.IsSingleLine {
		p.printSpace()
		for i, prop := range e.Properties {
			if i != 0 {
				p.print(",")
				p.printSpace()
			}
			p.printProperty(prop)
		}
		p.printSpace()
	} else {
		p.printNewline()
		p.options.Indent++
		for i, prop := range e.Properties {
			p.printIndent()
			p.printProperty(prop)
			if i+1 < len(e.Properties) {
				p.print(",")
			}
			p.printNewline()
		}
		p.options.Indent--
		p.printIndent()
	}
	p.print("}")
}

// An arrow body that is a lone return statement prints as an expression body
func arrowBodyExpr(e *js_ast.EArrow) (js_ast.Expr, bool) {
	if e.PreferExpr && len(e.Body.Stmts) == 1 {
		if ret, ok := e.Body.Stmts[0].Data.(*js_ast.SReturn); ok && ret.ValueOrNil.Data != nil {
			return ret.ValueOrNil, true
		}
	}
	return js_ast.Expr{}, false
}

func (p *printer) printExpr(expr js_ast.Expr, level js_ast.L) {
	switch e := expr.Data.(type) {
	case *js_ast.EMissing:

	case *js_ast.EUndefined:
		p.print("undefined")

	case *js_ast.ENull:
		p.print("null")

	case *js_ast.EThis:
		p.print("this")

	case *js_ast.EBoolean:
		if e.Value {
			p.print("true")
		} else {
			p.print("false")
		}

	case *js_ast.ENumber:
		p.print(strconv.FormatFloat(e.Value, 'g', -1, 64))

	case *js_ast.EString:
		p.printQuoted(e.Value)

	case *js_ast.EIdentifier:
		p.print(e.Name)

	case *js_ast.ESpread:
		p.print("...")
		p.printExpr(e.Value, js_ast.LComma)

	case *js_ast.EDot:
		p.printExpr(e.Target, js_ast.LPostfix)
		p.print(".")
		p.print(e.Name)

	case *js_ast.EIndex:
		p.printExpr(e.Target, js_ast.LPostfix)
		p.print("[")
		p.printExpr(e.Index, js_ast.LLowest)
		p.print("]")

	case *js_ast.ECall:
		p.printExpr(e.Target, js_ast.LPostfix)
		p.print("(")
		for i, arg := range e.Args {
			if i != 0 {
				p.print(",")
				p.printSpace()
			}
			p.printExpr(arg, js_ast.LComma)
		}
		p.print(")")

	case *js_ast.ENew:
		p.print("new ")
		p.printExpr(e.Target, js_ast.LCall)
		p.print("(")
		for i, arg := range e.Args {
			if i != 0 {
				p.print(",")
				p.printSpace()
			}
			p.printExpr(arg, js_ast.LComma)
		}
		p.print(")")

	case *js_ast.EImport:
		p.print("import(")
		p.printExpr(e.Expr, js_ast.LComma)
		if e.OptionsOrNil.Data != nil {
			p.print(",")
			p.printSpace()
			p.printExpr(e.OptionsOrNil, js_ast.LComma)
		}
		p.print(")")

	case *js_ast.EUnary:
		entry := js_ast.OpTable[e.Op]
		wrap := level >= js_ast.LPrefix
		if wrap {
			p.print("(")
		}
		p.print(entry.Text)
		if entry.IsKeyword {
			p.printSpace()
		}
		p.printExpr(e.Value, js_ast.LPrefix-1)
		if wrap {
			p.print(")")
		}

	case *js_ast.EBinary:
		entry := js_ast.OpTable[e.Op]
		wrap := level >= entry.Level
		leftLevel := entry.Level - 1
		rightLevel := entry.Level - 1
		if e.Op.IsRightAssociative() {
			leftLevel = entry.Level
		}
		if e.Op.IsLeftAssociative() {
			rightLevel = entry.Level
		}
		if wrap {
			p.print("(")
		}
		p.printExpr(e.Left, leftLevel)
		if e.Op != js_ast.BinOpComma {
			p.printSpace()
		}
		p.print(entry.Text)
		p.printSpace()
		p.printExpr(e.Right, rightLevel)
		if wrap {
			p.print(")")
		}

	case *js_ast.EIf:
		wrap := level >= js_ast.LConditional
		if wrap {
			p.print("(")
		}
		p.printExpr(e.Test, js_ast.LConditional)
		p.print(" ? ")
		p.printExpr(e.Yes, js_ast.LYield)
		p.print(" : ")
		p.printExpr(e.No, js_ast.LYield)
		if wrap {
			p.print(")")
		}

	case *js_ast.EAwait:
		wrap := level >= js_ast.LPrefix
		if wrap {
			p.print("(")
		}
		p.print("await ")
		p.printExpr(e.Value, js_ast.LPrefix-1)
		if wrap {
			p.print(")")
		}

	case *js_ast.EArray:
		p.print("[")
		for i, item := range e.Items {
			if i != 0 {
				p.print(",")
				p.printSpace()
			}
			p.printExpr(item, js_ast.LComma)
		}
		p.print("]")

	case *js_ast.EObject:
		p.printObject(e)

	case *js_ast.ETemplate:
		if e.TagOrNil.Data != nil {
			p.printExpr(e.TagOrNil, js_ast.LPostfix)
		}
		p.print("`")
		p.print(e.HeadRaw)
		for _, part := range e.Parts {
			p.print("${")
			p.printExpr(part.Value, js_ast.LLowest)
			p.print("}")
			p.print(part.TailRaw)
		}
		p.print("`")

	case *js_ast.EArrow:
		wrap := level >= js_ast.LAssign
		if wrap {
			p.print("(")
		}
		if e.IsAsync {
			p.print("async ")
		}
		p.printFnArgs(e.Args)
		p.printSpace()
		p.print("=>")
		p.printSpace()
		if body, ok := arrowBodyExpr(e); ok {
			// An expression body can't start with "{"
			if _, isObject := body.Data.(*js_ast.EObject); isObject {
				p.print("(")
				p.printExpr(body, js_ast.LComma)
				p.print(")")
			} else {
				p.printExpr(body, js_ast.LComma)
			}
		} else {
			p.printBlock(e.Body.Stmts)
		}
		if wrap {
			p.print(")")
		}

	case *js_ast.EFunction:
		wrap := level >= js_ast.LAssign
		if wrap {
			p.print("(")
		}
		if e.Fn.IsAsync {
			p.print("async ")
		}
		p.print("function")
		if e.Fn.IsGenerator {
			p.print("*")
		}
		if e.Fn.Name != nil {
			p.print(" ")
			p.print(e.Fn.Name.Name)
		}
		p.printFnArgs(e.Fn.Args)
		p.printSpace()
		p.printBlock(e.Fn.Body.Stmts)
		if wrap {
			p.print(")")
		}
	}
}

func (p *printer) printImportAttributes(attributes []js_ast.ImportAttribute) {
	if len(attributes) == 0 {
		return
	}
	p.print(" with")
	p.printSpace()
	p.print("{")
	p.printSpace()
	for i, attr := range attributes {
		if i != 0 {
			p.print(",")
			p.printSpace()
		}
		p.printQuoted(attr.Key)
		p.print(":")
		p.printSpace()
		p.printQuoted(attr.Value)
	}
	p.printSpace()
	p.print("}")
}

func (p *printer) printStmt(stmt js_ast.Stmt) {
	p.printIndent()

	switch s := stmt.Data.(type) {
	case *js_ast.SEmpty:
		p.print(";\n")

	case *js_ast.SDirective:
		p.printQuoted(s.Value)
		p.printSemicolonAfterStatement()

	case *js_ast.SImport:
		p.print("import")
		hasClause := false

		if s.DefaultName != nil {
			p.print(" ")
			p.print(s.DefaultName.Name)
			hasClause = true
		}

		if s.Items != nil {
			if hasClause {
				p.print(",")
				p.printSpace()
			} else {
				p.printSpace()
			}
			p.print("{")
			p.printSpace()
			for i, item := range *s.Items {
				if i != 0 {
					p.print(",")
					p.printSpace()
				}
				p.print(item.Alias)
				if item.Name.Name != item.Alias {
					p.print(" as ")
					p.print(item.Name.Name)
				}
			}
			p.printSpace()
			p.print("}")
			hasClause = true
		}

		if s.StarName != nil {
			if hasClause {
				p.print(",")
				p.printSpace()
			} else {
				p.printSpace()
			}
			p.print("* as ")
			p.print(s.StarName.Name)
			hasClause = true
		}

		if hasClause {
			p.print(" from")
		}
		p.printSpace()
		p.printQuoted(s.PathText)
		p.printImportAttributes(s.Attributes)
		p.printSemicolonAfterStatement()

	case *js_ast.SBlock:
		p.printBlock(s.Stmts)
		p.printNewline()

	case *js_ast.SExpr:
		// An expression statement can't start with "{" or "function"
		switch s.Value.Data.(type) {
		case *js_ast.EObject, *js_ast.EFunction:
			p.print("(")
			p.printExpr(s.Value, js_ast.LLowest)
			p.print(")")
		default:
			p.printExpr(s.Value, js_ast.LLowest)
		}
		p.printSemicolonAfterStatement()

	case *js_ast.SReturn:
		p.print("return")
		if s.ValueOrNil.Data != nil {
			p.print(" ")
			p.printExpr(s.ValueOrNil, js_ast.LLowest)
		}
		p.printSemicolonAfterStatement()

	case *js_ast.SIf:
		p.printIf(s)

	case *js_ast.SLocal:
		if s.IsExport {
			p.print("export ")
		}
		switch s.Kind {
		case js_ast.LocalVar:
			p.print("var ")
		case js_ast.LocalLet:
			p.print("let ")
		case js_ast.LocalConst:
			p.print("const ")
		}
		for i, decl := range s.Decls {
			if i != 0 {
				p.print(",")
				p.printSpace()
			}
			p.printBinding(decl.Binding)
			if decl.ValueOrNil.Data != nil {
				p.printSpace()
				p.print("=")
				p.printSpace()
				p.printExpr(decl.ValueOrNil, js_ast.LComma)
			}
		}
		p.printSemicolonAfterStatement()

	case *js_ast.SFunction:
		if s.IsExport {
			p.print("export ")
		}
		if s.Fn.IsAsync {
			p.print("async ")
		}
		p.print("function")
		if s.Fn.IsGenerator {
			p.print("*")
		}
		if s.Fn.Name != nil {
			p.print(" ")
			p.print(s.Fn.Name.Name)
		}
		p.printFnArgs(s.Fn.Args)
		p.printSpace()
		p.printBlock(s.Fn.Body.Stmts)
		p.printNewline()

	case *js_ast.SExportDefault:
		p.print("export default ")
		p.printExpr(s.Value, js_ast.LComma)
		p.printSemicolonAfterStatement()
	}
}

// A block body keeps "else" on the same line as its closing brace
func (p *printer) printIf(s *js_ast.SIf) {
	p.print("if")
	p.printSpace()
	p.print("(")
	p.printExpr(s.Test, js_ast.LLowest)
	p.print(")")

	if yes, ok := s.Yes.Data.(*js_ast.SBlock); ok {
		p.printSpace()
		p.printBlock(yes.Stmts)
		if s.NoOrNil != nil {
			p.printSpace()
		} else {
			p.printNewline()
		}
	} else {
		p.printNewline()
		p.options.Indent++
		p.printStmt(s.Yes)
		p.options.Indent--
		if s.NoOrNil != nil {
			p.printIndent()
		}
	}

	if s.NoOrNil != nil {
		p.print("else")
		switch no := s.NoOrNil.Data.(type) {
		case *js_ast.SBlock:
			p.printSpace()
			p.printBlock(no.Stmts)
			p.printNewline()
		case *js_ast.SIf:
			p.print(" ")
			p.printIf(no)
		default:
			p.printNewline()
			p.options.Indent++
			p.printStmt(*s.NoOrNil)
			p.options.Indent--
		}
	}
}
