package js_ast

import (
	"github.com/bundlekit/lazydynamic/pkg/logger"
)

// Every module (i.e. file) is represented by a separate tree. The tree is
// produced by an external parser and consumed by rewrite passes, so nodes
// carry source locations but no symbol table: identifiers are matched by
// name. Passes mutate trees in place through the visit/replace helpers in
// this package.

type L int

// https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Operators/Operator_Precedence
const (
	LLowest L = iota
	LComma
	LSpread
	LYield
	LAssign
	LConditional
	LNullishCoalescing
	LLogicalOr
	LLogicalAnd
	LEquals
	LCompare
	LShift
	LAdd
	LMultiply
	LExponentiation
	LPrefix
	LPostfix
	LNew
	LCall
	LMember
)

type OpCode int

func (op OpCode) IsPrefix() bool {
	return op < BinOpAdd
}

func (op OpCode) IsLeftAssociative() bool {
	return op >= BinOpAdd && op < BinOpComma
}

func (op OpCode) IsRightAssociative() bool {
	return op >= BinOpAssign
}

// If you add a new token, remember to add it to "OpTable" too
const (
	// Prefix
	UnOpPos OpCode = iota
	UnOpNeg
	UnOpNot
	UnOpVoid
	UnOpTypeof
	UnOpDelete

	// Left-associative
	BinOpAdd
	BinOpSub
	BinOpMul
	BinOpDiv
	BinOpLt
	BinOpLe
	BinOpGt
	BinOpGe
	BinOpLooseEq
	BinOpLooseNe
	BinOpStrictEq
	BinOpStrictNe
	BinOpNullishCoalescing
	BinOpLogicalOr
	BinOpLogicalAnd

	// Non-associative
	BinOpComma

	// Right-associative
	BinOpAssign
)

type opTableEntry struct {
	Text      string
	Level     L
	IsKeyword bool
}

var OpTable = []opTableEntry{
	// Prefix
	{"+", LPrefix, false},
	{"-", LPrefix, false},
	{"!", LPrefix, false},
	{"void", LPrefix, true},
	{"typeof", LPrefix, true},
	{"delete", LPrefix, true},

	// Left-associative
	{"+", LAdd, false},
	{"-", LAdd, false},
	{"*", LMultiply, false},
	{"/", LMultiply, false},
	{"<", LCompare, false},
	{"<=", LCompare, false},
	{">", LCompare, false},
	{">=", LCompare, false},
	{"==", LEquals, false},
	{"!=", LEquals, false},
	{"===", LEquals, false},
	{"!==", LEquals, false},
	{"??", LNullishCoalescing, false},
	{"||", LLogicalOr, false},
	{"&&", LLogicalAnd, false},

	// Non-associative
	{",", LComma, false},

	// Right-associative
	{"=", LAssign, false},
}

// A name paired with the location it was written at
type LocName struct {
	Loc  logger.Loc
	Name string
}

type PropertyKind int

const (
	PropertyNormal PropertyKind = iota
	PropertyGet
	PropertySet
	PropertySpread
)

type Property struct {
	Key Expr

	// This is nil for shorthand properties
	ValueOrNil Expr

	Kind         PropertyKind
	IsComputed   bool
	WasShorthand bool
}

type Arg struct {
	Binding      Binding
	DefaultOrNil Expr
}

type Fn struct {
	Name *LocName
	Args []Arg
	Body FnBody

	IsAsync     bool
	IsGenerator bool
	HasRestArg  bool
}

type FnBody struct {
	Loc   logger.Loc
	Stmts []Stmt
}

type Binding struct {
	Loc  logger.Loc
	Data B
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type B interface{ isBinding() }

type BMissing struct{}

type BIdentifier struct{ Name string }

func (*BMissing) isBinding()    {}
func (*BIdentifier) isBinding() {}

type Expr struct {
	Loc  logger.Loc
	Data E
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type E interface{ isExpr() }

type EArray struct {
	Items        []Expr
	IsSingleLine bool
}

type EUnary struct {
	Op    OpCode
	Value Expr
}

type EBinary struct {
	Op    OpCode
	Left  Expr
	Right Expr
}

type EBoolean struct{ Value bool }

type ENull struct{}

type EUndefined struct{}

type EThis struct{}

type EMissing struct{}

type ENew struct {
	Target Expr
	Args   []Expr
}

type ECall struct {
	Target Expr
	Args   []Expr
}

type EDot struct {
	Target  Expr
	Name    string
	NameLoc logger.Loc
}

type EIndex struct {
	Target Expr
	Index  Expr
}

type EArrow struct {
	Args []Arg
	Body FnBody

	IsAsync bool

	// Use the expression-body shorthand if true and "Body" is a single return
	// statement
	PreferExpr bool
}

type EFunction struct{ Fn Fn }

type EIdentifier struct {
	Name string

	// True for identifiers allocated by a rewrite pass rather than written in
	// the original source. Synthetic names are unique within their module.
	Synthetic bool
}

type ENumber struct{ Value float64 }

type EObject struct {
	Properties   []Property
	IsSingleLine bool
}

type ESpread struct{ Value Expr }

type EString struct{ Value string }

type TemplatePart struct {
	Value      Expr
	TailLoc    logger.Loc
	TailCooked string
	TailRaw    string
}

type ETemplate struct {
	TagOrNil   Expr
	HeadLoc    logger.Loc
	HeadCooked string
	HeadRaw    string
	Parts      []TemplatePart
}

type EAwait struct {
	Value Expr
}

type EIf struct {
	Test Expr
	Yes  Expr
	No   Expr
}

// A call to the host's dynamic "import()" primitive. The import specifier is
// an arbitrary expression. The optional second argument carries an import
// options object ("import(path, { with: { ... } })").
type EImport struct {
	Expr         Expr
	OptionsOrNil Expr
}

func (*EArray) isExpr()      {}
func (*EUnary) isExpr()      {}
func (*EBinary) isExpr()     {}
func (*EBoolean) isExpr()    {}
func (*ENull) isExpr()       {}
func (*EUndefined) isExpr()  {}
func (*EThis) isExpr()       {}
func (*EMissing) isExpr()    {}
func (*ENew) isExpr()        {}
func (*ECall) isExpr()       {}
func (*EDot) isExpr()        {}
func (*EIndex) isExpr()      {}
func (*EArrow) isExpr()      {}
func (*EFunction) isExpr()   {}
func (*EIdentifier) isExpr() {}
func (*ENumber) isExpr()     {}
func (*EObject) isExpr()     {}
func (*ESpread) isExpr()     {}
func (*EString) isExpr()     {}
func (*ETemplate) isExpr()   {}
func (*EAwait) isExpr()      {}
func (*EIf) isExpr()         {}
func (*EImport) isExpr()     {}

type Stmt struct {
	Loc  logger.Loc
	Data S
}

// This interface is never called. Its purpose is to encode a variant type in
// Go's type system.
type S interface{ isStmt() }

type SBlock struct {
	Stmts []Stmt
}

type SEmpty struct{}

type SDirective struct {
	Value string
}

type SExpr struct {
	Value Expr
}

type SExportDefault struct {
	Value Expr
}

type SFunction struct {
	Fn       Fn
	IsExport bool
}

type SIf struct {
	Test    Expr
	Yes     Stmt
	NoOrNil *Stmt
}

type SReturn struct {
	ValueOrNil Expr
}

type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
)

type Decl struct {
	Binding    Binding
	ValueOrNil Expr
}

type SLocal struct {
	Decls    []Decl
	Kind     LocalKind
	IsExport bool
}

type ClauseItem struct {
	// The name in the module being imported from
	Alias    string
	AliasLoc logger.Loc

	// The local binding. For "import { a as b }" the alias is "a" and the
	// name is "b". For "import { a }" both are "a".
	Name LocName
}

// An import attribute pair from a "with" clause, e.g.
// "import x from 'y' with { type: 'json' }"
type ImportAttribute struct {
	Key   string
	Value string
}

// This object represents all of these types of import statements:
//
//	import 'path'
//	import {item1, item2} from 'path'
//	import * as ns from 'path'
//	import defaultItem, {item1, item2} from 'path'
//	import defaultItem, * as ns from 'path'
//
// Many parts are optional and can be combined in different ways. The only
// restriction is that you cannot have both a clause and a star namespace.
type SImport struct {
	DefaultName *LocName
	Items       *[]ClauseItem
	StarName    *LocName

	PathLoc  logger.Loc
	PathText string

	Attributes   []ImportAttribute
	IsSingleLine bool
}

func (*SBlock) isStmt()         {}
func (*SEmpty) isStmt()         {}
func (*SDirective) isStmt()     {}
func (*SExpr) isStmt()          {}
func (*SExportDefault) isStmt() {}
func (*SFunction) isStmt()      {}
func (*SIf) isStmt()            {}
func (*SReturn) isStmt()        {}
func (*SLocal) isStmt()         {}
func (*SImport) isStmt()        {}

// One file's worth of statements
type Module struct {
	Stmts []Stmt
}

func JoinWithAdd(a Expr, b Expr) Expr {
	return Expr{Loc: a.Loc, Data: &EBinary{Op: BinOpAdd, Left: a, Right: b}}
}
