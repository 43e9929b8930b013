package js_ast

// The visit/replace contract used by rewrite passes: each helper invokes the
// callbacks on the direct children of one node, by pointer, so a callback can
// replace a child by assigning through the pointer. Recursion order (pre- or
// post-order) is chosen by the caller, which calls the helper before or after
// doing its own work on the node.

func visitFnArgs(args []Arg, visitExpr func(*Expr)) {
	for i := range args {
		if args[i].DefaultOrNil.Data != nil {
			visitExpr(&args[i].DefaultOrNil)
		}
	}
}

func visitFnBody(body *FnBody, visitStmt func(*Stmt)) {
	for i := range body.Stmts {
		visitStmt(&body.Stmts[i])
	}
}

// VisitExprChildren calls "visitExpr" on every direct child expression of
// "expr" and "visitStmt" on every direct child statement (function bodies).
func VisitExprChildren(expr *Expr, visitExpr func(*Expr), visitStmt func(*Stmt)) {
	switch e := expr.Data.(type) {
	case *EArray:
		for i := range e.Items {
			visitExpr(&e.Items[i])
		}

	case *EUnary:
		visitExpr(&e.Value)

	case *EBinary:
		visitExpr(&e.Left)
		visitExpr(&e.Right)

	case *ENew:
		visitExpr(&e.Target)
		for i := range e.Args {
			visitExpr(&e.Args[i])
		}

	case *ECall:
		visitExpr(&e.Target)
		for i := range e.Args {
			visitExpr(&e.Args[i])
		}

	case *EDot:
		visitExpr(&e.Target)

	case *EIndex:
		visitExpr(&e.Target)
		visitExpr(&e.Index)

	case *EArrow:
		visitFnArgs(e.Args, visitExpr)
		visitFnBody(&e.Body, visitStmt)

	case *EFunction:
		visitFnArgs(e.Fn.Args, visitExpr)
		visitFnBody(&e.Fn.Body, visitStmt)

	case *EObject:
		for i := range e.Properties {
			prop := &e.Properties[i]
			if prop.Kind != PropertySpread {
				visitExpr(&prop.Key)
			}
			if prop.ValueOrNil.Data != nil {
				visitExpr(&prop.ValueOrNil)
			}
		}

	case *ESpread:
		visitExpr(&e.Value)

	case *ETemplate:
		if e.TagOrNil.Data != nil {
			visitExpr(&e.TagOrNil)
		}
		for i := range e.Parts {
			visitExpr(&e.Parts[i].Value)
		}

	case *EAwait:
		visitExpr(&e.Value)

	case *EIf:
		visitExpr(&e.Test)
		visitExpr(&e.Yes)
		visitExpr(&e.No)

	case *EImport:
		visitExpr(&e.Expr)
		if e.OptionsOrNil.Data != nil {
			visitExpr(&e.OptionsOrNil)
		}
	}
}

// VisitStmtChildren calls "visitExpr" on every direct child expression of
// "stmt" and "visitStmt" on every direct child statement.
func VisitStmtChildren(stmt *Stmt, visitExpr func(*Expr), visitStmt func(*Stmt)) {
	switch s := stmt.Data.(type) {
	case *SBlock:
		for i := range s.Stmts {
			visitStmt(&s.Stmts[i])
		}

	case *SExpr:
		visitExpr(&s.Value)

	case *SExportDefault:
		visitExpr(&s.Value)

	case *SFunction:
		visitFnArgs(s.Fn.Args, visitExpr)
		visitFnBody(&s.Fn.Body, visitStmt)

	case *SIf:
		visitExpr(&s.Test)
		visitStmt(&s.Yes)
		if s.NoOrNil != nil {
			visitStmt(s.NoOrNil)
		}

	case *SReturn:
		if s.ValueOrNil.Data != nil {
			visitExpr(&s.ValueOrNil)
		}

	case *SLocal:
		for i := range s.Decls {
			if s.Decls[i].ValueOrNil.Data != nil {
				visitExpr(&s.Decls[i].ValueOrNil)
			}
		}
	}
}
