package regions

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"fictc/internal/ast"
)

func TestRegionPrinterSnapshot(t *testing.T) {
	_, result := analyzeFn(t, &ast.Function{Name: "Profile", Params: []ast.Pattern{ident("props")}, Body: []ast.Statement{
		constDecl("name", &ast.MemberExpr{
			Object:   &ast.MemberExpr{Object: ident("props"), Property: ident("user")},
			Property: ident("name"),
		}),
		&ast.IfStmt{
			Test: &ast.MemberExpr{Object: ident("props"), Property: ident("compact")},
			Consequent: &ast.BlockStmt{Body: []ast.Statement{
				&ast.ReturnStmt{Argument: ident("name")},
			}},
		},
		&ast.ReturnStmt{Argument: &ast.JSXElement{
			TagName:  "h1",
			Children: []ast.JSXChild{{Expression: ident("name")}},
		}},
	}})
	snaps.MatchSnapshot(t, Print(result))
}
