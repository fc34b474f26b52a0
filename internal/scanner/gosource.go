package scanner

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// goDecls parses Go source with tree-sitter and returns every top-level
// function, method, and struct/interface type declaration with exact line
// ranges.
func goDecls(ctx context.Context, content []byte) ([]decl, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var decls []decl
	root := tree.RootNode()

	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "function_declaration", "method_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			decls = append(decls, decl{
				name: nameNode.Content(content),
				line: int(n.StartPoint().Row) + 1,
				end:  int(n.EndPoint().Row) + 1,
			})

		case "type_declaration":
			for j := 0; j < int(n.NamedChildCount()); j++ {
				spec := n.NamedChild(j)
				if spec.Type() != "type_spec" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				typeNode := spec.ChildByFieldName("type")
				if nameNode == nil || typeNode == nil {
					continue
				}
				// struct and interface declarations only
				if typeNode.Type() != "struct_type" && typeNode.Type() != "interface_type" {
					continue
				}
				decls = append(decls, decl{
					name: nameNode.Content(content),
					line: int(n.StartPoint().Row) + 1,
					end:  int(n.EndPoint().Row) + 1,
				})
			}
		}
	}
	return decls, nil
}
