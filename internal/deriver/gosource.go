package deriver

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/reqtrace/reqtrace/internal/ir"
)

// goUnitLLRs parses the file with tree-sitter, locates the declaration
// matching the unit's name and start line, and emits one LLR per
// control-flow decision in its body.
func goUnitLLRs(ctx context.Context, content []byte, u ir.SourceUnit) ([]ir.LowLevelRequirement, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	node := findUnitNode(tree.RootNode(), content, u)
	if node == nil {
		return nil, fmt.Errorf("declaration %s at line %d not found", u.UnitName, u.LineStart)
	}

	b := &builder{unit: u}
	b.addEntry()
	walkGoNode(node, content, b)
	return b.llrs, nil
}

func findUnitNode(root *sitter.Node, content []byte, u ir.SourceUnit) *sitter.Node {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "function_declaration", "method_declaration":
			name := n.ChildByFieldName("name")
			if name != nil && name.Content(content) == u.UnitName &&
				int(n.StartPoint().Row)+1 == u.LineStart {
				return n
			}
		case "type_declaration":
			if int(n.StartPoint().Row)+1 == u.LineStart {
				return n
			}
		}
	}
	return nil
}

func walkGoNode(n *sitter.Node, content []byte, b *builder) {
	line := int(n.StartPoint().Row) + 1

	switch n.Type() {
	case "if_statement":
		cond := n.ChildByFieldName("condition")
		condText := ""
		if cond != nil {
			condText = cond.Content(content)
		}
		// Split before classifying so a compound guard like
		// "err != nil || n > limit" keeps its non-error clauses.
		for _, clause := range splitCondition(condText) {
			if strings.Contains(clause, "err != nil") {
				b.add(ir.LogicErrorHandler, "Error check: if err != nil, handle error condition.", line)
			} else {
				b.add(ir.LogicBranch, fmt.Sprintf("If %s, execute conditional block.", clause), line)
			}
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil && alt.Type() == "block" {
			b.add(ir.LogicBranch, "Else branch: execute default/fallthrough block.",
				int(alt.StartPoint().Row)+1)
		}

	case "for_statement":
		header := forHeader(n, content)
		switch {
		case header == "":
			b.add(ir.LogicLoop, "Infinite loop (requires explicit break for termination).", line)
		default:
			b.add(ir.LogicLoop, fmt.Sprintf("Iterate: %s.", header), line)
		}

	case "expression_switch_statement", "type_switch_statement", "select_statement":
		value := ""
		if v := n.ChildByFieldName("value"); v != nil {
			value = v.Content(content)
		}
		b.add(ir.LogicBranch, fmt.Sprintf("Switch/match on '%s'. Evaluate each arm/case.", value), line)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			arm := n.NamedChild(i)
			armLine := int(arm.StartPoint().Row) + 1
			switch arm.Type() {
			case "expression_case", "type_case", "communication_case":
				label := firstLine(arm.Content(content))
				label = strings.TrimSuffix(strings.TrimPrefix(label, "case "), ":")
				b.add(ir.LogicBranch, fmt.Sprintf("Case '%s': execute case-specific logic.", strings.TrimSpace(label)), armLine)
			case "default_case":
				b.add(ir.LogicBranch, "Default case: execute fallback logic.", armLine)
			}
		}

	case "defer_statement":
		b.add(ir.LogicErrorHandler,
			fmt.Sprintf("Deferred cleanup: %s.", firstLine(n.Content(content))), line)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		walkGoNode(n.NamedChild(i), content, b)
	}
}

// forHeader extracts the loop clause text between "for" and the body.
func forHeader(n *sitter.Node, content []byte) string {
	text := firstLine(n.Content(content))
	text = strings.TrimPrefix(text, "for")
	if idx := strings.Index(text, "{"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
