package workspace

import "github.com/cascadehq/cascade/internal/model"

// SymbolsFromAST extracts the definition sites an index entry should
// record for one file's AST: top-level functions, classes (plus their
// methods), interfaces, and type aliases.
func SymbolsFromAST(ast *model.FileAST) map[string][]model.SymbolDef {
	out := make(map[string][]model.SymbolDef)
	add := func(name, kind string, line int) {
		if name == "" {
			return
		}
		out[name] = append(out[name], model.SymbolDef{Path: ast.Path, Line: line, Kind: kind})
	}

	for _, fn := range ast.Functions {
		add(fn.Name, "function", fn.StartLine)
	}
	for _, cls := range ast.Classes {
		add(cls.Name, "class", cls.StartLine)
		for _, m := range cls.Methods {
			add(cls.Name+"."+m.Name, "method", m.StartLine)
		}
	}
	for _, iface := range ast.Interfaces {
		add(iface.Name, "interface", iface.StartLine)
	}
	for _, alias := range ast.TypeAliases {
		add(alias.Name, "type", alias.Line)
	}

	return out
}
