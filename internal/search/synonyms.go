package search

// Synonyms returns the query expansion table applied at index
// configuration. Pairs are bidirectional; shorthand groups map the
// abbreviation to its expansion and back.
func Synonyms() map[string][]string {
	pairs := [][2]string{
		{"js", "javascript"},
		{"ts", "typescript"},
		{"py", "python"},
		{"rb", "ruby"},
		{"cpp", "c++"},
		{"go", "golang"},
		{"mongo", "mongodb"},
		{"k8s", "kubernetes"},
		{"wasm", "webassembly"},
		{"ml", "machine learning"},
		{"ai", "artificial intelligence"},
		{"os", "operating system"},
		{"db", "database"},
		{"api", "application programming interface"},
		{"cli", "command line interface"},
		{"ui", "user interface"},
		{"ux", "user experience"},
		{"oop", "object oriented programming"},
		{"fp", "functional programming"},
		{"docs", "documentation"},
		{"config", "configuration"},
		{"auth", "authentication"},
		{"env", "environment"},
		{"repo", "repository"},
		{"lib", "library"},
		{"pkg", "package"},
		{"deps", "dependencies"},
		{"dev", "development"},
		{"prod", "production"},
		{"impl", "implementation"},
		{"func", "function"},
		{"var", "variable"},
		{"arg", "argument"},
		{"param", "parameter"},
		{"err", "error"},
		{"msg", "message"},
		{"async", "asynchronous"},
		{"sync", "synchronous"},
	}

	syn := make(map[string][]string, 2*len(pairs)+3)
	for _, p := range pairs {
		syn[p[0]] = append(syn[p[0]], p[1])
		syn[p[1]] = append(syn[p[1]], p[0])
	}

	// Postgres goes by three names.
	syn["pg"] = []string{"postgresql", "postgres"}
	syn["postgres"] = append(syn["postgres"], "postgresql", "pg")
	syn["postgresql"] = append(syn["postgresql"], "postgres", "pg")

	return syn
}
