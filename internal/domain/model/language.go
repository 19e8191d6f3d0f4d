package model

import "sort"

type Language struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Languages is the fixed judge language table, keyed by judge language id.
var Languages = map[int]Language{
	109: {ID: 109, Name: "Python 3.11.2"},
	100: {ID: 100, Name: "Python 3.12.5"},
	71:  {ID: 71, Name: "Python 3.8.1"},
	76:  {ID: 76, Name: "C++ (Clang 7.0.1)"},
	103: {ID: 103, Name: "C (GCC 14.1.0)"},
	62:  {ID: 62, Name: "Java (OpenJDK 13.0.1)"},
	93:  {ID: 93, Name: "JavaScript (Node.js 18.15.0)"},
}

func LookupLanguage(id int) (Language, bool) {
	l, ok := Languages[id]
	return l, ok
}

func ListLanguages() []Language {
	out := make([]Language, 0, len(Languages))
	for _, l := range Languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
