package source

import "strings"

// Code is one entry of a platform code table.
type Code struct {
	Name  string
	Value string
}

// CodeTable translates human filter values (城市, 经验, 学历) into a
// platform's codes. Entry order matters for fuzzy matches.
type CodeTable struct {
	Entries []Code
	Default string
}

// Lookup resolves name: exact match first, then the first entry whose name
// contains name or is contained in it, then the default. Empty names resolve
// to the default.
func (t CodeTable) Lookup(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return t.Default
	}
	for _, entry := range t.Entries {
		if entry.Name == name {
			return entry.Value
		}
	}
	for _, entry := range t.Entries {
		if strings.Contains(entry.Name, name) || strings.Contains(name, entry.Name) {
			return entry.Value
		}
	}
	return t.Default
}

// Names lists the table's names in order.
func (t CodeTable) Names() []string {
	names := make([]string, 0, len(t.Entries))
	for _, entry := range t.Entries {
		names = append(names, entry.Name)
	}
	return names
}
