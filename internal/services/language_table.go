package services

import (
	"path/filepath"
	"strings"
)

// LanguageTable maps file extensions to language names for LOC attribution.
// The mapping is injectable so new ecosystems don't require code changes;
// unrecognized extensions are simply not attributed.
type LanguageTable struct {
	extToLang map[string]string
}

// NewLanguageTable builds a table from a language -> extensions mapping.
// Extensions may be given with or without the leading dot.
func NewLanguageTable(mapping map[string][]string) *LanguageTable {
	extToLang := make(map[string]string)
	for lang, exts := range mapping {
		for _, ext := range exts {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			extToLang[strings.ToLower(ext)] = lang
		}
	}
	return &LanguageTable{extToLang: extToLang}
}

// LanguageFor returns the language for a filename, or false when its
// extension is not in the table.
func (t *LanguageTable) LanguageFor(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "", false
	}
	lang, ok := t.extToLang[ext]
	return lang, ok
}

// DefaultLanguageMapping covers the common ecosystems. Deployments can
// extend or replace it through NewLanguageTable.
func DefaultLanguageMapping() map[string][]string {
	return map[string][]string{
		"Go":         {"go"},
		"Python":     {"py"},
		"Rust":       {"rs"},
		"JavaScript": {"js", "jsx", "mjs", "cjs"},
		"TypeScript": {"ts", "tsx"},
		"Java":       {"java"},
		"Kotlin":     {"kt", "kts"},
		"C":          {"c", "h"},
		"C++":        {"cpp", "cc", "cxx", "hpp", "hh"},
		"C#":         {"cs"},
		"Ruby":       {"rb"},
		"PHP":        {"php"},
		"Swift":      {"swift"},
		"Shell":      {"sh", "bash", "zsh"},
		"HTML":       {"html", "htm"},
		"CSS":        {"css", "scss", "sass", "less"},
		"Markdown":   {"md", "markdown"},
		"LaTeX":      {"tex"},
		"SQL":        {"sql"},
		"YAML":       {"yml", "yaml"},
		"Lua":        {"lua"},
		"Dart":       {"dart"},
		"Elixir":     {"ex", "exs"},
		"Haskell":    {"hs"},
		"Scala":      {"scala"},
		"R":          {"r"},
		"Vue":        {"vue"},
		"Svelte":     {"svelte"},
	}
}
