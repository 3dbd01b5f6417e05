package graph

import (
	"path/filepath"
	"strings"
)

// Language is a classified file type.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangC          Language = "c"
	LangSwift      Language = "swift"
	LangJSON       Language = "json"
	LangYAML       Language = "yaml"
	LangMarkdown   Language = "markdown"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangPlist      Language = "plist"
	LangShell      Language = "shell"
)

// AllLanguages lists every language tag in declaration order.
var AllLanguages = []Language{
	LangTypeScript, LangJavaScript, LangPython, LangGo, LangRust, LangC,
	LangSwift, LangJSON, LangYAML, LangMarkdown, LangHTML, LangCSS,
	LangPlist, LangShell,
}

var extensionLanguages = map[string]Language{
	"ts":       LangTypeScript,
	"tsx":      LangTypeScript,
	"js":       LangJavaScript,
	"jsx":      LangJavaScript,
	"mjs":      LangJavaScript,
	"cjs":      LangJavaScript,
	"py":       LangPython,
	"pyw":      LangPython,
	"go":       LangGo,
	"rs":       LangRust,
	"c":        LangC,
	"h":        LangC,
	"swift":    LangSwift,
	"json":     LangJSON,
	"yaml":     LangYAML,
	"yml":      LangYAML,
	"md":       LangMarkdown,
	"markdown": LangMarkdown,
	"html":     LangHTML,
	"htm":      LangHTML,
	"css":      LangCSS,
	"scss":     LangCSS,
	"sass":     LangCSS,
	"less":     LangCSS,
	"plist":    LangPlist,
	"sh":       LangShell,
	"bash":     LangShell,
	"zsh":      LangShell,
}

// parseable languages are routed to a grammar. Swift is classified but stays
// discovery-only: no Swift grammar is wired.
var parseable = map[Language]bool{
	LangTypeScript: true,
	LangJavaScript: true,
	LangPython:     true,
	LangGo:         true,
	LangRust:       true,
	LangC:          true,
}

// LanguageFromExtension maps an extension (with or without the leading dot,
// any case) to a language. ok is false for unknown extensions.
func LanguageFromExtension(ext string) (Language, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	lang, ok := extensionLanguages[ext]
	return lang, ok
}

// LanguageForPath classifies a path by its extension.
func LanguageForPath(path string) (Language, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", false
	}
	return LanguageFromExtension(ext)
}

// RequiresParsing reports whether files of this language receive full
// symbol and import extraction.
func (l Language) RequiresParsing() bool {
	return parseable[l]
}

func (l Language) String() string { return string(l) }
