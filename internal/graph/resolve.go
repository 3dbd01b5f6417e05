package graph

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// probeSuffixes are tried, in order, after the import text. The empty suffix
// comes first so imports that already carry an extension match exactly.
var probeSuffixes = []string{"", ".ts", ".tsx", ".js", ".jsx", ".py", ".go", ".rs", ".c", ".h"}

// indexFiles are tried under a relative import that names a directory.
var indexFiles = []string{"index.ts", "index.tsx", "index.js", "index.jsx"}

// Resolver turns raw import text into file ids. It knows nothing about build
// systems: relative imports are probed against project paths, anything else
// by bare file name. Unresolved imports (external packages, the standard
// library) are dropped.
type Resolver struct {
	byPath map[string]string // project-relative path → file id
	byName map[string]string // base name → file id; last file wins on collision
}

// NewResolver indexes files by path and by base name.
func NewResolver(files []File) *Resolver {
	r := &Resolver{
		byPath: make(map[string]string, len(files)),
		byName: make(map[string]string, len(files)),
	}
	for _, f := range files {
		r.byPath[f.Path] = f.ID
		r.byName[f.Name] = f.ID
	}
	return r
}

// Resolve returns the id of the file that importSource (as written in from)
// refers to.
func (r *Resolver) Resolve(importSource string, from File) (string, bool) {
	spec := importSource
	if from.Language == LangPython {
		spec = pythonModulePath(spec)
	}
	if spec == "" {
		return "", false
	}

	if strings.HasPrefix(spec, ".") {
		base := path.Join(path.Dir(from.Path), spec)
		if id, ok := probe(r.byPath, base); ok {
			return id, true
		}
		for _, index := range indexFiles {
			if id, ok := r.byPath[path.Join(base, index)]; ok {
				return id, true
			}
		}
	}

	// Relative misses fall through to the name index as well.
	name := path.Base(strings.TrimSuffix(spec, "/"))
	if name == "." || name == ".." || name == "/" {
		return "", false
	}
	return probe(r.byName, name)
}

func probe(index map[string]string, base string) (string, bool) {
	for _, suffix := range probeSuffixes {
		if id, ok := index[base+suffix]; ok {
			return id, true
		}
	}
	return "", false
}

// pythonModulePath rewrites a dotted module reference into path form so it
// can be probed like any other import: "pkg.utils" → "pkg/utils",
// ".models" → "./models", "..core.db" → "../core/db".
func pythonModulePath(module string) string {
	dots := len(module) - len(strings.TrimLeft(module, "."))
	rest := strings.ReplaceAll(module[dots:], ".", "/")
	if dots == 0 {
		return rest
	}
	prefix := "./"
	if dots > 1 {
		prefix = strings.Repeat("../", dots-1)
	}
	if rest == "" {
		return strings.TrimSuffix(prefix, "/")
	}
	return prefix + rest
}

// ResolveAll resolves every file's imports into "imports" relationships.
// Output order follows files, then each file's import order. Self-imports
// and repeated (source, target) pairs are dropped.
func (r *Resolver) ResolveAll(files []File, imports map[string][]ImportInfo) []Relationship {
	type pair struct{ source, target string }
	seen := make(map[pair]bool)

	var rels []Relationship
	for _, f := range files {
		for _, imp := range imports[f.ID] {
			target, ok := r.Resolve(imp.Source, f)
			if !ok || target == f.ID {
				continue
			}
			key := pair{f.ID, target}
			if seen[key] {
				continue
			}
			seen[key] = true
			rels = append(rels, Relationship{
				ID:       uuid.NewString(),
				SourceID: f.ID,
				TargetID: target,
				Kind:     RelationshipImports,
			})
		}
	}
	return rels
}
