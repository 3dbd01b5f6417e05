package orchestrator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/dusk-indust/nexus/internal/graph"
)

// DiscoveredFile is one classified file found under the project root.
type DiscoveredFile struct {
	Path     string // slash-separated, relative to the root
	AbsPath  string
	Language graph.Language
}

// DiscoveryError is a fatal I/O fault during the walk.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// DiscoverOptions tunes a walk.
type DiscoverOptions struct {
	// Exclude holds glob patterns matched against root-relative slash paths.
	Exclude []string

	// SkipGlobalIgnores ignores the user-level git excludes file.
	SkipGlobalIgnores bool

	// Include filters classified files by language. Nil keeps every
	// classified file, discovery-only languages included.
	Include func(graph.Language) bool

	// Cancelled is polled before each entry; when it reports true the walk
	// stops with ErrCancelled.
	Cancelled func() bool

	// OnFile is called for each match, in walk order.
	OnFile func(DiscoveredFile)
}

// ParseableOnly is an Include filter that keeps only languages with an
// extractor.
func ParseableOnly(lang graph.Language) bool {
	return lang.RequiresParsing()
}

// ignoreFiles are read in every directory, in addition to .git/info/exclude
// at the root.
var ignoreFiles = []string{".gitignore", ".ignore"}

// ignoreRule is one pattern line of an ignore file. A negated line is
// compiled without its "!" so that a match can be told apart from no match.
type ignoreRule struct {
	negate  bool
	matcher *ignore.GitIgnore
}

// compileIgnoreRules turns ignore file content into rules in file order.
func compileIgnoreRules(content string) []ignoreRule {
	var rules []ignoreRule
	for _, line := range strings.Split(content, "\n") {
		line = strings.Trim(strings.TrimRight(line, "\r"), " ")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		negate := strings.HasPrefix(line, "!")
		if negate {
			line = line[1:]
		}
		rules = append(rules, ignoreRule{negate: negate, matcher: ignore.CompileIgnoreLines(line)})
	}
	return rules
}

// scopedMatcher applies the patterns of one ignore file to paths under dir.
type scopedMatcher struct {
	dir   string // root-relative, "" for the root
	rules []ignoreRule
}

// decide reports whether the last rule matching rel ignores it. matched is
// false when no rule of this file applies.
func (m scopedMatcher) decide(rel string, isDir bool) (ignored, matched bool) {
	if m.dir != "" {
		if !strings.HasPrefix(rel, m.dir+"/") {
			return false, false
		}
		rel = strings.TrimPrefix(rel, m.dir+"/")
	}
	for _, r := range m.rules {
		if r.matcher.MatchesPath(rel) || (isDir && r.matcher.MatchesPath(rel+"/")) {
			ignored, matched = !r.negate, true
		}
	}
	return ignored, matched
}

type compiledPattern struct {
	glob glob.Glob
	// root matches files at the top level for "**/x" patterns, which
	// gobwas/glob only matches below a separator. Nil for other patterns.
	root glob.Glob
}

type discoverer struct {
	root     string
	opts     DiscoverOptions
	matchers []scopedMatcher
	exclude  []compiledPattern
}

// Discover walks root and returns every file whose extension classifies,
// honoring ignore files the way git does: .gitignore and .ignore in any
// directory, .git/info/exclude, and the user's global excludes file. Hidden
// files are not skipped for being hidden. Directories and files that do not
// classify are skipped silently.
func Discover(root string, opts DiscoverOptions) ([]DiscoveredFile, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &DiscoveryError{Path: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &DiscoveryError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &DiscoveryError{Path: root, Err: errors.New("not a directory")}
	}

	d := &discoverer{root: abs, opts: opts}
	for _, p := range opts.Exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		cp := compiledPattern{glob: g}
		if rest, ok := strings.CutPrefix(p, "**/"); ok {
			if cp.root, err = glob.Compile(rest, '/'); err != nil {
				return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
			}
		}
		d.exclude = append(d.exclude, cp)
	}
	if !opts.SkipGlobalIgnores {
		if rules, ok := globalExcludes(); ok {
			d.matchers = append(d.matchers, scopedMatcher{rules: rules})
		}
	}
	if err := d.loadIgnoreFile("", filepath.Join(abs, ".git", "info", "exclude")); err != nil {
		return nil, err
	}

	return d.walk()
}

func (d *discoverer) walk() ([]DiscoveredFile, error) {
	var files []DiscoveredFile
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, walkErr error) error {
		if d.opts.Cancelled != nil && d.opts.Cancelled() {
			return ErrCancelled
		}
		if walkErr != nil {
			return &DiscoveryError{Path: p, Err: walkErr}
		}

		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return &DiscoveryError{Path: p, Err: err}
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if rel == "." {
				return d.loadDirIgnores("", p)
			}
			if entry.Name() == ".git" || d.ignored(rel, true) {
				return filepath.SkipDir
			}
			return d.loadDirIgnores(rel, p)
		}

		if !entry.Type().IsRegular() && !isSymlinkToFile(p, entry) {
			return nil
		}
		if d.ignored(rel, false) {
			return nil
		}
		lang, ok := graph.LanguageForPath(rel)
		if !ok {
			return nil
		}
		if d.opts.Include != nil && !d.opts.Include(lang) {
			return nil
		}

		f := DiscoveredFile{Path: rel, AbsPath: p, Language: lang}
		if d.opts.OnFile != nil {
			d.opts.OnFile(f)
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (d *discoverer) loadDirIgnores(rel, dir string) error {
	for _, name := range ignoreFiles {
		if err := d.loadIgnoreFile(rel, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// loadIgnoreFile adds the patterns of file, scoped to dir. A missing file is
// not an error.
func (d *discoverer) loadIgnoreFile(dir, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &DiscoveryError{Path: file, Err: err}
	}
	d.matchers = append(d.matchers, scopedMatcher{dir: dir, rules: compileIgnoreRules(string(data))})
	return nil
}

// ignored applies the ignore files in precedence order: global excludes,
// .git/info/exclude, then each directory from the root down with .gitignore
// before .ignore. The last matching pattern decides, so a "!pattern" in a
// deeper file re-includes what a shallower one excluded. Walk order appends
// matchers in exactly that order.
func (d *discoverer) ignored(rel string, isDir bool) bool {
	ignored := false
	for _, m := range d.matchers {
		if ig, ok := m.decide(rel, isDir); ok {
			ignored = ig
		}
	}
	return ignored || d.excluded(rel)
}

// excluded matches the configured globs. A directory also matches a
// "dir/**" pattern, and a root-level file matches "**/x" patterns.
func (d *discoverer) excluded(rel string) bool {
	for _, cp := range d.exclude {
		if cp.glob.Match(rel) || cp.glob.Match(rel+"/**") {
			return true
		}
		if cp.root != nil && !strings.Contains(rel, "/") && cp.root.Match(rel) {
			return true
		}
	}
	return false
}

// globalExcludes loads git's default user-level excludes file.
func globalExcludes() ([]ignoreRule, bool) {
	var candidates []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "git", "ignore"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "git", "ignore"))
	}
	for _, c := range candidates {
		if data, err := os.ReadFile(c); err == nil {
			return compileIgnoreRules(string(data)), true
		}
	}
	return nil, false
}

func isSymlinkToFile(p string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
