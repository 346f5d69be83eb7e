package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/version"
	"github.com/matzehuels/monocrate/pkg/workspace"
)

// Options controls how dependency requirements are rewritten.
type Options struct {
	// KeepWildcards leaves "*" requirements untouched, so crates held back
	// from release by a wildcard stay unpublishable after a bump.
	KeepWildcards bool
}

// dependencySections are the tables searched for requirements, relative to
// the manifest root or to a [target.<cfg>] table.
var dependencySections = []string{
	workspace.KindNormal.Section(),
	workspace.KindDev.Section(),
	workspace.KindBuild.Section(),
}

// Patch rewrites a manifest's content. When own is non-nil the [package]
// version is set to it; every dependency on a crate in deps gets that
// crate's new version as its requirement. It reports whether anything
// changed.
//
// A table dependency without a version gets one inserted, except in
// dev-dependencies: cargo strips path-only dev-dependencies on publish.
func Patch(data []byte, own *semver.Version, deps map[string]*semver.Version, opts Options) ([]byte, bool, error) {
	var tree map[string]any
	if _, err := toml.Decode(string(data), &tree); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeManifestParse, err, "parse manifest")
	}

	p := &patcher{doc: NewDocument(data), deps: deps, opts: opts}
	if own != nil {
		if err := p.packageVersion(tree, own.String()); err != nil {
			return nil, false, err
		}
	}
	for _, section := range sectionsOf(tree) {
		if err := p.section(tree, section); err != nil {
			return nil, false, err
		}
	}

	out := p.doc.Bytes()
	if bytes.Equal(out, data) {
		return data, false, nil
	}
	var check map[string]any
	if _, err := toml.Decode(string(out), &check); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeManifestParse, err, "patched manifest no longer parses")
	}
	return out, true, nil
}

// ApplyFile patches the manifest at path in place. The file is only
// written when its content changes.
func ApplyFile(path string, own *semver.Version, deps map[string]*semver.Version, opts Options) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeManifestParse, err, "read %s", path)
	}
	out, changed, err := Patch(data, own, deps, opts)
	if err != nil {
		return false, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	if !changed {
		return false, nil
	}
	if err := writeFile(path, out); err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return true, nil
}

// Apply patches pkg's manifest with plan: its own version when pkg is in
// plan, and its requirements on every planned crate.
func Apply(pkg *workspace.Package, plan map[string]*semver.Version, opts Options) (bool, error) {
	return ApplyFile(pkg.ManifestPath, plan[pkg.Name], plan, opts)
}

// ApplyAll patches every member manifest plus the workspace root manifest
// (when root is non-empty and not itself a member) and returns the paths
// that changed, in order.
func ApplyAll(pkgs []workspace.Package, root string, plan map[string]*semver.Version, opts Options) ([]string, error) {
	var changed []string
	seen := make(map[string]bool, len(pkgs))
	for i := range pkgs {
		seen[filepath.Clean(pkgs[i].ManifestPath)] = true
		ok, err := Apply(&pkgs[i], plan, opts)
		if err != nil {
			return changed, err
		}
		if ok {
			changed = append(changed, pkgs[i].ManifestPath)
		}
	}
	if root != "" && !seen[filepath.Clean(root)] {
		if _, err := os.Stat(root); err == nil {
			ok, err := ApplyFile(root, nil, plan, opts)
			if err != nil {
				return changed, err
			}
			if ok {
				changed = append(changed, root)
			}
		}
	}
	return changed, nil
}

type patcher struct {
	doc  *Document
	deps map[string]*semver.Version
	opts Options
}

func (p *patcher) packageVersion(tree map[string]any, v string) error {
	pkg, ok := tree["package"].(map[string]any)
	if !ok {
		return errors.New(errors.ErrCodeManifestStructure, "manifest has no [package] table")
	}
	switch pkg["version"].(type) {
	case string:
	case map[string]any:
		return errors.New(errors.ErrCodeManifestStructure, "package version is inherited from the workspace; bump [workspace.package] instead")
	default:
		return errors.New(errors.ErrCodeManifestStructure, "[package] version must be a string")
	}
	return p.setString([]string{"package"}, []string{"version"}, v, false)
}

// sectionsOf lists the dependency tables present in tree as key paths.
func sectionsOf(tree map[string]any) [][]string {
	var out [][]string
	for _, s := range dependencySections {
		if _, ok := tree[s]; ok {
			out = append(out, []string{s})
		}
	}
	if ws, ok := tree["workspace"].(map[string]any); ok {
		if _, ok := ws["dependencies"]; ok {
			out = append(out, []string{"workspace", "dependencies"})
		}
	}
	if targets, ok := tree["target"].(map[string]any); ok {
		cfgs := make([]string, 0, len(targets))
		for cfg := range targets {
			cfgs = append(cfgs, cfg)
		}
		slices.Sort(cfgs)
		for _, cfg := range cfgs {
			t, ok := targets[cfg].(map[string]any)
			if !ok {
				continue
			}
			for _, s := range dependencySections {
				if _, ok := t[s]; ok {
					out = append(out, []string{"target", cfg, s})
				}
			}
		}
	}
	return out
}

func lookup(tree map[string]any, path []string) (any, bool) {
	var cur any = tree
	for _, k := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func (p *patcher) section(tree map[string]any, section []string) error {
	raw, _ := lookup(tree, section)
	entries, ok := raw.(map[string]any)
	if !ok {
		return errors.New(errors.ErrCodeManifestStructure, "[%s] must be a table", strings.Join(section, "."))
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if err := p.entry(section, key, entries[key]); err != nil {
			return err
		}
	}
	return nil
}

func (p *patcher) entry(section []string, key string, value any) error {
	where := strings.Join(section, ".") + "." + key
	switch v := value.(type) {
	case string:
		next, ok := p.deps[key]
		if !ok || p.keep(v) {
			return nil
		}
		return p.setString(section, []string{key}, next.String(), true)

	case map[string]any:
		name := key
		if pkg, ok := v["package"].(string); ok {
			name = pkg
		}
		next, ok := p.deps[name]
		if !ok {
			return nil
		}
		if inherited, _ := v["workspace"].(bool); inherited {
			return nil
		}
		req, present := v["version"]
		if !present && section[len(section)-1] == workspace.KindDev.Section() {
			return nil
		}
		if present {
			s, ok := req.(string)
			if !ok {
				return errors.New(errors.ErrCodeManifestStructure, "%s: version must be a string", where)
			}
			if p.keep(s) {
				return nil
			}
		}
		return p.setTableVersion(section, key, next.String())

	default:
		if _, ok := p.deps[key]; !ok {
			return nil
		}
		return errors.New(errors.ErrCodeManifestStructure, "%s: dependency must be a string or a table, got %T", where, value)
	}
}

func (p *patcher) keep(req string) bool {
	return p.opts.KeepWildcards && version.IsWildcard(req)
}

// setString replaces the string value at table+key. With keepOp set, a
// leading requirement operator (=, ^, ~) is preserved.
func (p *patcher) setString(table, key []string, v string, keepOp bool) error {
	where := strings.Join(append(slices.Clone(table), key...), ".")
	e, ok := p.doc.find(table, key)
	if !ok {
		return errors.New(errors.ErrCodeManifestStructure, "%s: entry not found in manifest text", where)
	}
	text := p.doc.lines[e.line]
	start, end, ok := stringValue(text, e.value)
	if !ok {
		return errors.New(errors.ErrCodeManifestStructure, "%s: expected a single-line string", where)
	}
	if keepOp {
		v = requirementOp(text[start:end]) + v
	}
	p.doc.replace(e.line, start, end, v)
	return nil
}

// setTableVersion sets the version of a table-shaped dependency, in
// whichever of the inline, dotted or sub-table forms the file uses.
func (p *patcher) setTableVersion(section []string, key, v string) error {
	doc := p.doc
	where := strings.Join(section, ".") + "." + key

	if e, ok := doc.find(section, []string{key}); ok {
		text := doc.lines[e.line]
		fields, closing, ok := inlineFields(text, e.value)
		if !ok {
			return errors.New(errors.ErrCodeManifestStructure, "%s: expected a single-line inline table", where)
		}
		for _, f := range fields {
			if slices.Equal(f.key, []string{"version"}) {
				start, end, ok := stringValue(text, f.start)
				if !ok {
					return errors.New(errors.ErrCodeManifestStructure, "%s: version must be a single-line string", where)
				}
				doc.replace(e.line, start, end, requirementOp(text[start:end])+v)
				return nil
			}
		}
		if len(fields) == 0 {
			doc.replace(e.line, e.value, closing+1, fmt.Sprintf(`{ version = %q }`, v))
		} else {
			at := fields[0].keyStart
			doc.replace(e.line, at, at, fmt.Sprintf(`version = %q, `, v))
		}
		return nil
	}

	if _, ok := doc.find(section, []string{key, "version"}); ok {
		return p.setString(section, []string{key, "version"}, v, true)
	}
	if last, ok := doc.lastKeyWithPrefix(section, []string{key}); ok {
		doc.insertAfter(last.line, fmt.Sprintf(`%s.version = %q`, quoteKey(key), v))
		return nil
	}

	table := append(slices.Clone(section), key)
	if _, ok := doc.find(table, []string{"version"}); ok {
		return p.setString(table, []string{"version"}, v, true)
	}
	if h, ok := doc.header(table); ok {
		doc.insertAfter(h.line, fmt.Sprintf(`version = %q`, v))
		return nil
	}
	return errors.New(errors.ErrCodeManifestStructure, "%s: entry not found in manifest text", where)
}

func requirementOp(req string) string {
	req = strings.TrimSpace(req)
	for _, op := range []string{"=", "^", "~"} {
		if strings.HasPrefix(req, op) {
			return op
		}
	}
	return ""
}

func quoteKey(k string) string {
	for i := 0; i < len(k); i++ {
		if !isBareKeyChar(k[i]) {
			return fmt.Sprintf("%q", k)
		}
	}
	return k
}

func writeFile(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".monocrate-*.toml")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, mode); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
