// Package catalog resolves intents against a directory of YAML component
// manifests, standing in for the platform's package manager.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"intercept/internal/editor"
	"intercept/internal/intent"
	"intercept/internal/logging"
)

// maxParallelReads bounds concurrent manifest reads.
const maxParallelReads = 8

// Catalog is an immutable set of manifests. It implements editor.Resolver.
type Catalog struct {
	manifests []*Manifest
}

var _ editor.Resolver = (*Catalog)(nil)

// New builds a catalog from already parsed manifests. Duplicate packages
// are rejected.
func New(manifests ...*Manifest) (*Catalog, error) {
	seen := make(map[string]string, len(manifests))
	for _, m := range manifests {
		if prev, ok := seen[m.Package]; ok {
			return nil, fmt.Errorf("package %s declared twice (%s, %s)", m.Package, prev, m.source)
		}
		seen[m.Package] = m.source
	}
	sorted := append([]*Manifest(nil), manifests...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Package < sorted[j].Package })
	return &Catalog{manifests: sorted}, nil
}

// Load reads every *.yaml and *.yml manifest in dir concurrently. A missing
// directory yields an empty catalog.
func Load(ctx context.Context, dir string) (*Catalog, error) {
	timer := logging.StartTimer(logging.CategoryCatalog, "catalog load")
	defer timer.Stop()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.CatalogWarn("catalog directory %s does not exist", dir)
			return New()
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	manifests := make([]*Manifest, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelReads)
	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			m, err := ReadManifest(path)
			if err != nil {
				return err
			}
			manifests[i] = m
			logging.CatalogDebug("loaded %s from %s (%d components)", m.Package, path, len(m.Components))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	c, err := New(manifests...)
	if err != nil {
		return nil, err
	}
	logging.Catalog("catalog loaded: %d packages from %s", len(manifests), dir)
	return c, nil
}

// WithSelf returns a copy that also contains the host as a catch-all
// receiver, mirroring a device where this tool is installed.
func (c *Catalog) WithSelf(pkg, label string) *Catalog {
	for _, m := range c.manifests {
		if m.Package == pkg {
			return c
		}
	}
	self := &Manifest{
		Package: pkg,
		Label:   label,
		Components: []Component{
			{Name: ".InterceptActivity", Label: label, MatchAll: true},
		},
		source: "<self>",
	}
	out, _ := New(append(append([]*Manifest(nil), c.manifests...), self)...)
	return out
}

// Manifests returns the loaded manifests ordered by package.
func (c *Catalog) Manifests() []*Manifest {
	return append([]*Manifest(nil), c.manifests...)
}

// Entry is one component with its resolved identity.
type Entry struct {
	Package   string
	Class     string
	Label     string
	Kind      string
	Exported  bool
	Filters   int
	Priority  int
	Candidate editor.Candidate
}

// Entries flattens every component in package order.
func (c *Catalog) Entries() []Entry {
	var out []Entry
	for _, m := range c.manifests {
		for _, comp := range m.Components {
			out = append(out, entryFor(m, comp, 0))
		}
	}
	return out
}

// ResolveCandidates returns every exported component able to receive in,
// highest filter priority first.
func (c *Catalog) ResolveCandidates(in *intent.Intent) []editor.Candidate {
	if in == nil {
		return []editor.Candidate{}
	}
	var matched []Entry
	for _, m := range c.manifests {
		if in.Package != "" && in.Package != m.Package {
			continue
		}
		for _, comp := range m.Components {
			if prio, ok := matchComponent(m, comp, in); ok {
				matched = append(matched, entryFor(m, comp, prio))
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Priority > matched[j].Priority })

	out := make([]editor.Candidate, len(matched))
	for i, e := range matched {
		out[i] = e.Candidate
	}
	logging.CatalogDebug("resolved %s to %d candidates", intent.Encode(in), len(out))
	return out
}

func matchComponent(m *Manifest, comp Component, in *intent.Intent) (int, bool) {
	if in.Component != nil {
		return 0, in.Component.Package == m.Package && in.Component.Class == comp.ClassName(m.Package)
	}
	if !comp.IsExported() {
		return 0, false
	}
	if comp.MatchAll {
		return 0, true
	}
	best, ok := 0, false
	for _, f := range comp.Filters {
		if f.Match(in) && (!ok || f.Priority > best) {
			best, ok = f.Priority, true
		}
	}
	return best, ok
}

func entryFor(m *Manifest, comp Component, prio int) Entry {
	label := comp.Label
	if label == "" {
		label = m.Label
	}
	if label == "" {
		label = m.Package
	}
	kind := comp.Kind
	if kind == "" {
		kind = "activity"
	}
	cls := comp.ClassName(m.Package)
	return Entry{
		Package:  m.Package,
		Class:    cls,
		Label:    label,
		Kind:     kind,
		Exported: comp.IsExported(),
		Filters:  len(comp.Filters),
		Priority: prio,
		Candidate: editor.Candidate{
			Label:     label,
			Package:   m.Package,
			Component: cls,
		},
	}
}
