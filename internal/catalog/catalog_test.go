package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"intercept/internal/editor"
	"intercept/internal/intent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const browserManifest = `
package: com.browser
label: Browser
components:
  - name: .Main
    filters:
      - actions: [android.intent.action.VIEW]
        categories: [android.intent.category.DEFAULT, android.intent.category.BROWSABLE]
        schemes: [http, https]
  - name: .Internal
`

const galleryManifest = `
package: com.gallery
label: Gallery
components:
  - name: com.gallery.ViewImage
    label: View image
    filters:
      - actions: [android.intent.action.VIEW]
        categories: [android.intent.category.DEFAULT]
        types: ["image/*"]
        priority: 10
  - name: .Share
    kind: activity
    filters:
      - actions: [android.intent.action.SEND]
        types: ["*/*"]
`

func writeCatalog(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dir := writeCatalog(t, map[string]string{
		"browser.yaml": browserManifest,
		"gallery.yml":  galleryManifest,
		"README.md":    "ignored",
	})
	c, err := Load(context.Background(), dir)
	require.NoError(t, err)
	return c
}

func view(data, mime string, categories ...string) *intent.Intent {
	in := intent.New(intent.ActionView)
	in.Data = data
	in.Type = mime
	for _, c := range categories {
		in.AddCategory(c)
	}
	return in
}

func labels(cands []editor.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Label
	}
	return out
}

func TestLoad(t *testing.T) {
	c := loadTestCatalog(t)
	ms := c.Manifests()
	require.Len(t, ms, 2)
	assert.Equal(t, "com.browser", ms[0].Package)
	assert.Equal(t, "com.gallery", ms[1].Package)

	entries := c.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "com.browser.Main", entries[0].Class)
	assert.Equal(t, "Browser", entries[0].Label)
	assert.False(t, entries[1].Exported, "no filters, not exported")
}

func TestLoad_MissingDir(t *testing.T) {
	c, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, c.Manifests())
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]map[string]string{
		"bad yaml":     {"a.yaml": "package: [x"},
		"no package":   {"a.yaml": "label: x"},
		"no name":      {"a.yaml": "package: p\ncomponents:\n  - label: x\n"},
		"dup class":    {"a.yaml": "package: p\ncomponents:\n  - name: .A\n  - name: p.A\n"},
		"bad kind":     {"a.yaml": "package: p\ncomponents:\n  - name: .A\n    kind: provider\n"},
		"dup packages": {"a.yaml": "package: p\n", "b.yaml": "package: p\n"},
	}
	for name, files := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(context.Background(), writeCatalog(t, files))
			assert.Error(t, err)
		})
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"browser.yaml": browserManifest})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve(t *testing.T) {
	c := loadTestCatalog(t)

	tests := []struct {
		name string
		in   *intent.Intent
		want []string
	}{
		{"browsable https", view("https://example.com", "", intent.CategoryBrowsable), []string{"Browser"}},
		{"undeclared category", view("https://example.com", "", intent.CategoryLauncher), []string{}},
		{"scheme mismatch", view("mailto:a@b", ""), []string{}},
		{"typed content uri", view("content://media/1", "image/png"), []string{"View image"}},
		{"typed http uri needs scheme", view("https://example.com/a.png", "image/png"), []string{}},
		{"type only", view("", "image/jpeg"), []string{"View image"}},
		{"no data", view("", ""), []string{}},
		{"wildcard send", func() *intent.Intent {
			in := intent.New(intent.ActionSend)
			in.Type = "text/plain"
			return in
		}(), []string{"Gallery"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, labels(c.ResolveCandidates(tt.in)))
		})
	}
}

func TestResolve_ExplicitAndPackage(t *testing.T) {
	c := loadTestCatalog(t)

	in := intent.New("anything")
	in.Component = &intent.ComponentName{Package: "com.browser", Class: "com.browser.Internal"}
	got := c.ResolveCandidates(in)
	require.Len(t, got, 1)
	assert.Equal(t, "com.browser.Internal", got[0].Component)

	in = view("content://media/1", "image/png")
	in.Package = "com.browser"
	assert.Empty(t, c.ResolveCandidates(in))
}

func TestResolve_PriorityOrder(t *testing.T) {
	c := loadTestCatalog(t)
	extra, err := ParseManifest([]byte(`
package: com.aaa
components:
  - name: .Low
    filters:
      - actions: [android.intent.action.VIEW]
        types: ["image/*"]
        priority: -1
`))
	require.NoError(t, err)
	all, err := New(append(c.Manifests(), extra)...)
	require.NoError(t, err)

	got := labels(all.ResolveCandidates(view("", "image/png")))
	assert.Equal(t, []string{"View image", "com.aaa"}, got)
}

func TestWithSelf_FeedsMatchCount(t *testing.T) {
	c := loadTestCatalog(t).WithSelf("dev.intercept", "Intercept")

	m, err := editor.Load(view("https://example.com", "", intent.CategoryBrowsable), nil)
	require.NoError(t, err)

	got := m.MatchingTargets(c, "dev.intercept")
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, []string{"Browser"}, labels(got.Candidates))

	none := view("mailto:a@b", "")
	assert.Equal(t, []string{"Intercept"}, labels(c.ResolveCandidates(none)))
}

func TestFilter_MatchType(t *testing.T) {
	f := Filter{Types: []string{"text/*", "application/json"}}
	assert.True(t, f.matchType("text/plain"))
	assert.True(t, f.matchType("TEXT/HTML"))
	assert.True(t, f.matchType("application/json"))
	assert.False(t, f.matchType("application/xml"))
	assert.False(t, f.matchType("image/png"))
}

func TestFilter_Hosts(t *testing.T) {
	f := Filter{Actions: []string{"a"}, Schemes: []string{"https"}, Hosts: []string{"*.example.com", "exact.org"}}
	ok := func(data string) bool {
		in := intent.New("a")
		in.Data = data
		return f.Match(in)
	}
	assert.True(t, ok("https://www.example.com/x"))
	assert.True(t, ok("https://exact.org"))
	assert.False(t, ok("https://example.org"))
	assert.False(t, ok("http://exact.org"))
}
