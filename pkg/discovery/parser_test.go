package discovery

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/marmos91/plughost/pkg/plugin"
)

// mapSource is a Source over nested maps with ':' separated keys.
type mapSource map[string]any

func (m mapSource) Get(key string) any {
	var cur any = map[string]any(m)
	for _, part := range strings.Split(key, keyDelimiter) {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = node[part]
		if !ok {
			return nil
		}
	}
	return cur
}

func (m mapSource) GetString(key string) string {
	v := m.Get(key)
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (m mapSource) AllKeys() []string {
	var keys []string
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, v := range node {
			full := k
			if prefix != "" {
				full = prefix + keyDelimiter + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(full, child)
				continue
			}
			keys = append(keys, full)
		}
	}
	walk("", m)
	sort.Strings(keys)
	return keys
}

func newYAMLSource(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(doc)))
	return v
}

func TestParse_NilSource(t *testing.T) {
	decls := Parse(nil)
	require.NotNil(t, decls)
	assert.Empty(t, decls)
}

func TestParse_Layouts(t *testing.T) {
	want := []plugin.Declaration{
		{Name: "backend", IsActive: true},
		{Name: "frontend", IsActive: false},
	}

	tests := []struct {
		name string
		src  Source
	}{
		{
			name: "List",
			src: mapSource{"plugins": []any{
				map[string]any{"name": "backend", "isActive": true},
				map[string]any{"name": "frontend", "isActive": false},
			}},
		},
		{
			name: "NestedList",
			src: mapSource{"plugins": map[string]any{"plugins": []any{
				map[string]any{"name": "backend", "isActive": "true"},
				map[string]any{"name": "frontend"},
			}}},
		},
		{
			name: "FlatKeys",
			src: mapSource{"plugins": map[string]any{
				"0": map[string]any{"name": "backend", "isactive": "true"},
				"1": map[string]any{"name": "frontend", "isactive": "false"},
			}},
		},
		{
			name: "NestedFlatKeys",
			src: mapSource{"plugins": map[string]any{"plugins": map[string]any{
				"0": map[string]any{"Name": "backend", "IsActive": "True"},
				"1": map[string]any{"Name": "frontend", "IsActive": "False"},
			}}},
		},
		{
			name: "YAMLList",
			src: newYAMLSource(t, `
plugins:
  - name: backend
    isActive: true
  - name: frontend
    isActive: false
`),
		},
		{
			name: "YAMLNested",
			src: newYAMLSource(t, `
plugins:
  plugins:
    - name: backend
      isActive: true
    - name: frontend
`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, want, Parse(tt.src))
		})
	}
}

func TestParse_ViperFlatKeys(t *testing.T) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.Set("plugins:1:name", "frontend")
	v.Set("plugins:0:name", "backend")
	v.Set("plugins:0:isactive", "true")

	assert.Equal(t, []plugin.Declaration{
		{Name: "backend", IsActive: true},
		{Name: "frontend", IsActive: false},
	}, Parse(v))
}

func TestParse_DropsBlankNames(t *testing.T) {
	src := mapSource{"plugins": []any{
		map[string]any{"name": "  ", "isActive": true},
		map[string]any{"isActive": true},
		map[string]any{"name": "  reporting ", "isActive": true},
	}}

	assert.Equal(t, []plugin.Declaration{{Name: "reporting", IsActive: true}}, Parse(src))
}

func TestParse_FlatKeysOrdering(t *testing.T) {
	src := mapSource{"plugins": map[string]any{
		"10":    map[string]any{"name": "ten"},
		"2":     map[string]any{"name": "two"},
		"beta":  map[string]any{"name": "b"},
		"alpha": map[string]any{"name": "a"},
	}}

	var names []string
	for _, d := range Parse(src) {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"two", "ten", "a", "b"}, names)
}

func TestParse_FlatKeysInvalidBool(t *testing.T) {
	src := mapSource{"plugins": map[string]any{
		"0": map[string]any{"name": "backend", "isactive": "yes"},
	}}

	assert.Equal(t, []plugin.Declaration{{Name: "backend", IsActive: false}}, Parse(src))
}

func TestParse_NoPluginsSection(t *testing.T) {
	src := mapSource{"logging": map[string]any{"level": "INFO"}}
	assert.Empty(t, Parse(src))
}

func TestSplitDeclarationKey(t *testing.T) {
	tests := []struct {
		remainder string
		index     string
		field     string
		ok        bool
	}{
		{"0:name", "0", "name", true},
		{"plugins:3:isactive", "3", "isactive", true},
		{"PLUGINS:3:name", "3", "name", true},
		{"group:sub:7:name", "7", "name", true},
		{"name", "", "", false},
		{"::name", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.remainder, func(t *testing.T) {
			index, field, ok := splitDeclarationKey(tt.remainder)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.index, index)
			assert.Equal(t, tt.field, field)
		})
	}
}

// All three layouts describe the same declarations and parse identically.
func TestParse_LayoutEquivalence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfN(
			rapid.OneOf(
				rapid.StringMatching(`[a-z][a-z0-9.\-]{0,12}`),
				rapid.StringMatching(` {0,2}[a-z]{1,6} {0,2}`),
				rapid.SampledFrom([]string{"", " ", "\t"}),
			), 0, 8).Draw(t, "names")
		actives := rapid.SliceOfN(rapid.Bool(), len(names), len(names)).Draw(t, "actives")

		list := make([]any, 0, len(names))
		flat := make(map[string]any, len(names))
		var want []plugin.Declaration
		for i, name := range names {
			list = append(list, map[string]any{"name": name, "isActive": actives[i]})
			flat[fmt.Sprint(i)] = map[string]any{"name": name, "isactive": fmt.Sprint(actives[i])}
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				want = append(want, plugin.Declaration{Name: trimmed, IsActive: actives[i]})
			}
		}
		if want == nil {
			want = []plugin.Declaration{}
		}

		layouts := map[string]Source{
			"list":   mapSource{"plugins": list},
			"nested": mapSource{"plugins": map[string]any{"plugins": list}},
			"flat":   mapSource{"plugins": flat},
		}
		for layout, src := range layouts {
			got := Parse(src)
			if len(got) != len(want) {
				t.Fatalf("%s: got %d declarations, want %d", layout, len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("%s: declaration %d = %+v, want %+v", layout, i, got[i], want[i])
				}
			}
		}
	})
}
