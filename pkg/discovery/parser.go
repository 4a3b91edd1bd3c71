package discovery

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/pkg/plugin"
)

// Parse reads plugin declarations from src. It never fails: malformed input
// yields fewer (possibly zero) declarations.
//
// Three layouts are tried in order, stopping at the first that yields a named
// entry:
//
//	plugins: [{name: backend, isActive: true}]          # list
//	plugins: {plugins: [{name: backend, isActive: true}]} # nested list
//	plugins:0:name=backend, plugins:0:isactive=true      # flat keys
//
// Entries with a blank name are dropped and names are trimmed.
func Parse(src Source) []plugin.Declaration {
	if src == nil {
		logger.Debug("No configuration source, no plugins to discover")
		return []plugin.Declaration{}
	}

	decls := bindDeclarations(src.Get(Section))
	logger.Debug("Direct plugin binding", logger.Count(len(decls)))
	if len(decls) > 0 {
		return decls
	}

	decls = bindDeclarations(src.Get(Section + keyDelimiter + Section))
	logger.Debug("Nested plugin binding", logger.Count(len(decls)))
	if len(decls) > 0 {
		return decls
	}

	decls = scanDeclarations(src)
	logger.Debug("Manual plugin key scan", logger.Count(len(decls)))
	return decls
}

// bindDeclarations decodes raw into declarations. Values that are not a list
// of objects decode to nothing.
func bindDeclarations(raw any) []plugin.Declaration {
	if raw == nil {
		return nil
	}

	var decoded []plugin.Declaration
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &decoded,
	})
	if err != nil {
		return nil
	}
	if err := decoder.Decode(raw); err != nil {
		logger.Debug("Plugin section did not bind", logger.Err(err))
		return nil
	}
	return keepNamed(decoded)
}

// scanDeclarations groups the flat "plugins:..." keys of src by index.
func scanDeclarations(src Source) []plugin.Declaration {
	prefix := Section + keyDelimiter
	groups := make(map[string]*plugin.Declaration)

	for _, key := range src.AllKeys() {
		if len(key) <= len(prefix) || !strings.EqualFold(key[:len(prefix)], prefix) {
			continue
		}
		value := src.GetString(key)
		if strings.TrimSpace(value) == "" {
			continue
		}

		index, field, ok := splitDeclarationKey(key[len(prefix):])
		if !ok {
			continue
		}

		decl, exists := groups[index]
		if !exists {
			decl = &plugin.Declaration{}
			groups[index] = decl
		}

		switch {
		case strings.EqualFold(field, "name"):
			decl.Name = value
		case strings.EqualFold(field, "isactive"):
			active, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(value)))
			decl.IsActive = err == nil && active
		}
	}

	indices := make([]string, 0, len(groups))
	for index := range groups {
		indices = append(indices, index)
	}
	sortIndices(indices)

	out := make([]plugin.Declaration, 0, len(indices))
	for _, index := range indices {
		out = append(out, *groups[index])
	}
	return keepNamed(out)
}

// splitDeclarationKey extracts (index, field) from the part of a key after
// "plugins:".
//
//	plugins:0:name         → ("0", "name")
//	plugins:plugins:0:name → ("0", "name")
//	a:b:0:name             → ("0", "name")
func splitDeclarationKey(remainder string) (index, field string, ok bool) {
	var parts []string
	for _, p := range strings.Split(remainder, keyDelimiter) {
		if p != "" {
			parts = append(parts, p)
		}
	}

	switch {
	case len(parts) < 2:
		return "", "", false
	case len(parts) >= 3 && strings.EqualFold(parts[0], Section):
		return parts[1], parts[2], true
	case len(parts) == 2:
		return parts[0], parts[1], true
	default:
		return parts[len(parts)-2], parts[len(parts)-1], true
	}
}

// sortIndices orders numeric indices ascending, followed by the remaining
// indices lexicographically.
func sortIndices(indices []string) {
	sort.SliceStable(indices, func(i, j int) bool {
		ni, errI := strconv.Atoi(indices[i])
		nj, errJ := strconv.Atoi(indices[j])
		switch {
		case errI == nil && errJ == nil:
			if ni != nj {
				return ni < nj
			}
			return indices[i] < indices[j]
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return indices[i] < indices[j]
		}
	})
}

func keepNamed(decls []plugin.Declaration) []plugin.Declaration {
	out := make([]plugin.Declaration, 0, len(decls))
	for _, d := range decls {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}
