package discovery

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/plughost/pkg/module"
)

// Strategy is one way of finding the module a declared name refers to.
// Find reports found=false when it has nothing for name; an error means the
// strategy itself failed and is treated like nothing found.
type Strategy interface {
	Name() string
	Find(ctx context.Context, name string) (*module.Module, bool, error)
}

// Strategy names, in resolution order.
const (
	StrategyLoaded    = "loaded"
	StrategyNamedLoad = "named_load"
	StrategyFile      = "file"
	StrategyScan      = "scan"
	StrategyBroad     = "broad"
	StrategyNone      = "none"
)

// DefaultStrategies returns the standard resolution order.
func DefaultStrategies(catalog *module.Catalog, loader *Loader, roots []string) []Strategy {
	return []Strategy{
		&loadedStrategy{catalog: catalog},
		&namedLoadStrategy{loader: loader},
		&fileStrategy{loader: loader, roots: roots},
		&scanStrategy{loader: loader, roots: roots},
	}
}

// loadedStrategy matches modules already in the catalog by name, either
// exactly (ignoring case) or with '.' replaced by '-'.
type loadedStrategy struct {
	catalog *module.Catalog
}

func (s *loadedStrategy) Name() string { return StrategyLoaded }

func (s *loadedStrategy) Find(_ context.Context, name string) (*module.Module, bool, error) {
	dashed := strings.ReplaceAll(name, ".", "-")
	for _, m := range s.catalog.Modules() {
		if strings.EqualFold(m.Name, name) || strings.EqualFold(m.Name, dashed) {
			return m, true, nil
		}
	}
	return nil, false, nil
}

// namedLoadStrategy asks the loader to open name directly.
type namedLoadStrategy struct {
	loader *Loader
}

func (s *namedLoadStrategy) Name() string { return StrategyNamedLoad }

func (s *namedLoadStrategy) Find(_ context.Context, name string) (*module.Module, bool, error) {
	m, err := s.loader.LoadByName(name)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// fileStrategy opens <name><ext> from the first root containing it.
type fileStrategy struct {
	loader *Loader
	roots  []string
}

func (s *fileStrategy) Name() string { return StrategyFile }

func (s *fileStrategy) Find(ctx context.Context, name string) (*module.Module, bool, error) {
	for _, root := range s.roots {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		candidate := filepath.Join(root, name+s.loader.Extension())
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		m, err := s.loader.Load(candidate)
		if err != nil {
			return nil, false, err
		}
		return m, true, nil
	}
	return nil, false, nil
}

// scanStrategy looks at every module file in the roots and picks the first
// whose stem matches name: equal ignoring case, or a dotted stem ending with
// the last segment of name ("acme.backend" matches "backend" and
// "samples.backend").
type scanStrategy struct {
	loader *Loader
	roots  []string
}

func (s *scanStrategy) Name() string { return StrategyScan }

func (s *scanStrategy) Find(ctx context.Context, name string) (*module.Module, bool, error) {
	for _, root := range s.roots {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		files, err := s.loader.ModuleFiles(root)
		if err != nil {
			continue
		}
		for _, file := range files {
			if !stemMatches(file, name) {
				continue
			}
			m, err := s.loader.Load(file)
			if err != nil {
				return nil, false, err
			}
			return m, true, nil
		}
	}
	return nil, false, nil
}

func stemMatches(file, name string) bool {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if strings.EqualFold(stem, name) {
		return true
	}
	last := name[strings.LastIndex(name, ".")+1:]
	return last != "" && strings.Contains(stem, ".") && strings.HasSuffix(stem, last)
}
