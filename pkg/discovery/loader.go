package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marmos91/plughost/internal/logger"
	"github.com/marmos91/plughost/pkg/metrics"
	"github.com/marmos91/plughost/pkg/module"
)

var (
	// ErrNoModuleFile is returned by LoadByName when the name does not refer
	// to an existing file.
	ErrNoModuleFile = errors.New("no module file")

	// ErrInvalidModule is returned when a file does not export a usable
	// Module symbol.
	ErrInvalidModule = errors.New("invalid module symbol")
)

// Loader opens module files and adds their modules to a catalog.
// Each path is opened at most once; the outcome, success or failure, is
// remembered. Loaded modules are never unloaded.
type Loader struct {
	catalog *module.Catalog
	opener  Opener
	ext     string
	metrics metrics.DiscoveryMetrics

	mu     sync.Mutex
	loaded map[string]*module.Module
	failed map[string]error
}

// NewLoader creates a loader that registers modules into catalog.
// A nil opener selects GoPluginOpener; ext is the module file extension,
// e.g. ".so".
func NewLoader(catalog *module.Catalog, opener Opener, ext string) *Loader {
	if opener == nil {
		opener = GoPluginOpener{}
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Loader{
		catalog: catalog,
		opener:  opener,
		ext:     ext,
		loaded:  make(map[string]*module.Module),
		failed:  make(map[string]error),
	}
}

// Extension returns the module file extension.
func (l *Loader) Extension() string { return l.ext }

// SetMetrics sets the collector that records module loads. Nil disables it.
func (l *Loader) SetMetrics(m metrics.DiscoveryMetrics) { l.metrics = m }

// Load opens the module file at path and adds its module to the catalog.
func (l *Loader) Load(path string) (*module.Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve module path %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.loaded[abs]; ok {
		return m, nil
	}
	if err, ok := l.failed[abs]; ok {
		return nil, err
	}
	if m, ok := l.catalog.ByPath(abs); ok {
		l.loaded[abs] = m
		return m, nil
	}

	m, err := l.open(abs)
	metrics.ObserveModuleLoad(l.metrics, err == nil)
	if err != nil {
		l.failed[abs] = err
		logger.Debug("Module load failed", logger.Path(abs), logger.Err(err))
		return nil, err
	}

	l.loaded[abs] = m
	logger.Debug("Module loaded", logger.Module(m.Name), logger.Path(abs), logger.Count(len(m.Types)))
	return m, nil
}

// LoadByName loads name when it refers to an existing module file, either
// as given or with the module extension appended.
func (l *Loader) LoadByName(name string) (*module.Module, error) {
	for _, candidate := range []string{name, name + l.ext} {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		return l.Load(candidate)
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNoModuleFile)
}

// LoadDir loads every module file directly inside dir. Files that fail to
// load are skipped.
func (l *Loader) LoadDir(dir string) []*module.Module {
	files, err := l.ModuleFiles(dir)
	if err != nil {
		logger.Debug("Cannot list module files", logger.Root(dir), logger.Err(err))
		return nil
	}

	var modules []*module.Module
	for _, file := range files {
		m, err := l.Load(file)
		if err != nil {
			continue
		}
		modules = append(modules, m)
	}
	return modules
}

// ModuleFiles lists the module files directly inside dir, sorted by name.
func (l *Loader) ModuleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), l.ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func (l *Loader) open(path string) (*module.Module, error) {
	syms, err := l.opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open module %s: %w", path, err)
	}

	sym, err := syms.Lookup(ModuleSymbol)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w: %v", path, ErrInvalidModule, err)
	}

	var m *module.Module
	switch v := sym.(type) {
	case *module.Module:
		m = v
	case **module.Module:
		if v != nil {
			m = *v
		}
	case func() *module.Module:
		m, err = callModuleFunc(v)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w: %v", path, ErrInvalidModule, err)
		}
	default:
		return nil, fmt.Errorf("module %s: %w: unexpected type %T", path, ErrInvalidModule, sym)
	}
	if m == nil {
		return nil, fmt.Errorf("module %s: %w: nil module", path, ErrInvalidModule)
	}

	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	m.Path = path

	if err := l.catalog.Add(m); err != nil {
		return nil, fmt.Errorf("register module %s: %w", path, err)
	}
	return m, nil
}

// callModuleFunc runs a module factory symbol, turning a panic into an error.
func callModuleFunc(fn func() *module.Module) (m *module.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("module factory panicked: %v", r)
		}
	}()
	return fn(), nil
}
