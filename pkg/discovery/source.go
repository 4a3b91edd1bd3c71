// Package discovery turns the "plugins" configuration section into plugin
// instances.
//
// It has two halves. Parse reads declarations ({name, isActive} pairs) from a
// configuration Source, accepting several layouts. The Locator resolves each
// declared name to a module and a plugin type through an ordered list of
// strategies: modules already in the catalog, a module opened by name, a
// module file named after the plugin, and finally a scan of every module file
// in the candidate roots. The Discoverer glues both halves to the registry.
package discovery

// Section is the configuration key that holds plugin declarations.
const Section = "plugins"

// keyDelimiter separates configuration key segments, e.g. "plugins:0:name".
const keyDelimiter = ":"

// Source is the read-only configuration view used by Parse.
// *viper.Viper built with viper.KeyDelimiter(":") satisfies it.
type Source interface {
	Get(key string) any
	GetString(key string) string
	AllKeys() []string
}
