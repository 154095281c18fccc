package sources

// Config describes one recall source loaded from a YAML file in the sources
// directory. Adding a source means dropping in a new file and registering an
// adapter for its kind; the matching engine and recall store are untouched.
type Config struct {
	Name string `yaml:"-"` // Derived from the file name

	Source string `yaml:"source"` // Adapter kind: fda, nhtsa, cpsc
	URL    string `yaml:"url"`

	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled    bool `yaml:"enabled"`
	WindowDays int  `yaml:"window_days"` // Trailing window of data requested per sync
	Timeout    int  `yaml:"timeout"`     // Fetch timeout in seconds
}
