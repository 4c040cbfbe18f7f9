package classifier

import (
	"fmt"
	"sort"
	"time"
)

// Backend identifiers.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Factory builds a Classifier from the generic config below.
type Factory func(Config) (Classifier, error)

// Config carries the knobs used by backends.
type Config struct {
	// Local
	ModelPath string
	// Remote
	URL         string
	APIKey      string
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var registry = map[string]Factory{}

// Register registers a backend name with its factory.
func Register(name string, f Factory) { registry[name] = f }

// Backends lists registered backend names in sorted order.
func Backends() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New creates a Classifier for the named backend.
func New(name string, cfg Config) (Classifier, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Backends())
	}
	return f(cfg)
}

func init() {
	Register(BackendLocal, func(c Config) (Classifier, error) {
		if c.ModelPath == "" {
			return nil, fmt.Errorf("local backend: model path is required")
		}
		return LoadModel(c.ModelPath)
	})
	Register(BackendRemote, func(c Config) (Classifier, error) {
		if c.URL == "" {
			return nil, fmt.Errorf("remote backend: model url is required")
		}
		return NewRemoteClient(c.URL, c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay), nil
	})
}
