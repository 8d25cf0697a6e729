package kernel

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Plugin is a named group of functions.
type Plugin struct {
	Name        string
	Description string
	functions   map[string]Function
}

func NewPlugin(name, description string, functions ...Function) (*Plugin, error) {
	if !isIdentifier(name) {
		return nil, errors.Errorf("invalid plugin name %q", name)
	}
	p := &Plugin{
		Name:        name,
		Description: description,
		functions:   make(map[string]Function, len(functions)),
	}
	for _, f := range functions {
		fnName := f.Metadata().Name
		if !isIdentifier(fnName) {
			return nil, errors.Errorf("invalid function name %q in plugin %s", fnName, name)
		}
		if _, ok := p.functions[fnName]; ok {
			return nil, errors.Errorf("duplicate function %s in plugin %s", fnName, name)
		}
		if s, ok := f.(pluginScoped); ok {
			s.setPluginName(name)
		}
		p.functions[fnName] = f
	}
	return p, nil
}

func (p *Plugin) Function(name string) (Function, bool) {
	f, ok := p.functions[name]
	return f, ok
}

// Functions returns the plugin functions sorted by name.
func (p *Plugin) Functions() []Function {
	ret := make([]Function, 0, len(p.functions))
	for _, f := range p.functions {
		ret = append(ret, f)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Metadata().Name < ret[j].Metadata().Name
	})
	return ret
}

// PluginCollection is the thread-safe set of plugins owned by a kernel.
type PluginCollection struct {
	mu      sync.RWMutex
	plugins map[string]*Plugin
}

func NewPluginCollection() *PluginCollection {
	return &PluginCollection{
		plugins: make(map[string]*Plugin),
	}
}

func (c *PluginCollection) Add(p *Plugin) error {
	if p == nil {
		return errors.New("cannot add nil plugin")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.plugins[p.Name]; ok {
		return errors.Wrap(ErrDuplicatePlugin, p.Name)
	}
	c.plugins[p.Name] = p
	return nil
}

func (c *PluginCollection) Get(name string) (*Plugin, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.plugins[name]
	if !ok {
		return nil, errors.Wrap(ErrPluginNotFound, name)
	}
	return p, nil
}

func (c *PluginCollection) Function(pluginName, functionName string) (Function, error) {
	p, err := c.Get(pluginName)
	if err != nil {
		return nil, err
	}
	f, ok := p.Function(functionName)
	if !ok {
		return nil, errors.Wrapf(ErrFunctionNotFound, "%s.%s", pluginName, functionName)
	}
	return f, nil
}

// List returns all plugins sorted by name.
func (c *PluginCollection) List() []*Plugin {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ret := make([]*Plugin, 0, len(c.plugins))
	for _, p := range c.plugins {
		ret = append(ret, p)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Name < ret[j].Name
	})
	return ret
}

func (c *PluginCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.plugins)
}

func (c *PluginCollection) FunctionsMetadata() []FunctionMetadata {
	var ret []FunctionMetadata
	for _, p := range c.List() {
		for _, f := range p.Functions() {
			ret = append(ret, f.Metadata())
		}
	}
	return ret
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
