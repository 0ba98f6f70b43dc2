package variables

import (
	"fmt"
	"strings"
	"sync"
)

// Provider supplies groups that replace or extend the defaults. It is
// consulted once, when the registry is built.
type Provider interface {
	Groups() ([]Group, error)
}

// Registry is an ordered, name-keyed set of groups.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	groups map[string]Group
}

func NewRegistry() *Registry {
	return &Registry{groups: map[string]Group{}}
}

// Put stores g, replacing a group of the same name in place.
func (r *Registry) Put(g Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[g.Name]; !ok {
		r.order = append(r.order, g.Name)
	}
	r.groups[g.Name] = g
}

// Override replaces groups by name with the ones supplied by p.
func (r *Registry) Override(p Provider) error {
	groups, err := p.Groups()
	if err != nil {
		return fmt.Errorf("variables: override: %w", err)
	}
	for _, g := range groups {
		if err := validate(g); err != nil {
			return err
		}
		r.Put(g)
	}
	return nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Get(name string) (Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[name]
	return g, ok
}

// Resolve returns the named groups in the requested order.
func (r *Registry) Resolve(names ...string) ([]Group, error) {
	out := make([]Group, 0, len(names))
	for _, n := range names {
		g, ok := r.Get(n)
		if !ok {
			return nil, fmt.Errorf("variables: unknown group %q (have %s)", n, strings.Join(r.Names(), ", "))
		}
		out = append(out, g)
	}
	return out, nil
}

// DefaultNames lists the groups used for a prong category ("1p" or "3p")
// in model input order.
func DefaultNames(prong string) ([]string, error) {
	switch prong {
	case "1p", "3p":
		return []string{"tracks", "clusters", "scalar_" + prong}, nil
	}
	return nil, fmt.Errorf("variables: unknown prong %q", prong)
}

// Default resolves the default groups of a prong category.
func Default(prong string) ([]Group, error) {
	names, err := DefaultNames(prong)
	if err != nil {
		return nil, err
	}
	return Defaults().Resolve(names...)
}

// InferProng reads the prong category from a sample name.
func InferProng(sample string) (string, error) {
	s := strings.ToLower(sample)
	switch {
	case strings.Contains(s, "1p"):
		return "1p", nil
	case strings.Contains(s, "3p"):
		return "3p", nil
	}
	return "", fmt.Errorf("variables: cannot infer prong from %q", sample)
}

func validate(g Group) error {
	if g.Name == "" {
		return fmt.Errorf("variables: group without name")
	}
	if g.Len < 0 {
		return fmt.Errorf("variables: group %s: negative length %d", g.Name, g.Len)
	}
	if len(g.Vars) == 0 {
		return fmt.Errorf("variables: group %s has no variables", g.Name)
	}
	seen := map[string]bool{}
	for _, v := range g.Vars {
		if seen[v.Name] {
			return fmt.Errorf("variables: group %s: duplicate variable %s", g.Name, v.Name)
		}
		seen[v.Name] = true
	}
	if g.Cut != nil && g.Index(g.Cut.Variable) < 0 {
		return fmt.Errorf("variables: group %s: cut on unknown variable %s", g.Name, g.Cut.Variable)
	}
	return nil
}
