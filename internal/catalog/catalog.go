// Package catalog holds the immutable registry of subscription packages.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// Service names gated by the entitlement engine.
const (
	ServiceChat            = "chat"
	ServiceTranslation     = "translation"
	ServiceTextGeneration  = "text_generation"
	ServiceVideoCreation   = "video_creation"
	ServiceImageGeneration = "image_generation"
	ServiceVoiceMusic      = "voice_music"
)

// Unlimited marks a quota without an upper bound.
const Unlimited = -1

// Services lists every gated service in display order.
var Services = []string{
	ServiceChat,
	ServiceTranslation,
	ServiceTextGeneration,
	ServiceVideoCreation,
	ServiceImageGeneration,
	ServiceVoiceMusic,
}

var (
	// ErrUnknownPackage is returned for a key missing from the registry.
	ErrUnknownPackage = errors.New("unknown package")
	// ErrUnknownService is returned for a service name outside Services.
	ErrUnknownService = errors.New("unknown service")
)

// Package is a subscription tier.
type Package struct {
	Key          string
	Names        map[string]string
	Price        int64
	DurationDays int
	Quotas       map[string]int
	Free         bool
	Default      bool
}

// Name returns the display name for lang, falling back to the key.
func (p Package) Name(lang string) string {
	if n, ok := p.Names[lang]; ok && n != "" {
		return n
	}
	if n, ok := p.Names["en"]; ok && n != "" {
		return n
	}
	return p.Key
}

// Quota returns the quota for service and whether the service is known.
func (p Package) Quota(service string) (int, bool) {
	q, ok := p.Quotas[service]
	return q, ok
}

// Registry is a read-only set of packages.
type Registry struct {
	packages map[string]Package
	order    []string
	def      string
}

// New validates packages and builds a registry. Every package must carry an
// explicit quota for every entry in Services, and exactly one package must be
// the free default.
func New(packages []Package) (*Registry, error) {
	if len(packages) == 0 {
		return nil, errors.New("catalog: no packages")
	}
	r := &Registry{packages: make(map[string]Package, len(packages))}
	for _, p := range packages {
		if p.Key == "" {
			return nil, errors.New("catalog: package with empty key")
		}
		if _, dup := r.packages[p.Key]; dup {
			return nil, fmt.Errorf("catalog: duplicate package %q", p.Key)
		}
		for _, svc := range Services {
			q, ok := p.Quotas[svc]
			if !ok {
				return nil, fmt.Errorf("catalog: package %q has no quota for %q", p.Key, svc)
			}
			if q < Unlimited {
				return nil, fmt.Errorf("catalog: package %q has invalid quota %d for %q", p.Key, q, svc)
			}
		}
		if p.Price < 0 || p.DurationDays < 0 {
			return nil, fmt.Errorf("catalog: package %q has negative price or duration", p.Key)
		}
		if !p.Free && p.Price == 0 {
			return nil, fmt.Errorf("catalog: paid package %q has zero price", p.Key)
		}
		if p.Default {
			if r.def != "" {
				return nil, fmt.Errorf("catalog: packages %q and %q are both default", r.def, p.Key)
			}
			if !p.Free {
				return nil, fmt.Errorf("catalog: default package %q must be free", p.Key)
			}
			r.def = p.Key
		}
		r.packages[p.Key] = clonePackage(p)
		r.order = append(r.order, p.Key)
	}
	if r.def == "" {
		return nil, errors.New("catalog: no default package")
	}
	return r, nil
}

// Get returns the package for key.
func (r *Registry) Get(key string) (Package, error) {
	p, ok := r.packages[key]
	if !ok {
		return Package{}, fmt.Errorf("%w: %s", ErrUnknownPackage, key)
	}
	return clonePackage(p), nil
}

// Default returns the free fallback package.
func (r *Registry) Default() Package {
	return clonePackage(r.packages[r.def])
}

// Resolve returns the package for key, or the default when key is nil or unknown.
func (r *Registry) Resolve(key *string) Package {
	if key != nil {
		if p, ok := r.packages[*key]; ok {
			return clonePackage(p)
		}
	}
	return r.Default()
}

// All returns packages in registration order.
func (r *Registry) All() []Package {
	out := make([]Package, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, clonePackage(r.packages[key]))
	}
	return out
}

// Paid returns the purchasable packages sorted by price.
func (r *Registry) Paid() []Package {
	var out []Package
	for _, p := range r.All() {
		if !p.Free {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// ValidService reports whether name is a gated service.
func ValidService(name string) bool {
	for _, s := range Services {
		if s == name {
			return true
		}
	}
	return false
}

func clonePackage(p Package) Package {
	names := make(map[string]string, len(p.Names))
	for k, v := range p.Names {
		names[k] = v
	}
	quotas := make(map[string]int, len(p.Quotas))
	for k, v := range p.Quotas {
		quotas[k] = v
	}
	p.Names = names
	p.Quotas = quotas
	return p
}
