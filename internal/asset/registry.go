// Package asset provides the asset reference used to check that amounts are
// denominated in assets the anchor is configured for.
package asset

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"anchorcore/pkg/domain"
)

var _ domain.AssetService = (*Registry)(nil)

// Asset describes one configured asset. ID is the full identifier used on
// amounts ("iso4217:USD", "stellar:USDC:<issuer>").
type Asset struct {
	ID          string `yaml:"id" json:"id"`
	Code        string `yaml:"code" json:"code"`
	Issuer      string `yaml:"issuer,omitempty" json:"issuer,omitempty"`
	Significant int    `yaml:"significant_decimals,omitempty" json:"significant_decimals,omitempty"`
	Sep24       bool   `yaml:"sep24" json:"sep24"`
	Sep31       bool   `yaml:"sep31" json:"sep31"`
}

type file struct {
	Assets []Asset `yaml:"assets"`
}

// Registry is an immutable-after-load set of known assets.
type Registry struct {
	assets map[string]Asset
}

// NewRegistry builds a registry from the supplied assets. Duplicate ids are rejected.
func NewRegistry(assets ...Asset) (*Registry, error) {
	r := &Registry{assets: make(map[string]Asset, len(assets))}
	for _, a := range assets {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			return nil, fmt.Errorf("asset id required (code=%q)", a.Code)
		}
		if _, exists := r.assets[id]; exists {
			return nil, fmt.Errorf("asset %s declared twice", id)
		}
		a.ID = id
		r.assets[id] = a
	}
	return r, nil
}

// MustRegistry is NewRegistry for static fixtures.
func MustRegistry(assets ...Asset) *Registry {
	r, err := NewRegistry(assets...)
	if err != nil {
		panic(err)
	}
	return r
}

// Parse decodes a YAML asset document of the form `assets: [{id: ..., code: ...}]`.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode assets: %w", err)
	}
	return NewRegistry(f.Assets...)
}

// LoadFile reads and parses an asset document from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assets: %w", err)
	}
	return Parse(data)
}

// IsSupportedAsset implements domain.AssetService.
func (r *Registry) IsSupportedAsset(id string) bool {
	if r == nil {
		return false
	}
	_, ok := r.assets[id]
	return ok
}

// Get returns the asset registered under id.
func (r *Registry) Get(id string) (Asset, bool) {
	a, ok := r.assets[id]
	return a, ok
}

// List returns every asset ordered by id.
func (r *Registry) List() []Asset {
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
