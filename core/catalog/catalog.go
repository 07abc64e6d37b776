// Package catalog - Service catalog and label mapping
// Translates display labels (usually Arabic account names) into canonical service keys.
package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
)

// Classification is the tagged result of mapping a label: Known(key) or Unknown(label).
type Classification struct {
	// Label is the label as given by the caller
	Label string `json:"label"`

	// Key is the matched service key; empty when Known is false
	Key string `json:"service_key,omitempty"`

	// Known is false when the label has no catalog entry
	Known bool `json:"known"`
}

// Catalog is the authoritative service catalog
type Catalog struct {
	services   map[string]*types.Service
	labels     map[string]string
	order      []string
	defaultKey string
}

// New creates an empty catalog with the given default key
func New(defaultKey string) *Catalog {
	return &Catalog{
		services:   make(map[string]*types.Service),
		labels:     make(map[string]string),
		defaultKey: defaultKey,
	}
}

// Register adds a service and its labels. The key itself is always accepted as a label.
func (c *Catalog) Register(svc types.Service) error {
	if strings.TrimSpace(svc.Key) == "" {
		return apperrors.Validation("service key must not be empty")
	}
	if _, exists := c.services[svc.Key]; exists {
		return apperrors.Newf(apperrors.TypeValidation, "service %q registered twice", svc.Key)
	}

	all := append([]string{svc.Key}, svc.Labels...)
	for _, label := range all {
		n := Normalize(label)
		if n == "" {
			continue
		}
		if owner, taken := c.labels[n]; taken && owner != svc.Key {
			return apperrors.Newf(apperrors.TypeValidation,
				"label %q maps to both %q and %q", label, owner, svc.Key)
		}
	}
	for _, label := range all {
		if n := Normalize(label); n != "" {
			c.labels[n] = svc.Key
		}
	}

	stored := svc
	c.services[svc.Key] = &stored
	c.order = append(c.order, svc.Key)
	return nil
}

// SetDefault changes the key used for unknown labels
func (c *Catalog) SetDefault(key string) {
	c.defaultKey = key
}

// DefaultKey returns the fallback key
func (c *Catalog) DefaultKey() string {
	return c.defaultKey
}

// Validate checks that the default key names a registered service
func (c *Catalog) Validate() error {
	if c.defaultKey == "" {
		return apperrors.Validation("catalog has no default service")
	}
	if _, ok := c.services[c.defaultKey]; !ok {
		return apperrors.Newf(apperrors.TypeValidation,
			"default service %q is not registered", c.defaultKey)
	}
	return nil
}

// Classify maps a label without substituting anything
func (c *Catalog) Classify(label string) Classification {
	key, ok := c.labels[Normalize(label)]
	if !ok {
		return Classification{Label: label}
	}
	return Classification{Label: label, Key: key, Known: true}
}

// KeyFor returns the label's key, or the default key when the label is unknown.
func (c *Catalog) KeyFor(label string) string {
	if cl := c.Classify(label); cl.Known {
		return cl.Key
	}
	return c.defaultKey
}

// Resolve maps a label to a key. In strict mode an unknown label is an
// UNKNOWN_SERVICE error; otherwise the default key is returned with Known=false.
func (c *Catalog) Resolve(label string, strict bool) (Classification, error) {
	cl := c.Classify(label)
	if cl.Known {
		return cl, nil
	}
	if strict || c.defaultKey == "" {
		return cl, apperrors.UnknownService(label)
	}
	cl.Key = c.defaultKey
	return cl, nil
}

// Service returns the master entry for a key
func (c *Catalog) Service(key string) (types.Service, bool) {
	svc, ok := c.services[key]
	if !ok {
		return types.Service{}, false
	}
	return *svc, true
}

// Services lists entries in registration order
func (c *Catalog) Services() []types.Service {
	out := make([]types.Service, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.services[key])
	}
	return out
}

// Labels returns every normalized label with its key, sorted by label
func (c *Catalog) Labels() []Classification {
	out := make([]Classification, 0, len(c.labels))
	for label, key := range c.labels {
		out = append(out, Classification{Label: label, Key: key, Known: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Len returns the number of services
func (c *Catalog) Len() int {
	return len(c.services)
}

// Normalize canonicalizes a label: NFC form, no tatweel, single spaces, lower case.
func Normalize(label string) string {
	s := norm.NFC.String(label)
	s = strings.ReplaceAll(s, "ـ", "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}
