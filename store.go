/*
Copyright © 2020 the wrfvar authors.
This file is part of wrfvar.

wrfvar is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

wrfvar is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with wrfvar.  If not, see <http://www.gnu.org/licenses/>.
*/

package wrfvar

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Source provides the variables stored in a dataset.
type Source interface {
	// Variables returns the names of the stored variables.
	Variables() []string

	// Read returns the stored variable called name at time index itime.
	Read(name string, itime int) (*Variable, error)
}

// ProjectionSource is implemented by sources that can describe the map
// projection of their grid.
type ProjectionSource interface {
	Projection() (*ProjInfo, error)
}

// Option modifies a request to a Store.
type Option func(*options)

type options struct {
	timeIndex         int
	includeProjection bool
	assignHeights     bool
	sharedHeights     bool
}

func newOptions(opts []Option) options {
	o := options{includeProjection: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TimeIndex specifies the time step to read. The default is 0.
func TimeIndex(i int) Option {
	return func(o *options) { o.timeIndex = i }
}

// IncludeProjection specifies whether the returned variables should carry
// map projection information. The default is true.
func IncludeProjection(b bool) Option {
	return func(o *options) { o.includeProjection = b }
}

// AssignHeights specifies that the returned variables should carry
// the heights of their cells and the surface topography.
func AssignHeights() Option {
	return func(o *options) { o.assignHeights = true }
}

// SharedHeights specifies that, when GetAll is called with
// AssignHeights, the heights are only computed for the first variable
// and shared by all others. The variables must all be on the same grid.
func SharedHeights() Option {
	return func(o *options) { o.sharedHeights = true }
}

type cacheKey struct {
	name  string
	itime int
}

// Store resolves variables from a Source, computing derived variables
// on demand and caching every result for the lifetime of the Store.
// It is safe for concurrent use.
type Store struct {
	// Log receives progress and diagnostic messages.
	Log logrus.FieldLogger

	src     Source
	aliases AliasTable
	stored  map[string]bool

	mu       sync.Mutex
	cache    map[cacheKey]*Variable
	inFlight map[cacheKey]bool
	chain    []string

	// heightComputations counts the vertical coordinate assignments
	// that have been performed.
	heightComputations int
}

// NewStore creates a new Store reading from src. aliases, which may be
// nil, maps loosely specified names to the names of stored variables.
func NewStore(src Source, aliases AliasTable) *Store {
	s := &Store{
		Log:      logrus.StandardLogger(),
		src:      src,
		aliases:  aliases,
		stored:   make(map[string]bool),
		cache:    make(map[cacheKey]*Variable),
		inFlight: make(map[cacheKey]bool),
	}
	for _, v := range src.Variables() {
		s.stored[v] = true
	}
	return s
}

// Get returns the variable called name. If name is neither a derived
// variable nor stored in the Source, directly or through an alias,
// the returned error is a *NotFoundError.
// Repeated requests for the same name and time index return the same
// *Variable, unless heights are requested for a variable that was
// first retrieved without them.
func (s *Store) Get(name string, opts ...Option) (*Variable, error) {
	o := newOptions(opts)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(name, o, 0)
}

// GetAll returns the variables called names, keyed by name.
// It stops at the first variable that cannot be resolved and returns
// its error. Variables resolved before the failure remain cached.
func (s *Store) GetAll(names []string, opts ...Option) (map[string]*Variable, error) {
	o := newOptions(opts)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*Variable, len(names))
	var first *Variable
	for i, name := range names {
		share := i > 0 && o.assignHeights && o.sharedHeights && first.HasHeights()
		vo := o
		if share {
			vo.assignHeights = false
		}
		v, err := s.get(name, vo, 0)
		if err != nil {
			return nil, err
		}
		if share {
			if !sameShape(v.Data.Shape, first.ZLevels.Shape) {
				return nil, &ShapeMismatchError{
					A: name, ShapeA: v.Shape(),
					B: names[0], ShapeB: first.Shape(),
				}
			}
			if v, err = v.WithHeights(first.ZLevels, first.Topograph); err != nil {
				return nil, err
			}
			s.cache[cacheKey{name: name, itime: o.timeIndex}] = v
		}
		if i == 0 {
			first = v
		}
		out[name] = v
	}
	return out, nil
}

// HasVariables returns whether all of the given names can be resolved,
// either as derived variables or as stored variables.
func (s *Store) HasVariables(names ...string) bool {
	for _, n := range names {
		if _, ok := LookupDerived(n); ok {
			continue
		}
		if _, ok := s.canonicalName(n); !ok {
			return false
		}
	}
	return true
}

// Close releases the cached variables and closes the Source if it
// implements io.Closer.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[cacheKey]*Variable)
	if c, ok := s.src.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// get resolves name. depth is the number of times the Store has been
// re-entered to resolve dependencies and is only used for logging.
// s.mu must be held.
func (s *Store) get(name string, o options, depth int) (*Variable, error) {
	s.Log.WithFields(logrus.Fields{
		"variable": name,
		"depth":    depth,
	}).Debug(strings.Repeat("----", depth) + ">" + name)

	key := cacheKey{name: name, itime: o.timeIndex}
	if v, ok := s.cache[key]; ok {
		if o.assignHeights && !v.HasHeights() {
			h, err := s.enrich(key, v, o, depth)
			if err != nil {
				return nil, err
			}
			v = h
		}
		return s.withProjection(v, o), nil
	}

	if s.inFlight[key] {
		return nil, &CycleError{Chain: append(append([]string(nil), s.chain...), name)}
	}
	s.inFlight[key] = true
	s.chain = append(s.chain, name)
	defer func() {
		delete(s.inFlight, key)
		s.chain = s.chain[:len(s.chain)-1]
	}()

	var v *Variable
	if k, ok := LookupDerived(name); ok {
		dv, err := s.derive(k, o, depth)
		if err != nil {
			return nil, err
		}
		// Heights are always computed for the derived variable's own grid.
		v = dv.WithoutHeights()
	} else {
		canonical, ok := s.canonicalName(name)
		if !ok {
			s.Log.WithField("variable", name).Warn("wrfvar: variable was not found")
			return nil, &NotFoundError{Name: name}
		}
		rv, err := s.src.Read(canonical, o.timeIndex)
		if err != nil {
			return nil, fmt.Errorf("wrfvar: reading %s: %v", canonical, err)
		}
		v = s.withProjection(rv, o)
	}
	s.cache[key] = v

	if o.assignHeights && !v.HasHeights() {
		return s.enrich(key, v, o, depth)
	}
	return v, nil
}

// derive computes derived variable k, resolving its inputs through
// the cache without heights.
func (s *Store) derive(k DerivedKind, o options, depth int) (*Variable, error) {
	io := options{timeIndex: o.timeIndex, includeProjection: o.includeProjection}
	names := k.Inputs()
	in := make([]*Variable, len(names))
	for i, n := range names {
		v, err := s.get(n, io, depth+1)
		if err != nil {
			return nil, &DerivationError{Name: k.String(), Err: err}
		}
		in[i] = v
	}
	return k.Compute(in)
}

// enrich assigns heights to v and replaces the cache entry at key.
func (s *Store) enrich(key cacheKey, v *Variable, o options, depth int) (*Variable, error) {
	h, err := s.assignHeights(v, o, depth)
	if err != nil {
		return nil, err
	}
	s.cache[key] = h
	return h, nil
}

// canonicalName returns the name of the stored variable that name refers
// to. The stored variables are checked first, then the alias table, then
// the built-in aliases.
func (s *Store) canonicalName(name string) (string, bool) {
	if s.stored[name] {
		return name, true
	}
	if c, ok := s.aliases[name]; ok && s.stored[c] {
		return c, true
	}
	if c, ok := builtinAliases[name]; ok && s.stored[c] {
		return c, true
	}
	return "", false
}

// withProjection attaches the projection of the Source to v if requested,
// or returns a copy of v without it if not.
func (s *Store) withProjection(v *Variable, o options) *Variable {
	if !o.includeProjection {
		if v.Proj == nil {
			return v
		}
		o2 := v.clone()
		o2.Proj = nil
		return o2
	}
	if v.Proj != nil {
		return v
	}
	ps, ok := s.src.(ProjectionSource)
	if !ok {
		return v
	}
	p, err := ps.Projection()
	if err != nil {
		s.Log.WithField("variable", v.Name).Debugf("wrfvar: no projection information: %v", err)
		return v
	}
	o2 := v.clone()
	o2.Proj = p
	return o2
}
