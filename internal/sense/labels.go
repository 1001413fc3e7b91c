// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package sense

// Genre is one entry of the catalog genre list. ModelKey is the label the
// trained layer uses for it; TV-only genres have none.
type Genre struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ModelKey string `json:"model_key,omitempty"`
}

// DefaultGenres is the combined movie and TV genre catalog. Movie genres
// come first so their model keys win for shared IDs.
var DefaultGenres = []Genre{
	{ID: 28, Name: "Action", ModelKey: "g5"},
	{ID: 12, Name: "Adventure", ModelKey: "g0"},
	{ID: 16, Name: "Animation", ModelKey: "g2"},
	{ID: 35, Name: "Comedy", ModelKey: "g6"},
	{ID: 80, Name: "Crime", ModelKey: "g10"},
	{ID: 99, Name: "Documentary", ModelKey: "g11"},
	{ID: 18, Name: "Drama", ModelKey: "g3"},
	{ID: 10751, Name: "Family", ModelKey: "g16"},
	{ID: 14, Name: "Fantasy", ModelKey: "g1"},
	{ID: 36, Name: "History", ModelKey: "g7"},
	{ID: 27, Name: "Horror", ModelKey: "g4"},
	{ID: 10402, Name: "Music", ModelKey: "g14"},
	{ID: 9648, Name: "Mystery", ModelKey: "g13"},
	{ID: 10749, Name: "Romance", ModelKey: "g15"},
	{ID: 878, Name: "Science Fiction", ModelKey: "g12"},
	{ID: 10770, Name: "TV Movie", ModelKey: "g18"},
	{ID: 53, Name: "Thriller", ModelKey: "g9"},
	{ID: 10752, Name: "War", ModelKey: "g17"},
	{ID: 37, Name: "Western", ModelKey: "g8"},
	{ID: 10759, Name: "Action & Adventure"},
	{ID: 10762, Name: "Kids"},
	{ID: 10763, Name: "News"},
	{ID: 10764, Name: "Reality"},
	{ID: 10765, Name: "Sci-Fi & Fantasy"},
	{ID: 10766, Name: "Soap"},
	{ID: 10767, Name: "Talk"},
	{ID: 10768, Name: "War & Politics"},
}

// LabelResolver maps caller-supplied genre labels onto model columns.
//
// A label is tried verbatim first, then as a display name translated to its
// model key, then as a model key translated to its display name. This lets
// layers trained on either vocabulary accept either form.
type LabelResolver struct {
	genres    []Genre
	nameToKey map[string]string
	keyToName map[string]string
}

// NewLabelResolver builds a resolver over the given catalog.
func NewLabelResolver(genres []Genre) *LabelResolver {
	r := &LabelResolver{
		genres:    genres,
		nameToKey: make(map[string]string, len(genres)),
		keyToName: make(map[string]string, len(genres)),
	}
	for _, g := range genres {
		if g.ModelKey == "" {
			continue
		}
		if _, dup := r.nameToKey[g.Name]; !dup {
			r.nameToKey[g.Name] = g.ModelKey
		}
		if _, dup := r.keyToName[g.ModelKey]; !dup {
			r.keyToName[g.ModelKey] = g.Name
		}
	}
	return r
}

// DefaultLabelResolver resolves against DefaultGenres.
func DefaultLabelResolver() *LabelResolver {
	return NewLabelResolver(DefaultGenres)
}

// columnIndex maps labels to their first column in m.
func columnIndex(m *FactorModel) map[string]int {
	idx := make(map[string]int, len(m.GenreLabels))
	for j, l := range m.GenreLabels {
		if _, seen := idx[l]; !seen {
			idx[l] = j
		}
	}
	return idx
}

// Resolve returns the column of every label that exists in m, in input
// order with duplicates preserved, plus the labels that matched nothing.
func (r *LabelResolver) Resolve(m *FactorModel, labels []string) (idxs []int, dropped []string) {
	cols := columnIndex(m)
	idxs = make([]int, 0, len(labels))
	for _, l := range labels {
		if j, ok := r.lookup(cols, l); ok {
			idxs = append(idxs, j)
		} else {
			dropped = append(dropped, l)
		}
	}
	return idxs, dropped
}

func (r *LabelResolver) lookup(cols map[string]int, label string) (int, bool) {
	if j, ok := cols[label]; ok {
		return j, true
	}
	if key, ok := r.nameToKey[label]; ok {
		if j, ok := cols[key]; ok {
			return j, true
		}
	}
	if name, ok := r.keyToName[label]; ok {
		if j, ok := cols[name]; ok {
			return j, true
		}
	}
	return 0, false
}

// DisplayName returns the human-readable name for a display name or model
// key. Labels outside the catalog are returned unchanged with ok=false.
func (r *LabelResolver) DisplayName(label string) (string, bool) {
	if _, ok := r.nameToKey[label]; ok {
		return label, true
	}
	if name, ok := r.keyToName[label]; ok {
		return name, true
	}
	for _, g := range r.genres {
		if g.Name == label {
			return label, true
		}
	}
	return label, false
}

// GenreAvailability is a catalog entry annotated with whether the current
// layer can fold it in.
type GenreAvailability struct {
	Genre
	Available bool `json:"available"`
}

// Catalog lists every known genre. With a nil model nothing is available.
func (r *LabelResolver) Catalog(m *FactorModel) []GenreAvailability {
	var cols map[string]int
	if m != nil {
		cols = columnIndex(m)
	}
	out := make([]GenreAvailability, 0, len(r.genres))
	for _, g := range r.genres {
		_, ok := r.lookup(cols, g.Name)
		out = append(out, GenreAvailability{Genre: g, Available: ok})
	}
	return out
}
