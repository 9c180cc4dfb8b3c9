package catalog

import (
	"sort"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

const (
	MinClusterPrecision     = 1
	MaxClusterPrecision     = 12
	DefaultClusterPrecision = 4
)

// Cluster groups the events that share a geohash cell. Lat/Lng is the mean
// position of its members.
type Cluster struct {
	Geohash  string   `json:"geohash"`
	Count    int      `json:"count"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	EventIDs []string `json:"eventIds"`
}

// Clusters buckets located events by geohash prefix of the given length,
// clamped to [MinClusterPrecision, MaxClusterPrecision]. The result is
// sorted by geohash.
func (s *Store) Clusters(precision int) []Cluster {
	precision = max(MinClusterPrecision, min(precision, MaxClusterPrecision))

	byHash := make(map[string]*Cluster)

	s.mu.RLock()
	for _, e := range s.events {
		c, ok := e.Coordinates()
		if !ok {
			continue
		}
		hash := geohash.EncodeWithPrecision(c.Lat, c.Lng, precision)
		cl, ok := byHash[hash]
		if !ok {
			cl = &Cluster{Geohash: hash}
			byHash[hash] = cl
		}
		cl.Count++
		cl.Lat += c.Lat
		cl.Lng += c.Lng
		cl.EventIDs = append(cl.EventIDs, e.ID)
	}
	s.mu.RUnlock()

	out := make([]Cluster, 0, len(byHash))
	for _, cl := range byHash {
		cl.Lat /= float64(cl.Count)
		cl.Lng /= float64(cl.Count)
		out = append(out, *cl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Geohash < out[j].Geohash })
	return out
}
