package cache

import "sync/atomic"

// Stats is a point-in-time snapshot of manager counters.
type Stats struct {
	MemoryHits    int64   `json:"memory_hits"`
	MemoryMisses  int64   `json:"memory_misses"`
	RemoteHits    int64   `json:"remote_hits"`
	RemoteMisses  int64   `json:"remote_misses"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRate       float64 `json:"hit_rate"`
	Sets          int64   `json:"sets"`
	Deletes       int64   `json:"deletes"`
	Invalidations int64   `json:"invalidations"`
	RemoteErrors  int64   `json:"remote_errors"`
	MemorySize    int     `json:"memory_size"`
	MemoryTags    int     `json:"memory_tags"`
}

// MemoryHitRate is memory hits over memory lookups.
func (s Stats) MemoryHitRate() float64 {
	return ratio(s.MemoryHits, s.MemoryMisses)
}

// RemoteHitRate is remote hits over remote lookups.
func (s Stats) RemoteHitRate() float64 {
	return ratio(s.RemoteHits, s.RemoteMisses)
}

func ratio(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

type counters struct {
	memoryHits    atomic.Int64
	memoryMisses  atomic.Int64
	remoteHits    atomic.Int64
	remoteMisses  atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	deletes       atomic.Int64
	invalidations atomic.Int64
	remoteErrors  atomic.Int64
}

func (c *counters) snapshot() Stats {
	s := Stats{
		MemoryHits:    c.memoryHits.Load(),
		MemoryMisses:  c.memoryMisses.Load(),
		RemoteHits:    c.remoteHits.Load(),
		RemoteMisses:  c.remoteMisses.Load(),
		Misses:        c.misses.Load(),
		Sets:          c.sets.Load(),
		Deletes:       c.deletes.Load(),
		Invalidations: c.invalidations.Load(),
		RemoteErrors:  c.remoteErrors.Load(),
	}
	s.Hits = s.MemoryHits + s.RemoteHits
	s.HitRate = ratio(s.Hits, s.Misses)
	return s
}

func (c *counters) reset() {
	c.memoryHits.Store(0)
	c.memoryMisses.Store(0)
	c.remoteHits.Store(0)
	c.remoteMisses.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
	c.deletes.Store(0)
	c.invalidations.Store(0)
	c.remoteErrors.Store(0)
}
