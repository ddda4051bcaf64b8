package monitor

import "time"

// Sample is one immutable observation of the cache.
type Sample struct {
	Timestamp   time.Time         `json:"timestamp"`
	Memory      MemorySample      `json:"memory"`
	Remote      RemoteSample      `json:"remote"`
	Overall     OverallSample     `json:"overall"`
	Performance PerformanceSample `json:"performance"`
}

type MemorySample struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Size    int     `json:"size"`
	Tags    int     `json:"tags"`
}

// RemoteSample mixes manager counters with INFO fields. INFO fields are
// zero when the server could not be queried.
type RemoteSample struct {
	Hits             int64   `json:"hits"`
	Misses           int64   `json:"misses"`
	HitRate          float64 `json:"hit_rate"`
	Errors           int64   `json:"errors"`
	Connected        bool    `json:"connected"`
	UsedMemory       int64   `json:"used_memory"`
	ConnectedClients int64   `json:"connected_clients"`
	TotalCommands    int64   `json:"total_commands_processed"`
	Keys             int64   `json:"keys"`
}

type OverallSample struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Sets    int64   `json:"sets"`
	Deletes int64   `json:"deletes"`
}

type PerformanceSample struct {
	AvgResponseMs float64 `json:"avg_response_ms"`
	SlowQueries   int64   `json:"slow_queries"`
	ErrorRate     float64 `json:"error_rate"`
	Throughput    float64 `json:"throughput"`
	QueryCount    int64   `json:"query_count"`
	ErrorCount    int64   `json:"error_count"`
}

// AvgResponse is AvgResponseMs as a duration.
func (p PerformanceSample) AvgResponse() time.Duration {
	return time.Duration(p.AvgResponseMs * float64(time.Millisecond))
}
