package model

// Categorical tag names.
const (
	TagDropRate     = "drop_rate"
	TagPacketSize   = "packet_size"
	TagOptimization = "optimization"
	TagTestType     = "test_type"
	TagMessageSize  = "message_size"
	TagIsFirst      = "is_first"
	TagSample       = "sample"
	TagDataType     = "data_type"
	TagSection      = "section"
	TagTimestamp    = "timestamp"
)

// Metric names. Every duration metric is in CanonicalUnit.
const (
	MetricPacketsSent     = "packets_sent"
	MetricPacketsReceived = "packets_received"
	MetricDroppedPackets  = "dropped_packets"
	MetricPacketLoss      = "packet_loss"
	MetricBandwidth       = "bandwidth"
	MetricAvgRTT          = "avg_rtt"
	MetricFirstRTT        = "first_rtt"
	MetricMinRTT          = "min_rtt"
	MetricMaxRTT          = "max_rtt"
	MetricRTT             = "rtt"
	MetricBandwidthMBps   = "bandwidth_mbps"
	MetricMarshalTime     = "marshal_time"
	MetricUnmarshalTime   = "unmarshal_time"
)

// Optimization and test type tag values.
const (
	Optimized   = "optimized"
	Unoptimized = "unoptimized"
	Local       = "local"
	Remote      = "remote"
)

// Record is one parsed result row: named metrics plus categorical tags.
// Only fully valid records are ever built; a file that fails to parse
// yields no records at all.
type Record struct {
	Source  string
	Tags    map[string]Value
	Metrics map[string]Value
}

// NewRecord returns an empty record read from source.
func NewRecord(source string) Record {
	return Record{
		Source:  source,
		Tags:    make(map[string]Value),
		Metrics: make(map[string]Value),
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	c := NewRecord(r.Source)
	for k, v := range r.Tags {
		c.Tags[k] = v
	}
	for k, v := range r.Metrics {
		c.Metrics[k] = v
	}
	return c
}

// Lookup returns the named tag or metric, tags first.
func (r Record) Lookup(name string) (Value, bool) {
	if v, ok := r.Tags[name]; ok {
		return v, true
	}
	v, ok := r.Metrics[name]
	return v, ok
}
