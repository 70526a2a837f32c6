package model

// Category describes one family of result files and the naming convention
// used to find them under a results directory.
type Category struct {
	Name     string            // e.g. "rtt"
	Dir      string            // subdirectory of the results root, "" for the root itself
	Patterns []string          // glob patterns relative to Dir
	Tags     map[string]string // static tags applied to every record
	// RateSize requires rate(N) and size(M) in the basename.
	RateSize bool
	// Required names a tag or metric every record must carry.
	Required []string
	// LogProfile selects the labeled-line variant for log-text files.
	LogProfile string
}

// Log-text profiles, one per producing harness.
const (
	ProfileUDP   = "udp"
	ProfileSuite = "suite"
)

// Run directory prefixes under the results root.
const (
	LocalRunPrefix  = "optimization_tests_"
	RemoteRunPrefix = "remote_tests_"
)

// AllCategories lists the known result categories in canonical order.
var AllCategories = []Category{
	{
		Name:       Optimized,
		Patterns:   []string{"optimized_rate*_size*.csv", "optimized_rate*_size*.log"},
		Tags:       map[string]string{TagOptimization: Optimized},
		RateSize:   true,
		LogProfile: ProfileUDP,
	},
	{
		Name:       Unoptimized,
		Patterns:   []string{"unoptimized_rate*_size*.csv", "unoptimized_rate*_size*.log"},
		Tags:       map[string]string{TagOptimization: Unoptimized},
		RateSize:   true,
		LogProfile: ProfileUDP,
	},
	{
		Name:       Local,
		Patterns:   []string{LocalRunPrefix + "*/*.csv", LocalRunPrefix + "*/*.log"},
		Tags:       map[string]string{TagTestType: Local},
		RateSize:   true,
		LogProfile: ProfileUDP,
	},
	{
		Name:       Remote,
		Patterns:   []string{RemoteRunPrefix + "*/*.csv", RemoteRunPrefix + "*/*.log"},
		Tags:       map[string]string{TagTestType: Remote},
		RateSize:   true,
		LogProfile: ProfileUDP,
	},
	{
		Name:     "rtt",
		Dir:      "rtt",
		Patterns: []string{"rtt_*.json"},
		Required: []string{TagMessageSize, MetricRTT},
	},
	{
		Name:     "bandwidth",
		Dir:      "bandwidth",
		Patterns: []string{"bandwidth_*.json"},
		Required: []string{TagMessageSize, MetricBandwidthMBps},
	},
	{
		Name:     "marshal",
		Dir:      "marshal",
		Patterns: []string{"marshal_*.json"},
		Required: []string{TagMessageSize, MetricMarshalTime},
	},
	{
		Name:       "suite-log",
		Patterns:   []string{"optimized_results.txt", "unoptimized_results.txt"},
		LogProfile: ProfileSuite,
	},
}

// CategoryNames returns just the names of all categories.
func CategoryNames() []string {
	names := make([]string, len(AllCategories))
	for i, c := range AllCategories {
		names[i] = c.Name
	}
	return names
}

// CategoryByName returns the Category for the given name, or ok=false.
func CategoryByName(name string) (Category, bool) {
	for _, c := range AllCategories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}
