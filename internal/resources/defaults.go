package resources

import mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"

// defaultString is one row of the defaulting table: if Get(spec) is empty,
// Default is substituted. Table-izing this keeps the defaulting rules in one
// place instead of scattered across the builders that read these fields.
type defaultString struct {
	Field   string
	Get     func(mdbv1.MongoClusterSpec) string
	Default string
}

var stringDefaults = []defaultString{
	{"cpu_limit", func(s mdbv1.MongoClusterSpec) string { return s.CPULimit }, "1"},
	{"memory_limit", func(s mdbv1.MongoClusterSpec) string { return s.MemoryLimit }, "2Gi"},
	{"wired_tiger_cache_size", func(s mdbv1.MongoClusterSpec) string { return s.WiredTigerCacheSize }, "256M"},
}

// WithDefaults returns a copy of spec with every empty resource-string field
// replaced by its table default. Replica count has no default: it is
// required and validated separately (internal/cluster.Validate).
func WithDefaults(spec mdbv1.MongoClusterSpec) mdbv1.MongoClusterSpec {
	out := spec
	for _, d := range stringDefaults {
		if d.Get(out) == "" {
			switch d.Field {
			case "cpu_limit":
				out.CPULimit = d.Default
			case "memory_limit":
				out.MemoryLimit = d.Default
			case "wired_tiger_cache_size":
				out.WiredTigerCacheSize = d.Default
			}
		}
	}
	return out
}
