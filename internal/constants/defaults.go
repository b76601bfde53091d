package constants

// Pipeline defaults. They match the values the grouping workflow has always
// used so that results stay comparable across versions.
const (
	// DefaultDistanceThreshold is the Mash distance at or below which two
	// assemblies end up in the same group. 0.001 corresponds to roughly
	// 99.9% average nucleotide identity.
	DefaultDistanceThreshold = 0.001

	// DefaultThreads is the number of concurrent oracle invocations
	DefaultThreads = 10

	// DefaultChunkSize is the number of pairs per batch; each batch is
	// persisted in a single transaction
	DefaultChunkSize = 1000

	// DefaultOracleTimeoutSeconds bounds one external comparison.
	// 0 disables the per-call deadline.
	DefaultOracleTimeoutSeconds = 600

	// DefaultMashBinary is looked up on PATH
	DefaultMashBinary = "mash"

	// DefaultStoreBackend persists results across process restarts
	DefaultStoreBackend = "sqlite"

	// DefaultMissingPolicy keeps the historical behaviour of treating a
	// failed comparison as distance 0
	DefaultMissingPolicy = "zero"

	// GroupedFileSuffix is appended to the folder name for the output file
	GroupedFileSuffix = "_grouped.txt"

	// ConfigFileName is the dedicated configuration file
	ConfigFileName = ".asmcluster.toml"

	// EnvPrefix prefixes environment overrides, e.g. ASMCLUSTER_COMPUTE_THREADS
	EnvPrefix = "ASMCLUSTER"
)
