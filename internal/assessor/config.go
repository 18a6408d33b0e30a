package assessor

// DefaultAnomalyThreshold is the body length delta, in characters, above which a
// SQL probe is reported as suspected.
const DefaultAnomalyThreshold = 200

// Config holds runtime settings for the classifier.
type Config struct {
	// AnomalyThreshold is the length delta that marks a SQL probe suspicious.
	AnomalyThreshold int `yaml:"anomaly_threshold" json:"anomaly_threshold"`

	// SimilarityThreshold, when positive, additionally requires a suspected
	// probe body to be less similar than this ratio to the baseline.
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
}

func DefaultConfig() Config {
	return Config{AnomalyThreshold: DefaultAnomalyThreshold}
}
