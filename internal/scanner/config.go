package scanner

import (
	"github.com/raysh454/vulnprobe/internal/assessor"
	"github.com/raysh454/vulnprobe/internal/enumerator"
	"github.com/raysh454/vulnprobe/internal/injector"
)

const (
	DefaultWorkers        = 8
	DefaultSyntheticParam = "q"
)

// Config controls a scan.
type Config struct {
	// MaxDepth is the crawl depth; non-positive selects the default of 2.
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
	MaxPages int `yaml:"max_pages" json:"max_pages"`
	Workers  int `yaml:"workers" json:"workers"`

	// SyntheticParam is probed on pages that have no query parameters.
	SyntheticParam string `yaml:"synthetic_param" json:"synthetic_param"`

	// Strategy is "append" (default) or "replace".
	Strategy injector.Strategy `yaml:"strategy" json:"strategy"`

	AnomalyThreshold    int     `yaml:"anomaly_threshold" json:"anomaly_threshold"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
}

func DefaultConfig() Config {
	return Config{
		MaxDepth:         enumerator.DefaultMaxDepth,
		MaxPages:         enumerator.DefaultMaxPages,
		Workers:          DefaultWorkers,
		SyntheticParam:   DefaultSyntheticParam,
		Strategy:         injector.Append,
		AnomalyThreshold: assessor.DefaultAnomalyThreshold,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxDepth <= 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.SyntheticParam == "" {
		c.SyntheticParam = d.SyntheticParam
	}
	if c.AnomalyThreshold <= 0 {
		c.AnomalyThreshold = d.AnomalyThreshold
	}
	return c
}

func (c Config) assessorConfig() assessor.Config {
	return assessor.Config{
		AnomalyThreshold:    c.AnomalyThreshold,
		SimilarityThreshold: c.SimilarityThreshold,
	}
}
