// Package injector expands a URL's query parameters into probe test cases.
package injector

import (
	"fmt"
	"iter"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/payloads"
	"github.com/raysh454/vulnprobe/internal/utils"
)

// Strategy decides how a payload meets the parameter's current value.
type Strategy int

const (
	// Append concatenates the payload after the current value.
	Append Strategy = iota
	// Replace discards the current value.
	Replace
)

func (s Strategy) String() string {
	if s == Replace {
		return "replace"
	}
	return "append"
}

// ParseStrategy accepts "append" or "replace"; empty selects Append.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "append":
		return Append, nil
	case "replace":
		return Replace, nil
	default:
		return Append, fmt.Errorf("unknown injection strategy %q (want append|replace)", name)
	}
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Strategy) MarshalYAML() (any, error) {
	return s.String(), nil
}

func (s *Strategy) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(name))
}

func (s Strategy) apply(current, payload string) string {
	if s == Replace {
		return payload
	}
	return current + payload
}

// Suite is a finite, restartable sequence of test cases. Iterating it twice
// yields the same cases in the same order.
type Suite struct {
	target   *utils.TargetURL
	params   utils.Params
	names    []string
	catalog  *payloads.Catalog
	strategy Strategy
}

// NewSuite builds the parameter x payload matrix for target. params may differ
// from target.Params, as with a synthesized probe parameter.
func NewSuite(target *utils.TargetURL, params utils.Params, catalog *payloads.Catalog, strategy Strategy) *Suite {
	if catalog == nil {
		catalog = payloads.Default()
	}
	params = params.Clone()
	return &Suite{
		target:   target,
		params:   params,
		names:    params.Names(),
		catalog:  catalog,
		strategy: strategy,
	}
}

// Len is the number of cases the suite yields.
func (s *Suite) Len() int {
	return len(s.names) * s.catalog.Len()
}

// All yields every SQL case (parameter-major, payload-minor) followed by every
// XSS case. Each case mutates exactly one parameter.
func (s *Suite) All() iter.Seq[model.TestCase] {
	return func(yield func(model.TestCase) bool) {
		origin := s.target.Build(s.params)
		for _, kind := range model.Kinds {
			for _, name := range s.names {
				for _, payload := range s.catalog.For(kind) {
					mutated := s.params.Clone()
					mutated[name] = s.strategy.apply(s.params[name], payload)
					tc := model.TestCase{
						Kind:    kind,
						Param:   name,
						Payload: payload,
						URL:     s.target.Build(mutated),
						Origin:  origin,
					}
					if !yield(tc) {
						return
					}
				}
			}
		}
	}
}

// Collect materializes the suite.
func (s *Suite) Collect() []model.TestCase {
	out := make([]model.TestCase, 0, s.Len())
	for tc := range s.All() {
		out = append(out, tc)
	}
	return out
}
