// Package assessor turns probe responses into findings: header hygiene, SQL
// error signatures, payload reflection and length anomalies.
package assessor

import (
	"fmt"
	"unicode/utf8"

	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/payloads"
)

// Baseline is the unmutated page body captured before probing.
type Baseline struct {
	Body string
	// Len counts characters, not bytes.
	Len int
}

// NewBaseline records body and its length.
func NewBaseline(body string) Baseline {
	return Baseline{Body: body, Len: utf8.RuneCountInString(body)}
}

// Classifier applies the detection precedence to one probe response:
// SQL signature, then reflection, then length anomaly.
type Classifier struct {
	sigs *Signatures
	cfg  Config
}

func NewClassifier(cfg Config, catalog *payloads.Catalog) (*Classifier, error) {
	if catalog == nil {
		catalog = payloads.Default()
	}
	sigs, err := CompileSignatures(catalog.Signatures)
	if err != nil {
		return nil, err
	}
	if cfg.AnomalyThreshold <= 0 {
		cfg.AnomalyThreshold = DefaultAnomalyThreshold
	}
	return &Classifier{sigs: sigs, cfg: cfg}, nil
}

// Signatures exposes the compiled SQL error signatures.
func (c *Classifier) Signatures() *Signatures {
	return c.sigs
}

// Classify inspects the probe body for tc. It returns nil when nothing is
// detected. SQL cases yield SQLi on a signature match and SQLi-suspected on a
// length anomaly; XSS cases yield XSS-reflected.
func (c *Classifier) Classify(tc model.TestCase, body string, base Baseline) *model.Finding {
	switch tc.Kind {
	case model.KindSQL:
		if ok, evidence := c.sigs.Match(body); ok {
			return c.finding(model.TypeSQLi, tc, evidence)
		}
		n := utf8.RuneCountInString(body)
		if !IsLengthAnomaly(base.Len, n, c.cfg.AnomalyThreshold) {
			return nil
		}
		if c.cfg.SimilarityThreshold > 0 && Similarity(base.Body, body) >= c.cfg.SimilarityThreshold {
			return nil
		}
		return c.finding(model.TypeSQLiSuspected, tc,
			fmt.Sprintf("response length changed from %d to %d", base.Len, n))
	case model.KindXSS:
		if IsReflected(body, tc.Payload) {
			return c.finding(model.TypeXSSReflected, tc, "payload reflected in response body")
		}
	}
	return nil
}

func (c *Classifier) finding(t model.FindingType, tc model.TestCase, evidence string) *model.Finding {
	f := model.NewFinding(t, tc.URL, evidence)
	f.Param = tc.Param
	f.Payload = tc.Payload
	return f
}
