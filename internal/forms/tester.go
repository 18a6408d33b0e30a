package forms

import (
	"context"
	"net/http"
	"strings"

	"github.com/raysh454/vulnprobe/internal/assessor"
	"github.com/raysh454/vulnprobe/internal/logging"
	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/payloads"
	"github.com/raysh454/vulnprobe/internal/webclient"
)

// Tester submits every payload through every named input of a form.
type Tester struct {
	wc      webclient.WebClient
	catalog *payloads.Catalog
	sigs    *assessor.Signatures
	logger  logging.Logger
}

func NewTester(wc webclient.WebClient, catalog *payloads.Catalog, sigs *assessor.Signatures, logger logging.Logger) *Tester {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Tester{
		wc:      wc,
		catalog: catalog,
		sigs:    sigs,
		logger:  logger.With(logging.Field{Key: "component", Value: "form-tester"}),
	}
}

// TestForms runs TestForm over forms in order.
func (t *Tester) TestForms(ctx context.Context, forms []Form) []*model.Finding {
	var findings []*model.Finding
	for i := range forms {
		findings = append(findings, t.TestForm(ctx, &forms[i])...)
	}
	return findings
}

// TestForm probes each input with each SQL then XSS payload appended to its
// default value while the other inputs keep their defaults. A failed
// submission produces no finding and the matrix continues.
func (t *Tester) TestForm(ctx context.Context, f *Form) []*model.Finding {
	var findings []*model.Finding
	for _, name := range f.Names {
		for _, kind := range model.Kinds {
			for _, payload := range t.catalog.For(kind) {
				if ctx.Err() != nil {
					return findings
				}
				data := f.Values()
				data[name] = f.Inputs[name] + payload

				body, ok := t.submit(ctx, f, data)
				if !ok {
					continue
				}
				if finding := t.classify(kind, f, name, payload, body, data); finding != nil {
					findings = append(findings, finding)
				}
			}
		}
	}
	return findings
}

func (t *Tester) classify(kind model.Kind, f *Form, name, payload, body string, data map[string]string) *model.Finding {
	var finding *model.Finding
	switch kind {
	case model.KindSQL:
		if ok, evidence := t.sigs.Match(body); ok {
			finding = model.NewFinding(model.TypeSQLiForm, f.Action, evidence)
		}
	case model.KindXSS:
		if assessor.IsReflected(body, payload) {
			finding = model.NewFinding(model.TypeXSSForm, f.Action, "payload reflected in response")
		}
	}
	if finding == nil {
		return nil
	}
	finding.Param = name
	finding.Payload = payload
	finding.Method = f.Method
	finding.Data = data
	return finding
}

// submit sends data per the form method and returns the response body.
func (t *Tester) submit(ctx context.Context, f *Form, data map[string]string) (string, bool) {
	req := &webclient.Request{Headers: http.Header{}}
	encoded := encode(data)
	if f.Method == "post" {
		req.Method = http.MethodPost
		req.URL = f.Action
		req.Body = []byte(encoded)
		req.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req.Method = http.MethodGet
		sep := "?"
		if strings.Contains(f.Action, "?") {
			sep = "&"
		}
		req.URL = f.Action + sep + encoded
	}

	resp, err := t.wc.Do(ctx, req)
	if resp == nil {
		t.logger.Warn("form submission failed",
			logging.Field{Key: "action", Value: f.Action},
			logging.Field{Key: "method", Value: f.Method},
			logging.Field{Key: "error", Value: err})
		return "", false
	}
	return resp.Text(), true
}
