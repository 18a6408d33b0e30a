package assessor

import (
	"net/http"
	"strings"

	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/webclient"
)

// SecurityHeaders are expected on every response.
var SecurityHeaders = []string{
	"Content-Security-Policy",
	"X-Frame-Options",
	"X-Content-Type-Options",
	"Referrer-Policy",
	"Permissions-Policy",
}

// HSTSHeader is only expected on responses to https requests.
const HSTSHeader = "Strict-Transport-Security"

// AuditHeaders returns one Header-Missing finding per absent or empty security
// header. A nil response yields nothing.
func AuditHeaders(resp *webclient.Response) []*model.Finding {
	if resp == nil {
		return nil
	}
	reqURL := ""
	if resp.Request != nil {
		reqURL = resp.Request.URL
	}

	var findings []*model.Finding
	for _, h := range SecurityHeaders {
		if !hasHeader(resp.Headers, h) {
			f := model.NewFinding(model.TypeHeaderMissing, reqURL, "No "+h+" header present")
			f.Header = h
			findings = append(findings, f)
		}
	}
	if strings.HasPrefix(strings.ToLower(reqURL), "https") && !hasHeader(resp.Headers, HSTSHeader) {
		f := model.NewFinding(model.TypeHeaderMissing, reqURL, "No HSTS header present on HTTPS response")
		f.Header = HSTSHeader
		findings = append(findings, f)
	}
	return findings
}

// hasHeader matches names case-insensitively, including maps that were not
// built through http.Header.Set.
func hasHeader(h http.Header, name string) bool {
	for k, vs := range h {
		if !strings.EqualFold(k, name) {
			continue
		}
		for _, v := range vs {
			if strings.TrimSpace(v) != "" {
				return true
			}
		}
	}
	return false
}
