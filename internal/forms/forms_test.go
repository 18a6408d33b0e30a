package forms_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/raysh454/vulnprobe/internal/assessor"
	"github.com/raysh454/vulnprobe/internal/forms"
	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/payloads"
	"github.com/raysh454/vulnprobe/internal/testutil"
	"github.com/raysh454/vulnprobe/internal/webclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Extract ───────────────────────────────────────────────────────────

func TestExtract_DefaultsAndResolution(t *testing.T) {
	t.Parallel()
	body := `
	<form><input name="a" value="1"><input type="submit"></form>
	<form action="/login" method="POST">
		<input name="user" value="bob">
		<textarea name="bio"></textarea>
		<select name="role"></select>
		<input name="user" value="alice">
	</form>
	<form action="search?x=1" method="">
		<input name="q">
	</form>`

	got := forms.Extract(body, "http://h/dir/page")
	require.Len(t, got, 3)

	assert.Equal(t, "http://h/dir/page", got[0].Action)
	assert.Equal(t, "get", got[0].Method)
	assert.Equal(t, map[string]string{"a": "1"}, got[0].Inputs)

	assert.Equal(t, "http://h/login", got[1].Action)
	assert.Equal(t, "post", got[1].Method)
	assert.Equal(t, map[string]string{"user": "alice", "bio": "", "role": ""}, got[1].Inputs)
	assert.Equal(t, []string{"user", "bio", "role"}, got[1].Names)

	assert.Equal(t, "http://h/dir/search?x=1", got[2].Action)
	assert.Equal(t, "get", got[2].Method)
}

func TestExtract_NoForms(t *testing.T) {
	t.Parallel()
	assert.Empty(t, forms.Extract("just text", "http://h/"))
	assert.Empty(t, forms.Extract("", "http://h/"))
}

// ─── Tester ────────────────────────────────────────────────────────────

func newTester(t *testing.T, wc webclient.WebClient) *forms.Tester {
	t.Helper()
	catalog := payloads.Default()
	sigs, err := assessor.CompileSignatures(catalog.Signatures)
	require.NoError(t, err)
	return forms.NewTester(wc, catalog, sigs, nil)
}

func TestTester_PostFormSQLErrorAndReflection(t *testing.T) {
	t.Parallel()
	wc := &testutil.StubWebClient{Handler: func(req *webclient.Request) *testutil.StubResponse {
		values, _ := url.ParseQuery(string(req.Body))
		user := values.Get("user")
		if strings.Contains(user, "'") {
			return &testutil.StubResponse{Body: "Unclosed quotation mark after the character string"}
		}
		return &testutil.StubResponse{Body: "hello " + user}
	}}
	form := forms.Form{
		Action: "http://h/login",
		Method: "post",
		Inputs: map[string]string{"user": "bob", "pw": "x"},
		Names:  []string{"user", "pw"},
	}

	findings := newTester(t, wc).TestForm(context.Background(), &form)

	var sqli, xss int
	for _, f := range findings {
		assert.Equal(t, "user", f.Param)
		assert.Equal(t, "http://h/login", f.URL)
		assert.Equal(t, "post", f.Method)
		assert.Equal(t, "x", f.Data["pw"])
		assert.True(t, strings.HasPrefix(f.Data["user"], "bob"))
		switch f.Type {
		case model.TypeSQLiForm:
			sqli++
			assert.Equal(t, "Unclosed quotation mark after the character string", f.Evidence)
		case model.TypeXSSForm:
			xss++
			assert.Equal(t, "payload reflected in response", f.Evidence)
		}
	}
	// Every SQL payload except the double-quote one carries a single quote.
	assert.Equal(t, 4, sqli)
	// Reflection only happens when no quote triggers the error page.
	assert.Equal(t, 3, xss)

	// 2 inputs x 9 payloads.
	assert.Equal(t, 18, wc.RequestCount())
	for _, r := range wc.Requests {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Headers.Get("Content-Type"))
	}
}

func TestTester_GetFormJoinsExistingQuery(t *testing.T) {
	t.Parallel()
	wc := &testutil.StubWebClient{}
	form := forms.Form{Action: "http://h/search?x=1", Method: "get", Inputs: map[string]string{"q": ""}, Names: []string{"q"}}

	_ = newTester(t, wc).TestForm(context.Background(), &form)

	urls := wc.RequestedURLs()
	require.NotEmpty(t, urls)
	for _, u := range urls {
		assert.True(t, strings.HasPrefix(u, "http://h/search?x=1&q="), u)
	}
}

func TestTester_TransportFailureYieldsNoFinding(t *testing.T) {
	t.Parallel()
	wc := &testutil.StubWebClient{Handler: func(req *webclient.Request) *testutil.StubResponse {
		return &testutil.StubResponse{Body: "SQL syntax error near MySQL"}
	}}
	form := forms.Form{Action: "http://h/f", Method: "get", Inputs: map[string]string{"a": ""}, Names: []string{"a"}}
	// Every request fails: fail the exact URLs the tester will build.
	wc.FailURLs = map[string]bool{}
	for _, p := range payloads.Default().SQL {
		wc.FailURLs["http://h/f?"+url.Values{"a": {p}}.Encode()] = true
	}

	findings := newTester(t, wc).TestForm(context.Background(), &form)
	for _, f := range findings {
		assert.NotEqual(t, model.TypeSQLiForm, f.Type)
	}
	assert.Equal(t, 9, wc.RequestCount())
}
