// Package forms finds HTML forms on a page and probes their inputs.
package forms

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/vulnprobe/internal/utils"
)

// Form is a submittable form with its inputs' default values.
type Form struct {
	// Action is the absolute submission URL.
	Action string
	// Method is "get" or "post".
	Method string
	Inputs map[string]string
	// Names lists input names in document order, each once.
	Names []string
}

// Values returns a copy of the default input values.
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.Inputs))
	for k, v := range f.Inputs {
		out[k] = v
	}
	return out
}

// Extract returns the forms in body. Missing or empty actions submit to
// pageURL; relative actions resolve against it. Unparseable markup yields no
// forms.
func Extract(body, pageURL string) []Form {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var forms []Form
	doc.Find("form").Each(func(i int, form *goquery.Selection) {
		action := getAttr(form, "action")
		if action == "" {
			action = pageURL
		}
		resolved, err := utils.Resolve(pageURL, action)
		if err != nil {
			return
		}

		method := strings.ToLower(getAttr(form, "method"))
		if method == "" {
			method = "get"
		}

		f := Form{Action: resolved, Method: method, Inputs: map[string]string{}}
		form.Find("input, textarea, select").Each(func(j int, input *goquery.Selection) {
			name := getAttr(input, "name")
			if name == "" {
				return
			}
			if _, dup := f.Inputs[name]; !dup {
				f.Names = append(f.Names, name)
			}
			f.Inputs[name] = rawAttr(input, "value")
		})
		forms = append(forms, f)
	})
	return forms
}

// encode renders data as an application/x-www-form-urlencoded string.
func encode(data map[string]string) string {
	values := make(url.Values, len(data))
	for k, v := range data {
		values.Set(k, v)
	}
	return values.Encode()
}

// getAttr safely retrieves a trimmed attribute value from a goquery selection.
func getAttr(sel *goquery.Selection, attrName string) string {
	val, exists := sel.Attr(attrName)
	if exists {
		return strings.TrimSpace(val)
	}
	return ""
}

// rawAttr is getAttr without trimming; default values are submitted verbatim.
func rawAttr(sel *goquery.Selection, attrName string) string {
	val, _ := sel.Attr(attrName)
	return val
}
