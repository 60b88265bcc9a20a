// Package submission reads edit form submissions. Field values are exposed
// sanitised (Post) or untouched (PostRaw); list fields submitted as
// "name[]" are addressed by their bare name.
package submission

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Form protocol keys.
const (
	KeyFormSubmit   = "FORM_SUBMIT"
	KeyFormFields   = "FORM_FIELDS"
	KeyRequestToken = "REQUEST_TOKEN"
	KeySubmitType   = "SUBMIT_TYPE"
)

// Recognised values of the "act" query parameter.
const (
	ActEdit        = "edit"
	ActEditAll     = "editAll"
	ActOverrideAll = "overrideAll"
	ActSelect      = "select"
	ActMove        = "move"
)

// SubmitAuto marks background submissions triggered by submitOnChange.
const SubmitAuto = "auto"

const maxMemory = 32 << 20

// Request is one submission plus the query string it was sent with.
type Request struct {
	form  url.Values
	query url.Values
}

// New wraps already parsed form and query values.
func New(form, query url.Values) *Request {
	return &Request{form: normalise(form), query: cloneValues(query)}
}

// FromHTTP parses the body of r. Multipart bodies are accepted.
func FromHTTP(r *http.Request) (*Request, error) {
	if r == nil {
		return New(nil, nil), nil
	}
	err := r.ParseMultipartForm(maxMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("submission: parse form: %w", err)
	}
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("submission: parse form: %w", err)
		}
	}
	return New(r.PostForm, r.URL.Query()), nil
}

// PostRaw returns the submitted values of name as sent.
func (r *Request) PostRaw(name string) ([]string, bool) {
	if r == nil {
		return nil, false
	}
	values, ok := r.form[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(values))
	copy(out, values)
	return out, true
}

// Post returns the submitted values of name with markup sanitised.
func (r *Request) Post(name string) ([]string, bool) {
	values, ok := r.PostRaw(name)
	if !ok {
		return nil, false
	}
	policy := inputSanitizer()
	for i, value := range values {
		values[i] = policy.Sanitize(value)
	}
	return values, true
}

// Value returns the last sanitised value of name.
func (r *Request) Value(name string) string {
	values, ok := r.Post(name)
	if !ok || len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

// Has reports whether name was submitted.
func (r *Request) Has(name string) bool {
	_, ok := r.PostRaw(name)
	return ok
}

// Query returns a query string parameter.
func (r *Request) Query(name string) string {
	if r == nil {
		return ""
	}
	return r.query.Get(name)
}

// QueryValues returns a copy of the query string.
func (r *Request) QueryValues() url.Values {
	if r == nil {
		return url.Values{}
	}
	return cloneValues(r.query)
}

// Action returns the "act" query parameter.
func (r *Request) Action() string {
	return r.Query("act")
}

// FormSubmit returns the submitted form id, the table name for edit forms.
func (r *Request) FormSubmit() string {
	return r.Value(KeyFormSubmit)
}

// SubmitType returns SUBMIT_TYPE ("auto" for background submissions).
func (r *Request) SubmitType() string {
	return r.Value(KeySubmitType)
}

// RequestToken returns the submitted request token.
func (r *Request) RequestToken() string {
	return r.Value(KeyRequestToken)
}

// FormFields returns the palette field list submitted under key.
func (r *Request) FormFields(key string) []string {
	values, _ := r.Post(key)
	return values
}

// FormFieldsKey is the field list key for a record: FORM_FIELDS, or
// FORM_FIELDS_<suffix> in batch edit mode.
func FormFieldsKey(batch bool, suffix string) string {
	if batch {
		return KeyFormFields + "_" + suffix
	}
	return KeyFormFields
}

func normalise(form url.Values) url.Values {
	out := make(url.Values, len(form))
	for key, values := range form {
		name := strings.TrimSuffix(key, "[]")
		out[name] = append(out[name], values...)
	}
	return out
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, list := range values {
		out[key] = append([]string(nil), list...)
	}
	return out
}

var (
	inputPolicyOnce sync.Once
	inputPolicy     *bluemonday.Policy
)

func inputSanitizer() *bluemonday.Policy {
	inputPolicyOnce.Do(func() {
		inputPolicy = bluemonday.UGCPolicy()
	})
	return inputPolicy
}
