package httpapi

import (
	"net/http"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/dictionary"
)

// GET /v1/dictionary/templates?type=
func (s *Server) getTemplatesDictionary(w http.ResponseWriter, r *http.Request) {
	var t *budget.CategoryType
	if ts := r.URL.Query().Get("type"); ts != "" {
		tt := budget.CategoryType(ts)
		t = &tt
	}
	type templateItem struct {
		Type      budget.CategoryType           `json:"type"`
		Templates []dictionary.CategoryTemplate `json:"templates"`
	}
	out := struct {
		Items []templateItem `json:"items"`
	}{Items: []templateItem{}}
	for _, typ := range dictionary.Types() {
		if t != nil && *t != typ {
			continue
		}
		typ := typ
		out.Items = append(out.Items, templateItem{Type: typ, Templates: dictionary.TemplatesFor(&typ)})
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/dictionary/priorities
func (s *Server) getPrioritiesDictionary(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, struct {
		Items []dictionary.PriorityDef `json:"items"`
	}{Items: dictionary.Priorities()})
}
