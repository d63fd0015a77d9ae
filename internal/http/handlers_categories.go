package http

import (
	"net/http"
	"strings"

	"assetboard/internal/core"
	applog "assetboard/internal/log"
)

type categoryRow struct {
	Key         core.Category2Key
	DisplayName string
	Order       int
	Aliases     string
	Badge       core.Badge
}

type categoriesData struct {
	page
	Category1 []string
	Cashflow  []string
	In        []categoryRow
	Out       []categoryRow
}

func categoryRows(flow core.Flow) []categoryRow {
	var out []categoryRow
	for _, d := range core.DefinitionsForFlow(flow) {
		out = append(out, categoryRow{
			Key:         d.Key,
			DisplayName: d.DisplayName,
			Order:       d.Order,
			Aliases:     strings.Join(d.Aliases, ", "),
			Badge:       core.BadgeFor(flow, d.Key),
		})
	}
	return out
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	data := categoriesData{
		page:      newPage("カテゴリ", "/admin/categories"),
		Category1: core.Category1Options(),
		Cashflow:  core.CashflowCategories(),
		In:        categoryRows(core.FlowIn),
		Out:       categoryRows(core.FlowOut),
	}
	s.render(w, r, http.StatusOK, "categories.html", data)
}

type category2JSON struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"display_name"`
	Flow        string   `json:"flow"`
	Order       int      `json:"order"`
	Aliases     []string `json:"aliases"`
	BadgeClass  string   `json:"badge_class"`
}

// handleCategory2List returns the definitions of one flow, or of both when
// flow is omitted.
func (s *Server) handleCategory2List(w http.ResponseWriter, r *http.Request) {
	var flows []core.Flow
	switch v := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("flow"))); v {
	case "":
		flows = []core.Flow{core.FlowIn, core.FlowOut}
	case string(core.FlowIn), string(core.FlowOut):
		flows = []core.Flow{core.Flow(v)}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "flow must be IN or OUT"})
		return
	}

	out := []category2JSON{}
	for _, flow := range flows {
		for _, d := range core.DefinitionsForFlow(flow) {
			out = append(out, category2JSON{
				Key:         string(d.Key),
				DisplayName: d.DisplayName,
				Flow:        string(d.Flow),
				Order:       d.Order,
				Aliases:     d.Aliases,
				BadgeClass:  core.BadgeFor(flow, d.Key).Class,
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type normalizeJSON struct {
	Text        string `json:"text"`
	Matched     bool   `json:"matched"`
	Key         string `json:"key,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

func (s *Server) handleCategory2Normalize(w http.ResponseWriter, r *http.Request) {
	text := sanitizeInput(r.URL.Query().Get("text"))
	resp := normalizeJSON{Text: text}
	if key, ok := core.Normalize(text); ok {
		resp.Matched = true
		resp.Key = string(key)
		resp.DisplayName = core.DisplayName(key)
	}
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Category2 normalized",
		applog.FieldOperation, applog.OpNormalize,
		applog.FieldCategory2, resp.Key,
		"matched", resp.Matched)
	writeJSON(w, http.StatusOK, resp)
}
