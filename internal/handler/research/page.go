package research

import (
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/zhouzirui/research-desk/backend/internal/model/research"
	"github.com/zhouzirui/research-desk/backend/internal/render"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Research Assistant</title>
</head>
<body>
<h1>🧑‍🔬 Research Assistant</h1>
{{if .Busy}}<p class="busy">A research run is in progress for this session. Please wait for it to finish.</p>{{end}}
<form method="post" action="/research" id="research_form">
  <label>Enter Research Topic <input type="text" name="topic" value="{{.Topic}}"></label>
  <label>Number of Analysts <input type="number" name="max_analysts" min="{{.Min}}" max="{{.Max}}" value="{{.MaxAnalysts}}" required></label>
  <label>Initial Human Input / Feedback <textarea name="feedback">{{.Feedback}}</textarea></label>
  <button type="submit"{{if .Busy}} disabled{{end}}>Run Research</button>
</form>
{{if .Error}}<div class="error" role="alert">Research run failed: {{.Error}}</div>{{end}}
{{with .View}}
{{if .HasAnalysts}}
<section class="analysts">
<h2>👩‍🔬 Analysts</h2>
{{range .Analysts}}
<div class="analyst">
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Affiliation:</strong> {{.Affiliation}}</p>
<p><strong>Role:</strong> {{.Role}}</p>
<p>{{.Description}}</p>
</div>
<hr>
{{end}}
</section>
{{end}}
{{if .HasReport}}
<section class="report">
<h2>📄 Final Report</h2>
{{.ReportHTML}}
</section>
{{end}}
{{end}}
</body>
</html>
`))

type pageData struct {
	Topic       string
	MaxAnalysts string
	Feedback    string
	Min, Max    int
	Busy        bool
	Error       string
	View        *render.View
}

func newPageData(sub Submission) pageData {
	input := sub.Input()
	count := strconv.Itoa(input.MaxAnalysts)
	return pageData{
		Topic:       input.Topic,
		MaxAnalysts: count,
		Feedback:    input.HumanAnalystFeedback,
		Min:         research.MinAnalysts,
		Max:         research.MaxAnalysts,
	}
}

func defaultSubmission() Submission {
	in := research.DefaultInput()
	n := in.MaxAnalysts
	return Submission{Topic: in.Topic, MaxAnalysts: &n, Feedback: in.HumanAnalystFeedback}
}

// handleFormPage 渲染研究表单
func (h *Handler) handleFormPage(w http.ResponseWriter, r *http.Request) {
	data := newPageData(defaultSubmission())
	data.Busy = h.sessions.Busy(h.sessions.ID(r.Context()))
	h.renderPage(w, http.StatusOK, data)
}

// handleFormSubmit 处理表单提交并渲染结果
func (h *Handler) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	sub, err := parseForm(r)
	if err != nil {
		data := newPageData(sub)
		data.MaxAnalysts = r.PostFormValue("max_analysts")
		data.Error = err.Error()
		h.renderPage(w, http.StatusBadRequest, data)
		return
	}

	data := newPageData(sub)
	sessionID := h.sessions.ID(r.Context())
	outcome, err := h.submit(r.Context(), sessionID, sub.Input())
	if err != nil {
		status, reason := classify(err)
		log.Printf("[research] session=%s form run failed (%s): %v", sessionID, reason, err)
		data.Error = err.Error()
		data.Busy = reason == "busy"
		h.renderPage(w, status, data)
		return
	}

	data.View = &outcome.view
	h.renderPage(w, http.StatusOK, data)
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Printf("failed to render page: %v", err)
	}
}
