package dashboard

import (
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

// Renderer implements echo.Renderer over the dashboard templates.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	t := template.New("dashboard")
	for name, src := range map[string]string{
		"layout":     tmplLayout,
		"forms":      tmplForms,
		"individual": tmplIndividual,
		"population": tmplPopulation,
		"flow":       tmplFlow,
	} {
		if _, err := t.New(name).Parse(src); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
	}
	return &Renderer{tmpl: t}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

const tmplLayout = `
{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Clinical Data Platform</title>
<link rel="stylesheet" href="/static/dashboard.css">
</head>
<body data-processing="{{.Processing}}">
<header class="main-header">
  <h1>🏥 Clinical Data Platform</h1>
  <p class="tagline">AI-Powered Patient Data Mining &amp; Population Health Analytics</p>
  <p class="subtag">Powered by Snowflake Data Cloud &amp; Multi-Agent AI Orchestration</p>
</header>
<nav class="tabs">
  <a href="/?tab=individual" class="tab{{if eq .ActiveTab "individual"}} active{{end}}">🔍 Individual Patient Data</a>
  <a href="/?tab=population" class="tab{{if eq .ActiveTab "population"}} active{{end}}">🌐 Population Health Analytics</a>
  <a href="/?tab=flow" class="tab{{if eq .ActiveTab "flow"}} active{{end}}">⚡ Multi-Agent Process Flow</a>
</nav>
{{if .Warning}}<div class="flash flash-warning">{{.Warning}}</div>{{end}}
{{if .Notice}}<div class="flash flash-success">{{.Notice}}</div>{{end}}
<div id="progress" class="progress{{if not .Processing}} hidden{{end}}">
  <div class="progress-status" id="progress-status">🔄 Processing...</div>
  <div class="progress-track"><div class="progress-bar" id="progress-bar"></div></div>
</div>
<main>
{{if eq .ActiveTab "individual"}}{{template "individual-tab" .}}{{end}}
{{if eq .ActiveTab "population"}}{{template "population-tab" .}}{{end}}
{{if eq .ActiveTab "flow"}}{{template "flow-tab" .}}{{end}}
</main>
<script src="/static/dashboard.js"></script>
</body>
</html>{{end}}
`

const tmplForms = `
{{define "query-form"}}
<form class="query-form" method="post" action="/ui/queries">
  <input type="hidden" name="query_type" value="{{.QueryType}}">
  <input type="hidden" name="tab" value="{{.Tab}}">
  <label for="sample-{{.QueryType}}">💡 {{.SampleLabel}}</label>
  <select id="sample-{{.QueryType}}" name="sample" class="sample-select" data-target="text-{{.QueryType}}">
    <option>{{.Placeholder}}</option>
    {{range .Samples}}<option>{{.}}</option>{{end}}
  </select>
  <label for="text-{{.QueryType}}">🎯 {{.TextLabel}}</label>
  <textarea id="text-{{.QueryType}}" name="query_text" rows="5" placeholder="{{.TextPlaceholder}}">{{.Text}}</textarea>
  <div class="actions">
    <button type="submit" class="primary"{{if .Disabled}} disabled{{end}}>{{.SubmitLabel}}</button>
  </div>
</form>
<form method="post" action="/ui/clear">
  <input type="hidden" name="tab" value="{{.Tab}}">
  <button type="submit">🗑️ Clear Results</button>
</form>
{{end}}
`

const tmplIndividual = `
{{define "individual-tab"}}
<h2>🔍 Individual Patient Data Extraction</h2>
<div class="columns">
  <section class="col-input">
    <h3>📝 Query Input</h3>
    {{template "query-form" .IndividualForm}}
  </section>
  <section class="col-output">
    <h3>📋 Extracted Clinical Data</h3>
    {{if .Processing}}
      <div class="flash flash-info">🔄 Processing patient data extraction...</div>
    {{else if .Individual}}
      {{template "individual-result" .Individual}}
    {{else}}
      <div class="empty">
        <h3>💡 Ready to Extract Patient Data</h3>
        <p>Enter a patient data query to extract comprehensive clinical information from EHR systems</p>
        <p><small>Powered by AI-driven clinical data extraction with real-time processing</small></p>
      </div>
    {{end}}
  </section>
</div>
{{end}}

{{define "individual-result"}}
<div class="metric-card">
  <h3>🏥 {{.Title}}</h3>
  <p>{{.Subtitle}}</p>
  <small>📅 Last Updated: {{.LastUpdated}}</small>
</div>
<h4>🚨 Clinical Alerts</h4>
{{range .Alerts}}
<div class="{{.Class}}">{{.Icon}} <strong>{{.Title}}</strong><br><small>{{.Detail}}</small></div>
{{end}}
<h4>📋 Extracted Data Categories</h4>
<div class="category-tabs">
{{range $i, $tab := .Tabs}}
  <details class="category"{{if eq $i 0}} open{{end}}>
    <summary>{{$tab.Name}}</summary>
    <dl>{{range $tab.Fields}}<dt>{{.Name}}:</dt><dd>{{.Value}}</dd>{{end}}</dl>
  </details>
{{end}}
</div>
<h4>📊 Data Quality Assessment</h4>
<div class="tiles">{{range .Quality}}<div class="tile"><span class="tile-label">{{.Label}}</span><span class="tile-value">{{.Value}}</span></div>{{end}}</div>
{{end}}
`

const tmplPopulation = `
{{define "population-tab"}}
<h2>🌐 Population Health Analytics</h2>
<div class="columns">
  <section class="col-input">
    <h3>🎯 Population Query</h3>
    {{template "query-form" .PopulationForm}}
  </section>
  <section class="col-output">
    <h3>📊 Population Health Results</h3>
    {{if .Processing}}
      <div class="flash flash-info">🔄 Processing population health analytics...</div>
    {{else if .Population}}
      {{template "population-result" .}}
    {{else}}
      <div class="empty">
        <h3>🌐 Ready for Population Analysis</h3>
        <p>Enter population criteria to analyze patient cohorts and identify care opportunities</p>
        <p><small>Results can be exported directly to CareHealth patient management system</small></p>
      </div>
    {{end}}
  </section>
</div>
{{end}}

{{define "population-result"}}
{{with .Population}}
<div class="metric-card">
  <h3>🌐 {{.Title}}</h3>
  <p><strong>{{.Summary}}</strong></p>
  <small>📅 Query executed: {{.Executed}}</small>
</div>
<h4>📈 Population Metrics</h4>
<div class="tiles">{{range .Metrics}}<div class="tile"><span class="tile-label">{{.Label}}</span><span class="tile-value">{{.Value}}</span>{{if .Delta}}<span class="tile-delta">↑ {{.Delta}}</span>{{end}}</div>{{end}}</div>
<h4>🎯 Risk Stratification</h4>
{{end}}
<img class="chart" src="/charts/risk.svg?v={{.ChartVersion}}" alt="Patient Risk Distribution">
{{with .Population}}
<h4>💡 Care Opportunities</h4>
{{range .Opportunities}}
<div class="{{.Class}}">{{.Icon}} <strong>{{.Title}}</strong><br>{{.Body}}<br><small>{{.Detail}}</small></div>
{{end}}
<h4>👥 Patient List Preview</h4>
<table class="patients">
  <thead><tr><th>ID</th><th>Name</th><th>Age</th><th>HbA1c</th><th>Last Visit</th><th>Priority</th><th>Provider</th></tr></thead>
  <tbody>
  {{range .Patients}}
    <tr><td>{{.ID}}</td><td>{{.Name}}</td><td>{{.Age}}</td><td class="hba1c{{if .HbA1cTier}} hba1c-{{.HbA1cTier}}{{end}}">{{.HbA1c}}</td><td>{{.LastVisit}}</td><td>{{.Priority}}</td><td>{{.Provider}}</td></tr>
  {{end}}
  </tbody>
</table>
<h4>🗺️ Geographic Distribution</h4>
{{end}}
<div class="columns">
  <img class="chart" src="/charts/regions-pie.svg?v={{.ChartVersion}}" alt="Patient Distribution by Region">
  <img class="chart" src="/charts/regions-bar.svg?v={{.ChartVersion}}" alt="Patient Count by Region">
</div>
{{with .Population.Export}}
<div class="flash flash-success">✅ Ready for CareHealth Export</div>
<div class="columns">
  <div class="flash flash-info">
    📋 <strong>List Name:</strong> {{.ListName}}<br>
    👥 <strong>Patient Count:</strong> {{.PatientCount}}<br>
    ⏱️ <strong>Estimated Sync Time:</strong> {{.SyncTime}}
  </div>
  <form method="post" action="/ui/export" class="export-form">
    <button type="submit" class="primary">📤 Export to CareHealth</button>
  </form>
</div>
{{end}}
{{end}}
`

const tmplFlow = `
{{define "flow-tab"}}
<h2>⚡ Multi-Agent Process Flow</h2>
{{if .Flow.Completed}}
<div class="flash flash-success">✅ Multi-Agent Process Flow Completed</div>
{{range .Flow.Steps}}
<details class="process-step"{{if .Expanded}} open{{end}}>
  <summary>{{.Heading}}</summary>
  <p><strong>🎯 Description:</strong> {{.Description}}</p>
  {{if .DataPoints}}<p><strong>📊 Data Points Processed:</strong></p><ul>{{range .DataPoints}}<li>{{.}}</li>{{end}}</ul>{{end}}
  {{if .Command}}<p><strong>🔧 SQL/Process Generated:</strong></p><pre><code{{if .Language}} class="language-{{.Language}}"{{end}}>{{.Command}}</code></pre>{{end}}
</details>
{{end}}
<h3>⚡ Processing Summary</h3>
<div class="tiles">{{range .Flow.Summary}}<div class="tile"><span class="tile-label">{{.Label}}</span><span class="tile-value">{{.Value}}</span></div>{{end}}</div>
{{else}}
<div class="flash flash-info">🔄 Process flow will appear here during query execution</div>
<div class="overview">
  <h3>🤖 How the Multi-Agent System Works:</h3>
  <h4>🔍 Individual Patient Data Extraction:</h4>
  <ol>
    <li><strong>Query Analysis</strong> - LLM parses clinical data requirements</li>
    <li><strong>Schema Mapping</strong> - Maps clinical concepts to database tables</li>
    <li><strong>Data Queries</strong> - Executes specific extraction queries</li>
    <li><strong>Medical History</strong> - Retrieves historical patient data</li>
    <li><strong>Lab Results Mining</strong> - Extracts recent laboratory values</li>
    <li><strong>Data Synthesis</strong> - Combines and formats results</li>
  </ol>
  <h4>🌐 Population Health Analytics:</h4>
  <ol>
    <li><strong>NLP Processing</strong> - Interprets population health criteria</li>
    <li><strong>SQL Generation</strong> - Creates complex population queries</li>
    <li><strong>Cohort Retrieval</strong> - Executes across large datasets (125K+ records)</li>
    <li><strong>Statistical Analysis</strong> - Calculates population metrics and risk stratification</li>
    <li><strong>CareHealth Integration</strong> - Formats patient lists for export</li>
  </ol>
  <h4>⚡ Powered by Snowflake:</h4>
  <ul>
    <li><strong>Real-time processing</strong> of massive healthcare datasets</li>
    <li><strong>Sub-second query responses</strong> on complex multi-table joins</li>
    <li><strong>HIPAA-compliant</strong> data handling and security</li>
    <li><strong>Scalable architecture</strong> supporting 1000s of concurrent users</li>
  </ul>
</div>
{{end}}
{{end}}
`

const dashboardCSS = `
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,sans-serif;margin:0 auto;max-width:1280px;padding:1rem;color:#0f172a}
.main-header{background:linear-gradient(90deg,#0f766e,#0ea5e9);padding:1.5rem;border-radius:10px;margin-bottom:2rem;text-align:center}
.main-header h1{color:#fff;margin:0}
.main-header .tagline{color:#e2e8f0;margin:.5rem 0 0;font-size:1.1rem}
.main-header .subtag{color:#cbd5e1;margin:.25rem 0 0;font-size:.9rem}
.tabs{display:flex;gap:8px;border-bottom:1px solid #e2e8f0;margin-bottom:1rem}
.tab{padding:.9rem 20px;text-decoration:none;color:#334155}
.tab.active{border-bottom:3px solid #0f766e;font-weight:600}
.columns{display:flex;gap:1.5rem;flex-wrap:wrap}
.col-input{flex:1;min-width:280px}
.col-output{flex:2;min-width:360px}
.query-form label{display:block;margin:.5rem 0 .25rem;font-weight:600}
.query-form select,.query-form textarea{width:100%;box-sizing:border-box}
.actions{margin:.5rem 0}
button{padding:.5rem 1rem;border-radius:6px;border:1px solid #cbd5e1;background:#fff;cursor:pointer}
button.primary{background:#0f766e;color:#fff;border-color:#0f766e}
button:disabled{opacity:.5;cursor:not-allowed}
.metric-card{background:#f8fafc;padding:1rem;border-radius:8px;border-left:4px solid #0f766e;margin:.5rem 0}
.alert-critical{background:#fef2f2;border-left:4px solid #ef4444;padding:1rem;border-radius:8px;margin:.5rem 0}
.alert-warning{background:#fffbeb;border-left:4px solid #f59e0b;padding:1rem;border-radius:8px;margin:.5rem 0}
.alert-info{background:#eff6ff;border-left:4px solid #3b82f6;padding:1rem;border-radius:8px;margin:.5rem 0}
.process-step{background:#f1f5f9;padding:.75rem;border-radius:6px;margin:.5rem 0;border-left:3px solid #10b981}
.process-step pre{background:#0f172a;color:#e2e8f0;padding:.75rem;border-radius:6px;overflow-x:auto}
.tiles{display:flex;gap:1rem;flex-wrap:wrap;margin:.5rem 0}
.tile{flex:1;min-width:120px;display:flex;flex-direction:column;padding:.5rem}
.tile-label{font-size:.85rem;color:#64748b}
.tile-value{font-size:1.8rem}
.tile-delta{font-size:.85rem;color:#15803d}
.flash{padding:.75rem 1rem;border-radius:6px;margin:.5rem 0}
.flash-warning{background:#fffbeb;color:#92400e}
.flash-success{background:#ecfdf5;color:#065f46}
.flash-info{background:#eff6ff;color:#1e40af}
.empty{text-align:center;padding:3rem;color:#64748b}
.category{border:1px solid #e2e8f0;border-radius:6px;margin:.25rem 0;padding:.5rem}
.category dl{display:grid;grid-template-columns:1fr 2fr;gap:.25rem .75rem}
.category dt{font-weight:600}
.category dd{margin:0}
table.patients{border-collapse:collapse;width:100%}
table.patients th,table.patients td{border-bottom:1px solid #e2e8f0;padding:.35rem .5rem;text-align:left}
.hba1c-critical{background-color:#fecaca}
.hba1c-elevated{background-color:#fed7aa}
.chart{max-width:100%;height:auto}
.progress{margin:.5rem 0}
.progress.hidden{display:none}
.progress-track{background:#e2e8f0;border-radius:4px;height:8px;overflow:hidden}
.progress-bar{background:#0f766e;height:8px;width:0;transition:width .3s}
`

const dashboardJS = `(function () {
  "use strict";

  document.querySelectorAll(".sample-select").forEach(function (sel) {
    sel.addEventListener("change", function () {
      var target = document.getElementById(sel.dataset.target);
      if (!target) { return; }
      target.value = sel.selectedIndex === 0 ? "" : sel.value;
    });
  });

  var progress = document.getElementById("progress");
  var bar = document.getElementById("progress-bar");
  var status = document.getElementById("progress-status");

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws/progress");
    ws.onmessage = function (msg) {
      var evt;
      try { evt = JSON.parse(msg.data); } catch (e) { return; }
      if (evt.type === "step.progress" && evt.data) {
        progress.classList.remove("hidden");
        bar.style.width = Math.round(evt.data.fraction * 100) + "%";
        status.textContent = "🔄 Step " + (evt.data.index + 1) + "/" + evt.data.total + ": " + evt.data.name;
      } else if (evt.type === "run.completed" && document.body.dataset.processing === "true") {
        location.reload();
      }
    };
    return ws;
  }
  connect();

  document.querySelectorAll(".query-form").forEach(function (form) {
    form.addEventListener("submit", function (ev) {
      if (!window.fetch) { return; }
      ev.preventDefault();
      form.querySelectorAll("button").forEach(function (b) { b.disabled = true; });
      progress.classList.remove("hidden");
      fetch(form.action, { method: "POST", body: new URLSearchParams(new FormData(form)), credentials: "same-origin" })
        .then(function (resp) { location.href = resp.url; })
        .catch(function () { form.submit(); });
    });
  });
})();
`
