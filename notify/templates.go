package notify

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
)

const (
	TemplateWelcome       = "welcome"
	TemplateAdminAlert    = "admin_alert"
	TemplatePaymentFailed = "payment_failed"
)

const welcomeTemplate = `<html>
<body>
  <h1>Welcome, {{.CompanyName}}!</h1>
  <p>Hi {{.ContactName}},</p>
  <p>Your workspace is ready. Here is what we set up for you:</p>
  <ul>
    {{- if .ProjectURL}}<li>Project board: <a href="{{.ProjectURL}}">{{.ProjectURL}}</a></li>{{end}}
    {{- if .DesignFileURL}}<li>Design file: <a href="{{.DesignFileURL}}">{{.DesignFileURL}}</a></li>{{end}}
    {{- if .RepositoryURL}}<li>Repository: <a href="{{.RepositoryURL}}">{{.RepositoryURL}}</a></li>{{end}}
  </ul>
  <p>We are glad to have you on board.</p>
</body>
</html>`

const adminAlertTemplate = `<html>
<body>
  <h2>Onboarding run {{.RunID}} needs attention</h2>
  <p>Client: {{.ClientID}}</p>
  <p>The following steps failed:</p>
  <ul>
    {{- range .Failures}}<li>{{.}}</li>{{end}}
  </ul>
  <p>Succeeded: {{.SucceededCount}} of {{.TotalCount}} steps.</p>
</body>
</html>`

const paymentFailedTemplate = `<html>
<body>
  <h2>Payment failed</h2>
  <p>A payment for your subscription could not be processed.</p>
  {{- if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
  <p>Please update your billing details to keep your workspace active.</p>
</body>
</html>`

// TemplateRenderer holds the parsed HTML email bodies. The built-in
// set covers the pipeline's own sends; callers register additional
// templates by name.
type TemplateRenderer struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	renderer := &TemplateRenderer{templates: map[string]*template.Template{}}
	builtins := map[string]string{
		TemplateWelcome:       welcomeTemplate,
		TemplateAdminAlert:    adminAlertTemplate,
		TemplatePaymentFailed: paymentFailedTemplate,
	}
	for name, body := range builtins {
		if err := renderer.Register(name, body); err != nil {
			return nil, err
		}
	}
	return renderer, nil
}

func (r *TemplateRenderer) Register(name string, body string) error {
	if r == nil {
		return fmt.Errorf("notify: template renderer is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("notify: template name is required")
	}
	parsed, err := template.New(name).Parse(body)
	if err != nil {
		return fmt.Errorf("notify: parse template %q: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = parsed
	return nil
}

func (r *TemplateRenderer) Render(name string, data map[string]any) (string, error) {
	if r == nil {
		return "", fmt.Errorf("notify: template renderer is not configured")
	}
	r.mu.RLock()
	parsed, ok := r.templates[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("notify: template %q is not registered", name)
	}
	var out strings.Builder
	if err := parsed.Execute(&out, data); err != nil {
		return "", fmt.Errorf("notify: render template %q: %w", name, err)
	}
	return out.String(), nil
}
