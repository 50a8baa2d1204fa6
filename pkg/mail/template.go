package mail

import (
	"bytes"
	"html/template"
)

var layout = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2c3e50;">{{.Subject}}</h2>
    <p>{{.Message}}</p>
    <hr style="border: none; border-top: 1px solid #eee;">
    <p style="font-size: 12px; color: #999;">{{.AppName}}</p>
  </div>
</body>
</html>`))

// Render wraps a one-line message in the standard notification layout.
func Render(appName, subject, message string) (string, error) {
	var buf bytes.Buffer
	err := layout.Execute(&buf, struct {
		AppName, Subject, Message string
	}{appName, subject, message})
	return buf.String(), err
}
