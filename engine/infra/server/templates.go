package server

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Banner is the outcome line shown above the upload form.
type Banner struct {
	OK      bool
	Message string
	Detail  string
}

type formPage struct {
	Banner *Banner
}

func successBanner(destination string, inserted int) *Banner {
	return &Banner{
		OK:      true,
		Message: fmt.Sprintf("✅ File [%s] uploaded successfully.", destination),
		Detail:  fmt.Sprintf("Total tasks processed: %d", inserted),
	}
}

func failureBanner(destination string, detail string) *Banner {
	return &Banner{
		Message: fmt.Sprintf("❌ File [%s] failed to upload.", destination),
		Detail:  detail,
	}
}

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse templates: %w", err)
	}
	return tmpl, nil
}
