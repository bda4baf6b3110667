// Package widget renders the embeddable testimonial widget page.
package widget

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/testimonialkit/testimonialkit/internal/models"
)

// MaxTestimonials caps how many testimonials one widget shows.
const MaxTestimonials = 10

const dateLayout = "02.01.2006"

//go:embed templates/widget.html.tmpl
var templateFS embed.FS

var widgetTemplate = template.Must(template.ParseFS(templateFS, "templates/widget.html.tmpl"))

type itemView struct {
	CustomerName string
	Content      string
	Date         string
	VideoURL     string
}

type pageView struct {
	DisplayName  string
	ProfileURL   string
	Testimonials []itemView
}

// Render builds the widget HTML for owner. publicURL is the site origin used
// for the "leave a testimonial" link.
func Render(owner models.User, testimonials []models.Testimonial, publicURL string) ([]byte, error) {
	view := pageView{
		DisplayName: owner.DisplayName,
		ProfileURL:  strings.TrimRight(publicURL, "/") + "/" + owner.Username,
	}
	if view.DisplayName == "" {
		view.DisplayName = owner.Username
	}
	if len(testimonials) > MaxTestimonials {
		testimonials = testimonials[:MaxTestimonials]
	}
	for _, t := range testimonials {
		view.Testimonials = append(view.Testimonials, itemView{
			CustomerName: t.CustomerName,
			Content:      t.Content,
			Date:         t.CreatedAt.Format(dateLayout),
			VideoURL:     t.VideoURL,
		})
	}

	var buf bytes.Buffer
	if errExec := widgetTemplate.Execute(&buf, view); errExec != nil {
		return nil, fmt.Errorf("render widget: %w", errExec)
	}
	return buf.Bytes(), nil
}
