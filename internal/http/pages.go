package http

import (
	"embed"
	"html/template"
	"io"

	"github.com/kjstillabower/climate-api/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// routeLink is one entry on the home page.
type routeLink struct {
	Description string
	Path        string
}

var homeRoutes = []routeLink{
	{"Maximum precipitation values for every day of the past year", "/api/v1.0/precipitation"},
	{"List of stations from the dataset", "/api/v1.0/stations"},
	{"One year of temperature observations of the most active station", "/api/v1.0/tobs"},
	{"Minimum, average and maximum temperature for a given range of dates", "/api/v1.0/"},
}

func renderHome(w io.Writer) error {
	return pageTmpl.ExecuteTemplate(w, "home.html", struct{ Routes []routeLink }{homeRoutes})
}

func renderUsage(w io.Writer, bounds models.Bounds) error {
	return pageTmpl.ExecuteTemplate(w, "usage.html", bounds)
}
