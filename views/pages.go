package views

import (
	"embed"
	"html/template"
	"strings"

	"github.com/AdamBeresnev/championship-draw/internal/draw"
	users "github.com/AdamBeresnev/championship-draw/internal/user"
	"github.com/AdamBeresnev/championship-draw/internal/utils"
	"github.com/a-h/templ"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"logoURL": logoURL,
	"deref":   utils.OrZero[int],
}

var (
	displayTemplate = page("display.html")
	adminTemplate   = page("admin.html")
	loginTemplate   = page("login.html")
	boardTemplate   = template.Must(template.New("board").Funcs(funcs).ParseFS(templateFS, "templates/board.html"))
)

func page(name string) *template.Template {
	return template.Must(template.New("layout").Funcs(funcs).ParseFS(templateFS,
		"templates/layout.html",
		"templates/board.html",
		"templates/"+name,
	))
}

// Logos are either uploaded data URIs or remote images
func logoURL(ref string) template.URL {
	if strings.HasPrefix(ref, "data:image/") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		return template.URL(ref)
	}
	return ""
}

func DisplayPage(data DrawData) templ.Component {
	return templ.FromGoHTML(displayTemplate, data)
}

// Board is the live part of the display, re-fetched on every update
func Board(data DrawData) templ.Component {
	return templ.FromGoHTML(boardTemplate, data)
}

type AdminData struct {
	Draw          DrawData
	Operator      *users.Operator
	KnockoutSizes []int
}

func AdminPage(data DrawData, operator *users.Operator) templ.Component {
	return templ.FromGoHTML(adminTemplate, AdminData{
		Draw:          data,
		Operator:      operator,
		KnockoutSizes: draw.KnockoutSizes,
	})
}

type LoginData struct {
	Providers  []string
	AllowGuest bool
}

func LoginPage(providers []string, allowGuest bool) templ.Component {
	return templ.FromGoHTML(loginTemplate, LoginData{Providers: providers, AllowGuest: allowGuest})
}
