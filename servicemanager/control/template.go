package control

import (
	"bytes"
	"embed"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/serviceinfo"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("").
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{"shquote": shquote}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// Registration template names.
const (
	SysVInitTemplate = "sysvinit.tmpl"
	LaunchdTemplate  = "launchd.plist.tmpl"
)

// LaunchdLabel returns the launchd job label of the named service.
func LaunchdLabel(name string) string {
	return "com.servicemanager." + name
}

type templateData struct {
	Service
	Label string
	Args  []string
}

// Render renders the named registration template for svc.
func Render(name string, svc Service) ([]byte, error) {
	data := templateData{
		Service: svc,
		Label:   LaunchdLabel(svc.Name),
		Args:    []string{svc.Executable, "run", svc.Name},
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, errors.Wrapf(err, "failed to render %s", name)
	}

	return buf.Bytes(), nil
}

func shquote(s string) string {
	return serviceinfo.JoinArgs([]string{s})
}
