package banner

import (
	"html/template"
	"io"
)

type bannerView struct {
	ID       string
	Kind     Kind
	Title    string
	Subtitle string
	Entries  []Entry
	Fading   bool
	Test     bool
	Color    string
}

func colorFor(k Kind) string {
	switch k {
	case KindEmpty:
		return "#2e7d32"
	case KindError:
		return "#c62828"
	default:
		return "#6a1b9a"
	}
}

var bannerTmpl = template.Must(template.New("banner").Parse(`
{{define "element"}}<div id="{{.ID}}" data-kind="{{.Kind}}" style="position:fixed;top:20px;right:20px;z-index:2147483647;max-width:360px;padding:16px 20px;border-radius:12px;background:{{.Color}};color:#fff;font-family:system-ui,sans-serif;box-shadow:0 8px 24px rgba(0,0,0,.25);transition:opacity 300ms ease;opacity:{{if .Fading}}0{{else}}1{{end}};">
  <button type="button" aria-label="Close" onclick="fetch('/api/banner/close',{method:'POST'})" style="position:absolute;top:6px;right:10px;border:none;background:transparent;color:#fff;font-size:18px;cursor:pointer;">&times;</button>
  <div style="font-weight:600;font-size:16px;margin-bottom:4px;">{{.Title}}</div>
  <div style="font-size:12px;opacity:.85;margin-bottom:8px;">{{.Subtitle}}{{if .Test}} (test){{end}}</div>
  {{range .Entries}}<div style="margin:6px 0;"><div style="font-weight:500;">{{.Name}}</div><div style="font-size:12px;opacity:.85;">{{.When}}</div></div>
  {{end}}</div>{{end}}
{{define "page"}}<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Holiday reminder</title></head>
<body style="margin:0;min-height:100vh;background:#f5f5f5;">
{{if .}}{{template "element" .}}{{end}}
<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = function (ev) {
    var m = JSON.parse(ev.data);
    var el = document.getElementById("holiday-reminder-banner");
    if (m.type === "mount") {
      if (el) { el.remove(); }
      document.body.insertAdjacentHTML("beforeend", m.html);
    } else if (m.type === "fade") {
      if (el) { el.style.opacity = "0"; }
    } else if (m.type === "unmount") {
      if (el) { el.remove(); }
    }
  };
})();
</script>
</body>
</html>
{{end}}`))

func viewOf(n Notice, fading bool) *bannerView {
	return &bannerView{
		ID:       ElementID,
		Kind:     n.Kind,
		Title:    n.Title(),
		Subtitle: n.Subtitle(),
		Entries:  n.Entries(),
		Fading:   fading,
		Test:     n.Test,
		Color:    colorFor(n.Kind),
	}
}

// RenderElement writes the banner element alone.
func RenderElement(w io.Writer, n Notice, fading bool) error {
	return bannerTmpl.ExecuteTemplate(w, "element", viewOf(n, fading))
}

// RenderPage writes a standalone page carrying the banner, or an empty
// page when n is nil.
func RenderPage(w io.Writer, n *Notice, fading bool) error {
	var v *bannerView
	if n != nil {
		v = viewOf(*n, fading)
	}
	return bannerTmpl.ExecuteTemplate(w, "page", v)
}
