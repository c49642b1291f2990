package pagination

import (
	"net/http"
	"net/url"

	"github.com/tomnomnom/linkheader"
)

// NextLinkParam returns the value of param in the URL advertised by the
// rel="next" entry of the response's Link headers. It returns "" when there
// is no next link or the link does not carry the parameter.
func NextLinkParam(h http.Header, param string) string {
	values := h.Values("Link")
	if len(values) == 0 {
		return ""
	}
	for _, link := range linkheader.ParseMultiple(values).FilterByRel("next") {
		u, err := url.Parse(link.URL)
		if err != nil {
			continue
		}
		if v := u.Query().Get(param); v != "" {
			return v
		}
	}
	return ""
}
