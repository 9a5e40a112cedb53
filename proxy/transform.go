package proxy

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"matchgate/resolver"
)

// TransformRequestURI builds the outbound URI for a resolved endpoint:
// scheme and authority come from the endpoint, the query string is copied
// verbatim, and the residual path (the part after the routing prefix) is
// appended with exactly one leading slash.
func TransformRequestURI(residualPath, rawQuery string, ep resolver.Resolved) *url.URL {
	return &url.URL{
		Scheme:   "http",
		Host:     net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port)),
		Path:     "/" + strings.TrimLeft(residualPath, "/"),
		RawQuery: rawQuery,
	}
}
