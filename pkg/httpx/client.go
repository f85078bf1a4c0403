package httpx

import "net/http"

// maxUserAgent matches the audit column width.
const maxUserAgent = 512

// Client describes the caller of a request as seen by the transport.
type Client struct {
	IP    string
	Agent string
}

// RemoteIP returns the best-effort caller address.
func (c Client) RemoteIP() string { return c.IP }

// UserAgent returns the caller's User-Agent header.
func (c Client) UserAgent() string { return c.Agent }

// ClientFromRequest builds a Client from proxy headers and the connection.
func ClientFromRequest(r *http.Request) Client {
	ua := r.UserAgent()
	if len(ua) > maxUserAgent {
		ua = ua[:maxUserAgent]
	}
	return Client{IP: IPKeyExtractor(r), Agent: ua}
}
