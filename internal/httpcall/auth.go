package httpcall

import (
	"context"
	"net/http"

	"github.com/graflow/graflow/pkg/api"
)

// applyAuth decorates the request according to the backend config's
// auth strategy. For oauth2_cc a failed token exchange is deliberately
// non-fatal: the request proceeds without an Authorization header.
func (c *Client) applyAuth(ctx context.Context, req *http.Request, cfg api.BackendConfig) {
	auth := cfg.Auth

	switch cfg.AuthType {
	case api.AuthBearer:
		prefix := auth.Prefix
		if prefix == "" {
			prefix = "Bearer"
		}
		req.Header.Set("Authorization", prefix+" "+auth.Token)

	case api.AuthBasic:
		req.SetBasicAuth(auth.Username, auth.Password)

	case api.AuthAPIKey:
		name := auth.KeyName
		if name == "" {
			name = "X-Api-Key"
		}
		switch auth.KeyIn {
		case "query":
			q := req.URL.Query()
			q.Set(name, auth.Key)
			req.URL.RawQuery = q.Encode()
		case "cookie":
			req.AddCookie(&http.Cookie{Name: name, Value: auth.Key})
		default:
			req.Header.Set(name, auth.Key)
		}

	case api.AuthCookie:
		req.Header.Set("Cookie", auth.Cookie)

	case api.AuthCustom:
		for k, v := range auth.Headers {
			req.Header.Set(k, v)
		}

	case api.AuthOAuth2CC:
		token, err := c.tokens.Token(ctx, c.base, cfg)
		if err != nil {
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
