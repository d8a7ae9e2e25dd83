package api

// AuthType selects the authentication strategy applied to outbound
// API calls made with a BackendConfig.
type AuthType string

const (
	AuthNone     AuthType = "none"
	AuthBearer   AuthType = "bearer"
	AuthBasic    AuthType = "basic"
	AuthAPIKey   AuthType = "apiKey"
	AuthCookie   AuthType = "cookie"
	AuthCustom   AuthType = "custom"
	AuthOAuth2CC AuthType = "oauth2_cc"
)

// BackendConfig holds the resolved connection and auth settings applied
// to outbound API calls during a run. It is supplied once per run and
// read-only to the engine.
//
// Compression is a tri-state: nil leaves the HTTP client's transport
// untouched, an explicit false disables response compression.
type BackendConfig struct {
	ID             string            `json:"id,omitempty"`
	BaseURL        string            `json:"baseUrl"`
	TimeoutSeconds int               `json:"timeout,omitempty"`
	Retries        int               `json:"retries,omitempty"`
	DefaultHeaders map[string]string `json:"defaultHeaders,omitempty"`
	AuthType       AuthType          `json:"authType,omitempty"`
	Auth           AuthParams        `json:"auth,omitempty"`
	Compression    *bool             `json:"compression,omitempty"`
	Proxy          string            `json:"proxy,omitempty"`
	TLSSkipVerify  bool              `json:"tlsSkipVerify,omitempty"`
}

// AuthParams is the type-specific secret bundle of a BackendConfig.
// Only the fields relevant to the configured AuthType are used.
type AuthParams struct {
	// bearer
	Token  string `json:"token,omitempty"`
	Prefix string `json:"prefix,omitempty"` // defaults to "Bearer"

	// basic
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// apiKey
	Key     string `json:"key,omitempty"`
	KeyName string `json:"keyName,omitempty"`
	KeyIn   string `json:"keyIn,omitempty"` // "header", "query" or "cookie"

	// cookie
	Cookie string `json:"cookie,omitempty"`

	// custom
	Headers map[string]string `json:"headers,omitempty"`

	// oauth2_cc
	TokenURL     string `json:"tokenUrl,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Identity returns the cache key used for per-config shared state such
// as OAuth2 tokens. Configs persisted by a store carry an ID; inline
// configs fall back to the token endpoint plus client id.
func (c BackendConfig) Identity() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Auth.TokenURL + "|" + c.Auth.ClientID
}
