package domain

// ProviderType identifies the adapter family used to talk to an external
// identity provider. Adapter construction switches on this value.
type ProviderType string

const (
	ProviderTypeGitHub ProviderType = "github"
	ProviderTypeGoogle ProviderType = "google"
	ProviderTypeOIDC   ProviderType = "oidc"
)

// ProviderClientConfig holds the OAuth client configuration for one
// configured provider instance.
type ProviderClientConfig struct {
	ID           string       `mapstructure:"id" json:"id"`
	Type         ProviderType `mapstructure:"type" json:"type"`
	ClientID     string       `mapstructure:"client_id" json:"client_id"`
	ClientSecret string       `mapstructure:"client_secret" json:"-"`
	Scopes       []string     `mapstructure:"scopes" json:"scopes,omitempty"`
	AuthURL      string       `mapstructure:"auth_url" json:"auth_url,omitempty"`
	TokenURL     string       `mapstructure:"token_url" json:"token_url,omitempty"`
	UserInfoURL  string       `mapstructure:"user_info_url" json:"user_info_url,omitempty"`
	Enabled      bool         `mapstructure:"enabled" json:"enabled"`
}
