package llm

// CredentialKind discriminates the Credential tagged union. Each kind
// carries exactly the secrets its matching ProviderKind needs, mirroring
// the Rust LLMProviderAPIKeys enum.
type CredentialKind int

const (
	CredUnknown CredentialKind = iota
	CredAPIKey                // api_key only: OpenAI, Anthropic, TogetherAI, Fireworks, OpenRouter, Groq
	CredAPIKeyBaseURL         // api_key + base_url: OpenAI-Compatible, LMStudio, CodeStory
	CredAzure                 // api_key + deployment_id + api_version + base_url
	CredAccessToken           // access_token only: GoogleAIStudio/Gemini OAuth flows
	CredNone                  // no secrets needed: Ollama
)

// Credential is a tagged union of per-provider secrets. The zero value is
// invalid; construct one of the variants via the New* functions below.
type Credential struct {
	kind         CredentialKind
	providerKind ProviderKind

	apiKey       string
	baseURL      string
	deploymentID string
	apiVersion   string
	accessToken  string
}

// NewAPIKeyCredential builds a bare api_key credential for the given
// provider (OpenAI, Anthropic, TogetherAI, Fireworks, OpenRouter, Groq).
func NewAPIKeyCredential(provider ProviderKind, apiKey string) Credential {
	return Credential{kind: CredAPIKey, providerKind: provider, apiKey: apiKey}
}

// NewAPIKeyBaseURLCredential builds an api_key+base_url credential for
// OpenAI-Compatible, LMStudio, or CodeStory.
func NewAPIKeyBaseURLCredential(provider ProviderKind, apiKey, baseURL string) Credential {
	return Credential{kind: CredAPIKeyBaseURL, providerKind: provider, apiKey: apiKey, baseURL: baseURL}
}

// NewAzureCredential builds a full Azure credential.
func NewAzureCredential(apiKey, deploymentID, apiVersion, baseURL string) Credential {
	return Credential{
		kind:         CredAzure,
		providerKind: ProviderAzureKind,
		apiKey:       apiKey,
		deploymentID: deploymentID,
		apiVersion:   apiVersion,
		baseURL:      baseURL,
	}
}

// NewAccessTokenCredential builds an OAuth access-token credential, used by
// Gemini/GoogleAIStudio deployments that authenticate via Google credentials
// rather than a bare API key.
func NewAccessTokenCredential(provider ProviderKind, accessToken string) Credential {
	return Credential{kind: CredAccessToken, providerKind: provider, accessToken: accessToken}
}

// NewNoneCredential builds a credential for providers that need no secret
// material, such as a local Ollama install reachable without auth.
func NewNoneCredential(provider ProviderKind) Credential {
	return Credential{kind: CredNone, providerKind: provider}
}

func (c Credential) Kind() CredentialKind     { return c.kind }
func (c Credential) ProviderKind() ProviderKind { return c.providerKind }
func (c Credential) APIKey() string           { return c.apiKey }
func (c Credential) BaseURL() string          { return c.baseURL }
func (c Credential) DeploymentID() string     { return c.deploymentID }
func (c Credential) APIVersion() string       { return c.apiVersion }
func (c Credential) AccessToken() string      { return c.accessToken }

// MatchesProvider reports whether this credential may be consumed by a
// client serving the given ProviderTag. For Azure, a credential matches
// regardless of its own stored deployment id; callers should use
// ForProvider to obtain a copy with the deployment id overwritten from the
// tag, mirroring LLMProviderAPIKeys::key's clone-and-overwrite behavior.
func (c Credential) MatchesProvider(tag ProviderTag) bool {
	return c.providerKind == tag.Kind()
}

// ForProvider returns a copy of the credential adapted for the given
// provider tag. For Azure it overwrites DeploymentID with the tag's
// deployment id (an empty tag deployment id means "no match" per spec
// §4.A, signalled by ok=false). For all other kinds it simply checks
// MatchesProvider.
func (c Credential) ForProvider(tag ProviderTag) (Credential, bool) {
	if !c.MatchesProvider(tag) {
		return Credential{}, false
	}
	if c.kind == CredAzure {
		if tag.DeploymentID() == "" {
			return Credential{}, false
		}
		clone := c
		clone.deploymentID = tag.DeploymentID()
		return clone, true
	}
	return c, true
}
