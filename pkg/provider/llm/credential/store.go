// Package credential implements the Provider Identity & Credential Store
// (spec component A): a small process-wide collection of per-provider
// secrets, resolved by ProviderTag at dispatch time.
//
// Grounded on LLMProviderAPIKeys::key in
// original_source/sidebolt/sidecar/llm_client/src/provider.rs: the first
// stored credential whose provider kind matches wins; for Azure the match is
// cloned and its deployment id overwritten from the requested tag.
package credential

import "github.com/MrWong99/glyphoxa/pkg/provider/llm"

// Store holds credentials collected at process init (typically from
// internal/config) and resolves them by ProviderTag for the lifetime of the
// process. A Store is safe for concurrent read-only use once built; it is
// not safe to mutate concurrently with lookups.
type Store struct {
	credentials []llm.Credential
}

// NewStore builds a Store from a set of credentials, normally one per
// configured provider.
func NewStore(credentials ...llm.Credential) *Store {
	return &Store{credentials: append([]llm.Credential(nil), credentials...)}
}

// Add appends an additional credential to the store.
func (s *Store) Add(cred llm.Credential) {
	s.credentials = append(s.credentials, cred)
}

// CredentialFor returns the first stored credential matching provider, with
// Azure deployment-id overwritten from the tag. Absence is reported via ok.
func (s *Store) CredentialFor(provider llm.ProviderTag) (cred llm.Credential, ok bool) {
	for _, c := range s.credentials {
		if adapted, matched := c.ForProvider(provider); matched {
			return adapted, true
		}
	}
	return llm.Credential{}, false
}
