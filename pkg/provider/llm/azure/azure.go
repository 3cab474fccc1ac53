// Package azure is a thin provider client for Azure OpenAI, built on the
// shared OpenAI-shaped wire mechanics in pkg/provider/llm/openaicompat.
//
// Grounded on spec §4.E's Azure row ("same shape as OpenAI, deployment-
// qualified... extract deployment_id from provider tag; overwrite
// credential's deployment before call") and on §6's "Azure uses header
// api-key" auth rule.
package azure

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/openaicompat"
)

func deploymentPath(kind, deploymentID, apiVersion string) string {
	return fmt.Sprintf("/openai/deployments/%s/%s?api-version=%s", deploymentID, kind, apiVersion)
}

func baseProfile() openaicompat.Profile {
	return openaicompat.Profile{
		ProviderKind: llm.ProviderAzureKind,
		ProviderTag: func(cred llm.Credential) llm.ProviderTag {
			return llm.ProviderAzure(cred.DeploymentID())
		},
		AuthHeader: func(cred llm.Credential) (string, string) {
			return "api-key", cred.APIKey()
		},
	}
}

// Client implements llm.Client for Azure OpenAI. Unlike the other nine
// OpenAI-shaped providers, Azure embeds its deployment id and api-version
// directly in the URL path rather than in the JSON body, so each call
// builds a per-credential openaicompat.Client with that path filled in
// before delegating.
type Client struct {
	registry   *modelcatalog.Registry
	httpClient *http.Client
}

// New constructs an Azure OpenAI client.
func New(registry *modelcatalog.Registry, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{registry: registry, httpClient: httpClient}
}

// ProviderTag implements llm.Client with an unparameterized placeholder tag;
// callers needing the deployment-qualified tag for a specific credential
// should call cred.ForProvider(llm.ProviderAzure(deploymentID)) directly.
func (c *Client) ProviderTag() llm.ProviderTag { return llm.ProviderAzure("") }

func (c *Client) clientFor(cred llm.Credential) *openaicompat.Client {
	p := baseProfile()
	p.ChatPath = deploymentPath("chat/completions", cred.DeploymentID(), cred.APIVersion())
	p.CompletionsPath = deploymentPath("completions", cred.DeploymentID(), cred.APIVersion())
	p.DefaultBaseURL = cred.BaseURL()
	return openaicompat.New(p, c.registry, c.httpClient)
}

// StreamCompletion implements llm.Client.
func (c *Client) StreamCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (llm.FinalResponse, error) {
	if cred.ProviderKind() != llm.ProviderAzureKind {
		return llm.FinalResponse{}, llm.ErrWrongCredentialType
	}
	return c.clientFor(cred).StreamCompletion(ctx, cred, req, sink)
}

// StreamPromptCompletion implements llm.Client.
func (c *Client) StreamPromptCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (string, error) {
	if cred.ProviderKind() != llm.ProviderAzureKind {
		return "", llm.ErrWrongCredentialType
	}
	return c.clientFor(cred).StreamPromptCompletion(ctx, cred, req, sink)
}

// Completion implements llm.Client.
func (c *Client) Completion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest) (string, error) {
	if cred.ProviderKind() != llm.ProviderAzureKind {
		return "", llm.ErrWrongCredentialType
	}
	return c.clientFor(cred).Completion(ctx, cred, req)
}

// CountTokens implements llm.Client.
func (c *Client) CountTokens(req llm.CompletionRequest) (int, error) {
	return openaicompat.New(baseProfile(), c.registry, c.httpClient).CountTokens(req)
}
