// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package authz

import (
	"context"

	"github.com/tomtom215/connectid/internal/protocol"
	"github.com/tomtom215/connectid/internal/provider"
	"github.com/tomtom215/connectid/internal/ticket"
)

// NewProvider adapts a ClientPolicy into the core's extension-point
// interface: the default Provider this module ships, per the Casbin ACL
// of package doc. Redirect URIs and grant types are checked against the
// policy; every requested scope must individually be permitted. Policy
// lookup errors (a malformed matcher, a closed enforcer) Reject rather
// than fail open.
func NewProvider(policy *ClientPolicy) provider.Provider {
	return provider.New(provider.Hooks{
		ValidateClientRedirectUri: func(_ context.Context, clientID, redirectURI string) provider.Result {
			ok, err := policy.AllowsRedirectURI(clientID, redirectURI)
			if err != nil || !ok {
				return provider.Reject(protocol.NewError(protocol.ErrInvalidClient))
			}
			return provider.Validate()
		},
		ValidateClientLogoutRedirectUri: func(_ context.Context, clientID, uri string) provider.Result {
			ok, err := policy.AllowsLogoutRedirectURI(clientID, uri)
			if err != nil || !ok {
				return provider.Reject(protocol.NewError(protocol.ErrInvalidRequest))
			}
			return provider.Validate()
		},
		ValidateAuthorizationRequest: func(_ context.Context, msg *protocol.Message) provider.Result {
			clientID := msg.ClientID()
			for _, scope := range msg.Scope().Tokens() {
				ok, err := policy.AllowsScope(clientID, scope)
				if err != nil || !ok {
					return provider.Reject(protocol.NewError(protocol.ErrInvalidRequest).WithDescription("scope not permitted for client"))
				}
			}
			return provider.Validate()
		},
		ValidateTokenRequest: func(_ context.Context, msg *protocol.Message, _ *ticket.Ticket) provider.Result {
			ok, err := policy.AllowsGrantType(msg.ClientID(), msg.GrantType())
			if err != nil || !ok {
				return provider.Reject(protocol.NewError(protocol.ErrUnauthorizedClient))
			}
			return provider.Validate()
		},
	})
}
