// Package handler exposes the HTTP surface: the WebSocket attach point for
// the chat protocol and a health probe.
package handler

import (
	"cipherchat/backend/internal/auth"
	"cipherchat/backend/internal/chathub"
	"cipherchat/backend/internal/config"
	"cipherchat/backend/internal/secure"
	"cipherchat/backend/internal/storage"
)

// Handler bundles everything a new connection needs.
type Handler struct {
	Codec     *secure.Codec
	Store     *storage.Service
	Registry  *chathub.Registry
	Broadcast *chathub.Broadcaster
	Tokens    *auth.TokenManager
	Cfg       config.Config
}

// NewHandler wires the HTTP handlers to the chat core.
func NewHandler(codec *secure.Codec, store *storage.Service, registry *chathub.Registry, broadcast *chathub.Broadcaster, tokens *auth.TokenManager, cfg config.Config) *Handler {
	return &Handler{
		Codec:     codec,
		Store:     store,
		Registry:  registry,
		Broadcast: broadcast,
		Tokens:    tokens,
		Cfg:       cfg,
	}
}
