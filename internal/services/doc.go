// Package services defines the external collaborator interfaces and implements them for Spotify and OpenAI.
//
// # MusicService
//
// [SpotifyService] supplies listening signals: recently played tracks, top
// artists with genre tags, playlists, and per-track audio features. It uses
// OAuth2 with automatic token refresh; refreshed tokens are handed to a
// callback so the CLI can persist them back to config.toml.
//
// # LanguageModel
//
// [OpenAIService] wraps the chat completions endpoint. It carries the model
// name, max tokens, and temperature from configuration and sends every prompt
// under a fixed recommendation-expert system instruction.
//
// # Error Handling
//
// Both implementations classify faults into sentinels from the shared package
// at the HTTP boundary:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token expired, reauthorization needed
//   - [shared.ErrProviderTransient] : 429 / 5xx / network fault, safe to retry
//   - [shared.ErrAPIRequest] : any other failed request
//
// No spotify- or openai-specific error type escapes this package.
package services
