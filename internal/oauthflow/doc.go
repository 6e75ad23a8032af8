// Package oauthflow runs an OAuth2 authorization in the user's browser and
// returns the resulting tokens.
//
// The flow opens the provider's authorization page with a PKCE challenge,
// waits for the redirect on a short-lived loopback server, then exchanges the
// authorization code at the token endpoint. Providers that answer with the
// token in the URL fragment are handled too: the loopback server serves a
// small relay page that forwards the fragment as a query string, and
// Intercept recognises the response in either place.
//
// Refresh exchanges a stored refresh token without user interaction.
package oauthflow
