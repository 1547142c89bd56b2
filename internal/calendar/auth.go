package calendar

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// googleTokenURL is the default token endpoint for refresh-token flows.
const googleTokenURL = "https://oauth2.googleapis.com/token"

// NewAuthorizedHTTPClient builds an http.Client that refreshes and injects
// OAuth bearer tokens from a long-lived refresh token. tokenURL may be
// empty to use the Google endpoint.
func NewAuthorizedHTTPClient(ctx context.Context, clientID, clientSecret, refreshToken, tokenURL string) *http.Client {
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
	return conf.Client(ctx, &oauth2.Token{RefreshToken: refreshToken})
}
