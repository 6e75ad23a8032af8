package oauthflow

import (
	"net/url"
	"strings"
)

// CallbackResult is the authorization response carried by a redirect.
type CallbackResult struct {
	// Code is set for the authorization-code grant.
	Code string
	// AccessToken is set when the provider returned the token directly in the fragment.
	AccessToken string
	// RefreshToken may accompany AccessToken.
	RefreshToken string
	State        string

	Error            string
	ErrorDescription string
}

// IsError returns true if the provider reported an error.
func (r *CallbackResult) IsError() bool {
	return r.Error != ""
}

func (r *CallbackResult) empty() bool {
	return r.Code == "" && r.AccessToken == "" && r.Error == ""
}

// Intercept extracts the authorization response from rawURL if it is a
// redirect to redirectURI. Parameters are read from the query and then from
// the fragment, so the response is recovered whether the provider used the
// query or fragment response mode. It returns false when rawURL is not the
// redirect or carries no response.
func Intercept(rawURL, redirectURI string) (*CallbackResult, bool) {
	if !strings.HasPrefix(rawURL, redirectURI) {
		return nil, false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, false
	}

	params := u.Query()
	if u.Fragment != "" {
		fragment, err := url.ParseQuery(u.Fragment)
		if err == nil {
			for k, vs := range fragment {
				if params.Get(k) == "" {
					params[k] = vs
				}
			}
		}
	}

	result := resultFromValues(params)
	if result.empty() {
		return nil, false
	}
	return result, true
}

func resultFromValues(v url.Values) *CallbackResult {
	return &CallbackResult{
		Code:             v.Get("code"),
		AccessToken:      v.Get("access_token"),
		RefreshToken:     v.Get("refresh_token"),
		State:            v.Get("state"),
		Error:            v.Get("error"),
		ErrorDescription: v.Get("error_description"),
	}
}
