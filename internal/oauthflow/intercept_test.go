package oauthflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntercept(t *testing.T) {
	const redirect = "https://login.example.com/desktop"

	tests := []struct {
		name   string
		rawURL string
		wantOK bool
		want   CallbackResult
	}{
		{
			name:   "code in query",
			rawURL: redirect + "?code=abc&state=xyz",
			wantOK: true,
			want:   CallbackResult{Code: "abc", State: "xyz"},
		},
		{
			name:   "token in fragment",
			rawURL: redirect + "#access_token=EwA%2Bdata%3D&expires_in=3600&state=s1",
			wantOK: true,
			want:   CallbackResult{AccessToken: "EwA+data=", State: "s1"},
		},
		{
			name:   "query wins over fragment",
			rawURL: redirect + "?code=fromquery#code=fromfragment&state=s2",
			wantOK: true,
			want:   CallbackResult{Code: "fromquery", State: "s2"},
		},
		{
			name:   "error response",
			rawURL: redirect + "?error=access_denied&error_description=user+said+no",
			wantOK: true,
			want:   CallbackResult{Error: "access_denied", ErrorDescription: "user said no"},
		},
		{
			name:   "other url",
			rawURL: "https://login.example.com/authorize?code=abc",
			wantOK: false,
		},
		{
			name:   "redirect without response",
			rawURL: redirect + "?foo=bar",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Intercept(tt.rawURL, redirect)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}
