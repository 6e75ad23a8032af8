package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authhandler/internal/testing/mock"
)

func TestSelectMechanism(t *testing.T) {
	linked := mock.NewAccount(testAccount, "identity-1")
	plain := mock.NewAccount(testAccount, "")

	tests := []struct {
		name       string
		mechanisms []string
		account    *mock.Account
		want       Choice
		wantErr    bool
	}{
		{
			name:       "password only",
			mechanisms: []string{MechanismPassword},
			account:    linked,
			want:       Choice{StrategyPassword, MechanismPassword},
		},
		{
			name:       "facebook wins for linked account",
			mechanisms: []string{MechanismPassword, MechanismXOAuth2, MechanismFacebookPlatform},
			account:    linked,
			want:       Choice{StrategySSO, MechanismFacebookPlatform},
		},
		{
			name:       "x-oauth2 before oauthbearer",
			mechanisms: []string{MechanismOAuthBearer, MechanismXOAuth2},
			account:    linked,
			want:       Choice{StrategySSO, MechanismXOAuth2},
		},
		{
			name:       "oauthbearer for linked account",
			mechanisms: []string{MechanismOAuthBearer, MechanismPassword},
			account:    linked,
			want:       Choice{StrategySSO, MechanismOAuthBearer},
		},
		{
			name:       "sso mechanisms ignored without identity",
			mechanisms: []string{MechanismFacebookPlatform, MechanismPassword},
			account:    plain,
			want:       Choice{StrategyPassword, MechanismPassword},
		},
		{
			name:       "password before messenger",
			mechanisms: []string{MechanismMessengerOAuth2, MechanismPassword},
			account:    plain,
			want:       Choice{StrategyPassword, MechanismPassword},
		},
		{
			name:       "messenger oauth2",
			mechanisms: []string{MechanismMessengerOAuth2},
			account:    plain,
			want:       Choice{StrategyOAuth2Browser, MechanismMessengerOAuth2},
		},
		{
			name:       "sso mechanism only, no identity",
			mechanisms: []string{MechanismXOAuth2},
			account:    plain,
			wantErr:    true,
		},
		{
			name:    "empty",
			account: plain,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectMechanism(tt.mechanisms, tt.account)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupportedMechanism)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectMechanism_PasswordOnlyNeverSSO(t *testing.T) {
	for _, identity := range []string{"", "identity-1"} {
		got, err := SelectMechanism([]string{MechanismPassword}, mock.NewAccount(testAccount, identity))
		require.NoError(t, err)
		assert.Equal(t, StrategyPassword, got.Strategy)
	}
}
