package auth

import (
	"authhandler/internal/channel"
)

// SASL mechanism names.
const (
	MechanismFacebookPlatform = "X-FACEBOOK-PLATFORM"
	MechanismXOAuth2          = "X-OAUTH2"
	MechanismOAuthBearer      = "OAUTHBEARER"
	MechanismPassword         = "X-TELEPATHY-PASSWORD"
	MechanismMessengerOAuth2  = "X-MESSENGER-OAUTH2"
)

// StrategyKind names a strategy.
type StrategyKind int

const (
	StrategyNone StrategyKind = iota
	StrategyPassword
	StrategySSO
	StrategyOAuth2Browser
	StrategyCertificate
	StrategyCaptcha
	StrategyRoomPassword
)

// String returns the string representation of the kind.
func (k StrategyKind) String() string {
	switch k {
	case StrategyPassword:
		return "password"
	case StrategySSO:
		return "sso"
	case StrategyOAuth2Browser:
		return "oauth2-browser"
	case StrategyCertificate:
		return "certificate"
	case StrategyCaptcha:
		return "captcha"
	case StrategyRoomPassword:
		return "room-password"
	default:
		return "none"
	}
}

// Choice is the result of mechanism selection.
type Choice struct {
	Strategy  StrategyKind
	Mechanism string
}

// SelectMechanism picks the strategy for a SASL channel. The first matching
// rule wins:
//
//  1. SSO-linked account and X-FACEBOOK-PLATFORM
//  2. SSO-linked account and X-OAUTH2, then OAUTHBEARER
//  3. X-TELEPATHY-PASSWORD
//  4. X-MESSENGER-OAUTH2
//
// Anything else, including an empty set, is a NegotiationError.
func SelectMechanism(mechanisms []string, account channel.Account) (Choice, error) {
	has := make(map[string]bool, len(mechanisms))
	for _, m := range mechanisms {
		has[m] = true
	}
	linked := account != nil && account.SSOIdentity() != ""

	switch {
	case linked && has[MechanismFacebookPlatform]:
		return Choice{Strategy: StrategySSO, Mechanism: MechanismFacebookPlatform}, nil
	case linked && has[MechanismXOAuth2]:
		return Choice{Strategy: StrategySSO, Mechanism: MechanismXOAuth2}, nil
	case linked && has[MechanismOAuthBearer]:
		return Choice{Strategy: StrategySSO, Mechanism: MechanismOAuthBearer}, nil
	case has[MechanismPassword]:
		return Choice{Strategy: StrategyPassword, Mechanism: MechanismPassword}, nil
	case has[MechanismMessengerOAuth2]:
		return Choice{Strategy: StrategyOAuth2Browser, Mechanism: MechanismMessengerOAuth2}, nil
	default:
		return Choice{}, &NegotiationError{Mechanisms: append([]string(nil), mechanisms...)}
	}
}
