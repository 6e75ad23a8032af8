package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/emersion/go-sasl"

	"authhandler/internal/channel"
	"authhandler/internal/sso"
)

// Fixed fields of the Facebook platform response.
const (
	facebookCallID  = "0"
	facebookVersion = "1.0"
)

// ssoStrategy authenticates with credentials from the account's linked SSO
// identity. X-FACEBOOK-PLATFORM answers server challenges; X-OAUTH2 and
// OAUTHBEARER send the token as initial data.
type ssoStrategy struct {
	saslBase
	identity string
	started  bool
	// client encodes OAuth2 initial responses; nil for the challenge mechanism.
	client sasl.Client

	// Facebook challenges waiting for an answer, oldest first. answering is
	// set while credentials for the head are being fetched.
	challenges []facebookChallenge
	answering  bool
}

type facebookChallenge struct {
	method, nonce string
}

func newSSOStrategy(s *Session, ch channel.SASLChannel, mechanism string, props channel.SASLProperties) *ssoStrategy {
	return &ssoStrategy{
		saslBase: saslBase{s: s, ch: ch, mechanism: mechanism, initial: props.Status},
		identity: s.account.SSOIdentity(),
	}
}

func (st *ssoStrategy) Kind() StrategyKind { return StrategySSO }

func (st *ssoStrategy) Start() {
	st.subscribe(st.onStatus, st.onChallenge)
}

func (st *ssoStrategy) onStatus(ev channel.StatusEvent) {
	if st.handleCommon(ev) {
		return
	}
	switch ev.Status {
	case channel.StatusNotStarted:
		if st.started {
			return
		}
		st.started = true
		if st.mechanism == MechanismFacebookPlatform {
			mech := st.mechanism
			st.s.command("StartMechanism", func(ctx context.Context) error {
				return st.ch.StartMechanism(ctx, mech)
			}, st.failOnError)
			return
		}
		st.withCredentials(st.startOAuth2)
	case channel.StatusSucceeded:
		st.s.Finish(nil)
	case channel.StatusServerFailed:
		st.s.Finish(newServerAuthError(ev))
	}
}

// withCredentials resolves the identity off the loop. When that fails the
// session ends without sending the channel anything more.
func (st *ssoStrategy) withCredentials(then func(sso.Credentials)) {
	provider, identity := st.s.deps.SSO, st.identity
	async(st.s, func(ctx context.Context) (sso.Credentials, error) {
		if provider == nil {
			return sso.Credentials{}, errors.New("no sso provider configured")
		}
		return provider.Credentials(ctx, identity)
	}, func(creds sso.Credentials, err error) {
		if err != nil {
			st.s.Finish(fmt.Errorf("failed to get sso credentials for identity %s: %w", identity, err))
			return
		}
		then(creds)
	})
}

func (st *ssoStrategy) startOAuth2(creds sso.Credentials) {
	switch st.mechanism {
	case MechanismOAuthBearer:
		st.client = sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
			Username: creds.Username,
			Token:    creds.AccessToken,
		})
	default:
		// X-OAUTH2 carries a PLAIN-shaped response with the token as password.
		st.client = sasl.NewPlainClient("", creds.Username, creds.AccessToken)
	}
	_, ir, err := st.client.Start()
	if err != nil {
		st.s.Finish(fmt.Errorf("failed to encode %s response: %w", st.mechanism, err))
		return
	}
	st.startWithData(ir)
}

func (st *ssoStrategy) onChallenge(challenge []byte) {
	if st.mechanism != MechanismFacebookPlatform {
		st.onOAuth2Challenge(challenge)
		return
	}

	method, nonce, err := parseFacebookChallenge(challenge)
	if err != nil {
		st.fail(&ChallengeParseError{Mechanism: st.mechanism, Err: err})
		return
	}
	st.challenges = append(st.challenges, facebookChallenge{method: method, nonce: nonce})
	if !st.answering {
		st.answerNext()
	}
}

// answerNext fetches credentials for the oldest pending challenge and queues
// its response before moving on, so responses leave in arrival order.
func (st *ssoStrategy) answerNext() {
	if len(st.challenges) == 0 {
		st.answering = false
		return
	}
	st.answering = true
	c := st.challenges[0]
	st.challenges = st.challenges[1:]
	st.withCredentials(func(creds sso.Credentials) {
		response := facebookResponse(c.method, c.nonce, creds)
		st.s.command("Respond", func(ctx context.Context) error {
			return st.ch.Respond(ctx, response)
		}, st.failOnError)
		st.answerNext()
	})
}

// onOAuth2Challenge handles a challenge after an OAuth2 initial response,
// which carries the server's error report.
func (st *ssoStrategy) onOAuth2Challenge(challenge []byte) {
	if st.client == nil {
		st.fail(&ChallengeParseError{Mechanism: st.mechanism, Err: errors.New("challenge before initial response")})
		return
	}
	_, err := st.client.Next(challenge)
	var bearerErr *sasl.OAuthBearerError
	if errors.As(err, &bearerErr) {
		// RFC 7628 requires a dummy response; the server then fails the exchange.
		st.s.debug("OAUTHBEARER error from server: %s", bearerErr.Status)
		st.s.command("Respond", func(ctx context.Context) error {
			return st.ch.Respond(ctx, []byte{0x01})
		}, st.failOnError)
		return
	}
	if err == nil {
		err = errors.New("unexpected challenge")
	}
	st.fail(&ChallengeParseError{Mechanism: st.mechanism, Err: err})
}

func (st *ssoStrategy) fail(err error) {
	st.abort(channel.AbortReasonInvalidChallenge, err.Error())
	st.s.Finish(err)
}

func parseFacebookChallenge(challenge []byte) (method, nonce string, err error) {
	values, err := url.ParseQuery(string(challenge))
	if err != nil {
		return "", "", err
	}
	method, nonce = values.Get("method"), values.Get("nonce")
	if method == "" || nonce == "" {
		return "", "", fmt.Errorf("challenge lacks method or nonce: %q", challenge)
	}
	return method, nonce, nil
}

// facebookResponse builds the response with its fields in the order the
// platform expects, which url.Values.Encode would not keep.
func facebookResponse(method, nonce string, creds sso.Credentials) []byte {
	fields := [][2]string{
		{"method", method},
		{"nonce", nonce},
		{"access_token", creds.AccessToken},
		{"api_key", creds.ClientID},
		{"call_id", facebookCallID},
		{"v", facebookVersion},
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f[0]+"="+url.QueryEscape(f[1]))
	}
	return []byte(strings.Join(parts, "&"))
}
