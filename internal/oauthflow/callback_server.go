package oauthflow

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"authhandler/pkg/logging"
)

// CallbackTimeout is how long Authorize waits for the redirect by default.
const CallbackTimeout = 10 * time.Minute

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

//go:embed templates/callback_relay.html
var callbackRelayHTML string

var (
	successTmpl = template.Must(template.New("success").Parse(callbackSuccessHTML))
	errorTmpl   = template.Must(template.New("error").Parse(callbackErrorHTML))
)

// CallbackServer is a loopback HTTP server that receives one authorization
// redirect and then shuts down.
type CallbackServer struct {
	port    int
	account string

	server      *http.Server
	listener    net.Listener
	redirectURI string

	resultCh chan *CallbackResult
	errorCh  chan error
	once     sync.Once
	stopOnce sync.Once
}

// NewCallbackServer creates a server on port. Port 0 picks a free port.
// account is only used in the page shown to the user.
func NewCallbackServer(port int, account string) *CallbackServer {
	return &CallbackServer{
		port:     port,
		account:  account,
		resultCh: make(chan *CallbackResult, 1),
		errorCh:  make(chan error, 1),
	}
}

// Start listens on 127.0.0.1 and returns the redirect URI to register with
// the authorization request. The server stops when ctx is cancelled.
func (s *CallbackServer) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.redirectURI = fmt.Sprintf("http://localhost:%d/callback", s.port)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	logging.Debug("OAuthFlow", "Callback server listening on %s", s.redirectURI)
	return s.redirectURI, nil
}

// RedirectURI returns the URI Start returned.
func (s *CallbackServer) RedirectURI() string {
	return s.redirectURI
}

// Port returns the port the server listens on.
func (s *CallbackServer) Port() int {
	return s.port
}

// WaitForCallback blocks until a redirect arrives, the server fails, or ctx ends.
func (s *CallbackServer) WaitForCallback(ctx context.Context) (*CallbackResult, error) {
	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errorCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	result := resultFromValues(r.URL.Query())
	if result.empty() {
		// The response may be in the fragment, which browsers never send.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'unsafe-inline'")
		_, _ = w.Write([]byte(callbackRelayHTML))
		return
	}

	handled := false
	s.once.Do(func() {
		handled = true
		s.respond(w, result)
	})
	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

func (s *CallbackServer) respond(w http.ResponseWriter, result *CallbackResult) {
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")

	var err error
	if result.IsError() {
		err = errorTmpl.Execute(w, map[string]string{
			"Error":       result.Error,
			"Description": result.ErrorDescription,
		})
	} else {
		err = successTmpl.Execute(w, map[string]string{"Account": s.account})
	}
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}

	select {
	case s.resultCh <- result:
	default:
	}

	// Let the response flush before shutting down.
	go func() {
		time.Sleep(time.Second)
		s.Stop()
	}()
}

// Stop shuts the server down. It is safe to call more than once.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}
