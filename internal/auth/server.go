package auth

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

// CompleteFunc finishes a registration once the consent redirect arrives:
// it receives the resolved pending flow and the authorization code.
type CompleteFunc func(ctx context.Context, pending PendingAuth, code string) error

// CallbackServer receives OAuth consent redirects for all users' pending
// flows and hands each authorization code to the completion handler.
type CallbackServer struct {
	flow     *Flow
	complete CompleteFunc
	server   *http.Server
}

// NewCallbackServer creates a callback server over the given flow registry.
func NewCallbackServer(flow *Flow, complete CompleteFunc) *CallbackServer {
	return &CallbackServer{flow: flow, complete: complete}
}

// Start listens on addr and serves consent redirects until Shutdown.
// Returns the URL the OAuth config must use as its redirect URL.
func (s *CallbackServer) Start(addr string) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server: %w", err)
	}

	redirectURL := fmt.Sprintf("http://%s", listener.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Warning: callback server error: %v", err)
		}
	}()

	return redirectURL, nil
}

// Shutdown stops the callback server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>Error: %s</p></body></html>", errMsg)
		return
	}

	if state == "" || code == "" {
		fmt.Fprintf(w, "<html><body><h1>No authorization code received</h1></body></html>")
		return
	}

	pending, ok := s.flow.Take(state)
	if !ok {
		fmt.Fprintf(w, "<html><body><h1>Unknown or expired authorization request</h1><p>Start the registration again from chat.</p></body></html>")
		return
	}

	if err := s.complete(r.Context(), pending, code); err != nil {
		log.Printf("Warning: failed to complete registration for user %s: %v", pending.UserID, err)
		fmt.Fprintf(w, "<html><body><h1>Registration failed</h1><p>%s</p></body></html>", err)
		return
	}

	fmt.Fprintf(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
}
