package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
)

// LoginSession completes a pending PKCE login by exchanging an authorization
// code for a credential. [session.Manager] satisfies it.
type LoginSession interface {
	CompleteLogin(ctx context.Context, code string) (*models.Credential, error)
}

// CallbackResult is the outcome of one authorization redirect: a credential
// or the error that ended the login.
type CallbackResult struct {
	Credential *models.Credential
	err        error
}

func (r *CallbackResult) Error() error {
	return r.err
}

// CallbackHandler receives the provider's authorization redirect on
// /callback. It validates the state parameter against the value issued at
// login start, then hands the code to the session manager, which holds the
// PKCE verifier and performs the exchange.
//
// A handler is good for one redirect. Repeats are answered with 400 so a
// stale browser tab cannot replay the login.
type CallbackHandler struct {
	session LoginSession
	state   string

	seen    atomic.Bool
	once    sync.Once
	results chan CallbackResult
}

// NewCallbackHandler creates a callback handler expecting the given state
// token. The state token comes from the session manager's BeginLogin.
func NewCallbackHandler(session LoginSession, state string) *CallbackHandler {
	return &CallbackHandler{
		session: session,
		state:   state,
		results: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the authorization redirect.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.seen.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()

	if query.Get("state") != h.state {
		h.send(CallbackResult{err: fmt.Errorf("%w: state parameter mismatch", shared.ErrAuthExchange)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthExchange, query.Get("error"), query.Get("error_description"))
		h.send(CallbackResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	cred, err := h.session.CompleteLogin(r.Context(), code)
	if err != nil {
		h.send(CallbackResult{err: err})
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	h.send(CallbackResult{Credential: cred})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, confirmationPage)
}

// send delivers the result and closes the channel. Only the first call wins;
// every error path and the success path funnel through here.
func (h *CallbackHandler) send(result CallbackResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result returns the channel the login outcome arrives on. It receives
// exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.results
}

const confirmationPage = `<!DOCTYPE html>
<html>
<head>
    <title>AlgoRhythms</title>
    <style>
        body { font-family: system-ui, sans-serif; background: #121212; color: #eee;
               display: grid; place-items: center; min-height: 100vh; margin: 0; }
        main { text-align: center; }
        h1 { font-weight: 600; }
        p { color: #9a9a9a; }
    </style>
</head>
<body>
    <main>
        <h1>Login Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </main>
</body>
</html>
`
