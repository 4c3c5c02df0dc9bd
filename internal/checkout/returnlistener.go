package checkout

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/sajilostore/storefront/internal/logging"
)

// ReturnListener is a short-lived local HTTP server that catches the
// gateway's return redirect while an online payment is outstanding.
type ReturnListener struct {
	addr    string
	logger  *logging.Logger
	returns chan GatewayReturn

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewReturnListener creates a listener bound to addr when started.
func NewReturnListener(addr string, logger *logging.Logger) *ReturnListener {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ReturnListener{
		addr:    addr,
		logger:  logger,
		returns: make(chan GatewayReturn, 1),
	}
}

// Start binds the listener and begins serving the return route.
func (l *ReturnListener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}

	router := mux.NewRouter()
	router.HandleFunc("/payment/success", l.handleReturn).Methods(http.MethodGet)
	router.HandleFunc("/payment/failed", l.handleReturn).Methods(http.MethodGet)

	server := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}

	l.mu.Lock()
	l.server = server
	l.listener = ln
	l.mu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			l.logger.WithError(err).Warn("return listener stopped")
		}
	}()

	l.logger.WithField("addr", ln.Addr().String()).Debug("return listener started")
	return nil
}

func (l *ReturnListener) handleReturn(w http.ResponseWriter, r *http.Request) {
	ret := GatewayReturnFromQuery(r.URL.Query())

	select {
	case l.returns <- ret:
	default:
		// A return was already captured; later hits are ignored.
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><p>Payment response received. You can return to the storefront.</p></body></html>")
}

// URL returns the base URL of the running listener.
func (l *ReturnListener) URL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return ""
	}
	return "http://" + l.listener.Addr().String()
}

// Wait blocks until the gateway redirects back or ctx expires. A ctx
// expiry means the user never returned; the caller should treat the saga
// as abandoned.
func (l *ReturnListener) Wait(ctx context.Context) (GatewayReturn, error) {
	select {
	case <-ctx.Done():
		return GatewayReturn{}, ctx.Err()
	case ret := <-l.returns:
		return ret, nil
	}
}

// Shutdown stops the listener.
func (l *ReturnListener) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	server := l.server
	l.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
