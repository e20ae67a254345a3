package web

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/ergydev/billed/internal/flow"
	"github.com/ergydev/billed/internal/session"
	"github.com/ergydev/billed/internal/store"
)

// ReceiptFiles serves stored receipt files by name
type ReceiptFiles interface {
	File(name string) ([]byte, error)
}

// Server binds the bill flows to HTTP requests for a single user session.
// Requests are serialized: the server owns one new bill form.
type Server struct {
	bills *flow.Bills
	form  *flow.NewBill
	files ReceiptFiles
	mux   *http.ServeMux

	mu  sync.Mutex
	nav navigator
}

// navigator remembers the last route a flow asked for
type navigator struct {
	route string
}

func (n *navigator) Navigate(route string) {
	n.route = route
}

// take returns and clears the pending route
func (n *navigator) take() string {
	route := n.route
	n.route = ""
	return route
}

// NewServer creates a new Server with default mux. files may be nil.
func NewServer(st store.Store, sess session.Session, files ReceiptFiles, logger *slog.Logger) *Server {
	return NewServerWithMux(st, sess, files, logger, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(st store.Store, sess session.Session, files ReceiptFiles, logger *slog.Logger, mux *http.ServeMux) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		files: files,
		mux:   mux,
	}
	s.bills = flow.NewBills(st, &s.nav, logger)
	s.form = flow.NewNewBill(st, sess, &s.nav, logger)
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// serialized runs handlers one at a time
func (s *Server) serialized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/bills/new", s.serialized(s.handleNewBill))
	s.mux.HandleFunc("GET /api/bills/{id}/receipt", s.serialized(s.handleReceipt))
	s.mux.HandleFunc("GET /api/bills", s.serialized(s.handleListBills))
	s.mux.HandleFunc("POST /api/bills/file", s.serialized(s.handleSelectFile))
	s.mux.HandleFunc("POST /api/bills", s.serialized(s.handleSubmit))

	if s.files != nil {
		s.mux.HandleFunc("GET /files/{name}", s.handleFile)
	}
}

// Handler returns the mux wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
