// Package httpapi wires the HTTP surface of the invoice service.
// It keeps handlers thin, delegating rounding and persistence rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/invoices/internal/service/invoicing"
)

// Server wires handlers and middleware using Chi.
// It composes the read (repo) and write (writer) dependencies through the invoicing service.
type Server struct {
	svc    invoicing.Service
	repo   invoicing.Repo
	writer invoicing.Writer
	log    *slog.Logger
	rt     *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by request logging, panic recovery and database error reporting.
func New(repo invoicing.Repo, writer invoicing.Writer, logger *slog.Logger, opts ...invoicing.Option) *Server {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(logger))
	r.Use(metricsMiddleware)
	r.Use(recoverer(logger))

	s := &Server{
		svc:    invoicing.New(repo, writer, opts...),
		repo:   repo,
		writer: writer,
		rt:     r,
		log:    logger,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// General information
	s.rt.Get("/GetAllInvoiceGeneral", s.listInvoices)
	s.rt.Get("/GetInvoiceGeneral", s.getInvoice)
	s.rt.Get("/GetInvoicesFromDate", s.invoicesToday)
	s.rt.Get("/InvoicesDateRange", s.invoicesInRange)
	s.rt.Get("/GetInvoiceSummary", s.invoiceSummary)
	// Details
	s.rt.Get("/GetAllDetails", s.listDetails)
	s.rt.Get("/GetDetails", s.getDetails)
	// Writes
	s.rt.With(s.validateAddInvoice()).Post("/AddInvoice", s.addInvoice)
	s.rt.With(s.validateUpdateInvoice()).Put("/Update", s.updateInvoice)
	s.rt.Delete("/DeleteInvoice", s.deleteInvoice)
	// Health and metrics
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
