// Package httpapi serves image deduplication over HTTP.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wudi/pdfdedup/optimize"
	"github.com/wudi/pdfdedup/pdfcpugraph"
)

// HeaderImagesRemoved carries the removal count on PDF responses.
const HeaderImagesRemoved = "X-Images-Removed"

// Service runs uploaded documents through an Optimizer.
type Service struct {
	opt          *optimize.Optimizer
	logger       *slog.Logger
	maxBodyBytes int64
}

// New builds a Service. maxBodyBytes <= 0 selects 64 MiB.
func New(opt *optimize.Optimizer, logger *slog.Logger, maxBodyBytes int64) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 64 << 20
	}
	return &Service{opt: opt, logger: logger, maxBodyBytes: maxBodyBytes}
}

// Router returns a chi router with all endpoints mounted.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the endpoints on r.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Post("/v1/dedup", s.handleDedup)
}

func (s *Service) handleDedup(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "document too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	pdf, err := pdfcpugraph.Read(bytes.NewReader(body), nil)
	if err != nil {
		s.logger.Info("rejected document", "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	g := pdfcpugraph.New(pdf)

	res, err := s.opt.Run(r.Context(), g)
	if err != nil {
		s.logger.Error("image deduplication failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
		return
	}

	var out bytes.Buffer
	if err := g.Write(&out); err != nil {
		s.logger.Error("write document failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set(HeaderImagesRemoved, strconv.Itoa(res.Removed))
	w.Write(out.Bytes())
}
