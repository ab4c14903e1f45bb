package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgnsrekt/wa_relay/internal/account"
	"github.com/dgnsrekt/wa_relay/internal/types"
)

type Service interface {
	History() []types.Record
	ViewerCount() int
	Send(ctx context.Context, to, text string) error
	AccountStatus() account.Status
}

// Options configures the optional parts of the HTTP surface.
type Options struct {
	// Push serves the viewer channel at /ws. Nil disables it.
	Push http.Handler
	// CORSOrigins enables CORS on the REST API when non-empty.
	CORSOrigins []string
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, viewerPageHTML)
	})
	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, docsHTML)
	})
	router.Handle("/metrics", promhttp.Handler())
	if opts.Push != nil {
		router.Handle("/ws", opts.Push)
	}

	router.Group(func(r chi.Router) {
		if len(opts.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: opts.CORSOrigins,
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
				MaxAge:         300,
			}))
		}

		cfg := huma.DefaultConfig("Chat Relay API", "1.0.0")
		cfg.DocsPath = ""
		api := humachi.New(r, cfg)

		registerRelayHandlers(api, svc)
	})

	return router
}

func writeHTML(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(page)); err != nil {
		slog.Debug("page response write failed", "error", err)
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *types.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case types.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case types.CodeAccountUnavailable, types.CodeRelayStopped:
			return huma.Error503ServiceUnavailable(coded.Message)
		case types.CodeAccountTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case types.CodeAccountRejected:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
