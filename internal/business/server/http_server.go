package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/txsession/internal/config"
	"github.com/openkcm/txsession/internal/middleware/responsewriter"
	"github.com/openkcm/txsession/internal/middleware/transaction"
	"github.com/openkcm/txsession/internal/post"
	"github.com/openkcm/txsession/pkg/txsession"
)

// createHTTPServer creates an API http server using the given config.
// Every /posts request runs as one transaction on a session of manager.
func createHTTPServer(_ context.Context, cfg *config.Config, manager *txsession.Manager, service *post.Service) *http.Server {
	traced := newTraceMiddleware(cfg)
	posts := newPostsHandler(service)

	inTx := transaction.TransactionMiddleware(manager, transaction.WithCounter(txCounter))

	router := chi.NewRouter()
	router.Use(responsewriter.ResponseWriterMiddleware)

	router.With(traced("ping")).Get("/ping", pingHandlerFunc)

	router.Route("/posts", func(r chi.Router) {
		r.With(traced("listPosts"), inTx).Get("/", posts.list)
		r.With(traced("createPost"), inTx).Post("/", posts.create)
		r.With(traced("getPost"), inTx).Get("/{id}", posts.get)
		r.With(traced("updatePost"), inTx).Put("/{id}", posts.update)
		r.With(traced("deletePost"), inTx).Delete("/{id}", posts.delete)
	})

	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}
}

// StartHTTPServer starts the HTTP server using the given config and blocks
// until ctx is done.
func StartHTTPServer(ctx context.Context, cfg *config.Config, manager *txsession.Manager, service *post.Service) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server := createHTTPServer(ctx, cfg, manager, service)

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	// Parse network if the address if provided in the format of network://address.
	// Otherwise use tcp network by default.
	network := "tcp"
	if idx := strings.IndexRune(server.Addr, ':'); idx != -1 && len(server.Addr) > idx+3 && server.Addr[idx:idx+3] == "://" {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
