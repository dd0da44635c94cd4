package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voicelink/voicelink/server/logger"
	"github.com/voicelink/voicelink/server/multierr"
)

// NewOpsMux builds the optional HTTP surface: health probe, a status
// snapshot of the registries, and token-gated prometheus metrics.
func NewOpsMux(log logger.Logger, relay *Server, prom PrometheusConfig) *chi.Mux {
	log = log.WithNamespaceAppended("ops")

	handler := chi.NewRouter()

	handler.Get("/probes/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	})

	handler.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"users": relay.Registry().Names().Strings(),
			"voice": relay.VoiceState().Stats(),
		}

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Error("Encode status", errors.Trace(err), nil)
		}
	})

	handler.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		accessToken := r.Header.Get("Authorization")
		if strings.HasPrefix(accessToken, "Bearer ") {
			accessToken = accessToken[len("Bearer "):]
		} else {
			accessToken = r.FormValue("access_token")
		}

		if accessToken == "" || accessToken != prom.AccessToken {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		promhttp.Handler().ServeHTTP(w, r)
	})

	return handler
}

// OpsServer serves the ops mux until its context is done.
type OpsServer struct {
	server *http.Server
}

func NewOpsServer(handler http.Handler) *OpsServer {
	return &OpsServer{
		server: &http.Server{Handler: handler},
	}
}

func (s *OpsServer) Start(ctx context.Context, l net.Listener) error {
	startErrCh := make(chan error, 1)

	go func() {
		defer close(startErrCh)

		startErrCh <- errors.Annotate(s.server.Serve(l), "serve ops")
	}()

	select {
	case <-ctx.Done():
	case err := <-startErrCh:
		return errors.Trace(err)
	}

	err := errors.Trace(s.server.Close())

	if startErr := <-startErrCh; startErr != nil {
		err = errors.Trace(startErr)
	}

	if !multierr.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}

	return nil
}
