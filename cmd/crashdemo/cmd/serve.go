package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crashhook/sdk-go/event"
	"github.com/crashhook/sdk-go/integration"
	"github.com/crashhook/sdk-go/panics"
	"github.com/crashhook/sdk-go/plugin"
)

const (
	// HTTPPort is tried first; when it is taken the server falls back to
	// an ephemeral port.
	HTTPPort         = 6060
	HTTPPortFallback = 0
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve metrics and crash triggers over HTTP",
	Long: `Serve metrics and crash triggers over HTTP.

Endpoints:
  /metrics            prometheus metrics, including crash counters
  /debug/stats        sink client counters as JSON
  /debug/pprof/       runtime profiles
  POST /bridge/{cmd}  forward an "event" or "breadcrumb" bridge command
  POST /crash         panic on a guarded goroutine`,
	RunE: runServe,
}

var serveHost string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "localhost",
		"host address to bind to")
}

func runServe(c *cobra.Command, _ []string) error {
	p, logger, err := setup(c.Context())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(integration.Collectors()...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	mux.HandleFunc("/debug/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p.Client().Stats())
	})
	mux.HandleFunc("/bridge/", bridgeHandler(p, logger))
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.Breadcrumb(&event.Breadcrumb{Category: "http", Message: "crash requested by " + r.RemoteAddr})
		w.WriteHeader(http.StatusAccepted)
		panics.Go(func() {
			panic("crash requested over HTTP")
		})
	})

	l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", serveHost, HTTPPort))
	if err != nil {
		l, err = net.Listen("tcp", fmt.Sprintf("%s:%d", serveHost, HTTPPortFallback))
		if err != nil {
			_ = p.Close()
			return fmt.Errorf("failed to start http listener: %w", err)
		}
	}
	logger.Info("serving", zap.String("addr", l.Addr().String()))

	srv := &http.Server{Handler: mux}
	errCh := make(chan error, 1)
	panics.Go(func() {
		errCh <- srv.Serve(l)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	_ = srv.Close()
	p.OnExit()
	return p.Close()
}

func bridgeHandler(p *plugin.Plugin, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		cmd := r.URL.Path[len("/bridge/"):]
		res, err := p.Invoke(cmd, body)
		switch {
		case errors.Is(err, plugin.ErrUnknownCommand):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		logger.Debug("bridge command", zap.String("cmd", cmd))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": res})
	}
}
