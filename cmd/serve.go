package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter wires the read-only routes over st.
func buildRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			filter := store.RunFilter{Status: model.RunStatus(req.URL.Query().Get("status"))}
			for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
				raw := req.URL.Query().Get(key)
				if raw == "" {
					continue
				}
				n, err := strconv.Atoi(raw)
				if err != nil || n < 0 {
					writeError(w, http.StatusBadRequest, key+" must be a non-negative integer")
					return
				}
				*dst = n
			}
			runs, err := st.ListRuns(req.Context(), filter)
			if err != nil {
				storeError(w, err)
				return
			}
			if runs == nil {
				runs = []model.Run{}
			}
			writeJSON(w, http.StatusOK, runs)
		})

		r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				storeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, run)
		})

		r.Get("/{id}/legislatures", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			if !runExists(w, req, st, id) {
				return
			}
			records, err := st.LoadLegislatures(req.Context(), id)
			if err != nil {
				storeError(w, err)
				return
			}
			if records == nil {
				records = []model.PersonLegislature{}
			}
			writeJSON(w, http.StatusOK, records)
		})

		r.Get("/{id}/person-years", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			if !runExists(w, req, st, id) {
				return
			}
			rows, err := st.LoadPersonYears(req.Context(), id, req.URL.Query().Get("legislature"))
			if err != nil {
				storeError(w, err)
				return
			}
			if rows == nil {
				rows = []model.PersonYear{}
			}
			writeJSON(w, http.StatusOK, rows)
		})

		r.Get("/{id}/audit", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			if !runExists(w, req, st, id) {
				return
			}
			events, err := st.ListAudit(req.Context(), id)
			if err != nil {
				storeError(w, err)
				return
			}
			if events == nil {
				events = []model.AuditEvent{}
			}
			writeJSON(w, http.StatusOK, events)
		})
	})

	return r
}

// runExists writes a 404 and reports false when the run is unknown.
func runExists(w http.ResponseWriter, req *http.Request, st store.Store, id string) bool {
	if _, err := st.GetRun(req.Context(), id); err != nil {
		storeError(w, err)
		return false
	}
	return true
}

func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	zap.L().Error("api: store error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
