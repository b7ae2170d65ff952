package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"transopt/internal/config"
	"transopt/internal/logging"
	"transopt/internal/phrasestore"
	"transopt/internal/service"
)

func main() {
	cfg, logger, err := loadConfig(getenv("TRANSOPT_CONFIG", "transopt.yaml"))
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer logger.Sync()

	res, err := cfg.Assemble(nil, logger)
	if err != nil {
		logger.Fatal("init error", zap.Error(err))
	}
	defer res.Close()

	svc := service.New(res, cfg.Options(), logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/options", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req service.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
			return
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		result, err := svc.Translate(r.Context(), req)
		if errors.Is(err, service.ErrBadConstraint) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			logger.Error("build failed", zap.String("request_id", req.ID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	mux.HandleFunc("/api/v1/custom-phrase", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Table     string    `json:"table"`
			Source    string    `json:"source"`
			Target    string    `json:"target"`
			Probs     []float64 `json:"probs"`
			Alignment string    `json:"alignment"`
		}
		switch r.Method {
		case http.MethodPost, http.MethodDelete:
		default:
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Source == "" || req.Target == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
			return
		}
		st, err := svc.Store(req.Table)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		if r.Method == http.MethodDelete {
			if err := st.Remove(r.Context(), req.Source, req.Target); err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		if len(req.Probs) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "probs are required"})
			return
		}
		err = st.Add(r.Context(), req.Source, req.Target, req.Probs, req.Alignment)
		if errors.Is(err, phrasestore.ErrInvalidPhrase) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/v1/custom-phrase/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/api/v1/custom-phrase/")
		if name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table is required"})
			return
		}
		st, err := svc.Store(name)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		sources, err := st.Sources(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"table": name, "sources": sources})
	})

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := http.ListenAndServe(cfg.HTTP.Addr, mux); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// loadConfig reads the configuration at path and builds the logger it names.
func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
