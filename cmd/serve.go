package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triangle-intelligence/compliance-cli/internal/alerting"
	"github.com/triangle-intelligence/compliance-cli/internal/model"
	"github.com/triangle-intelligence/compliance-cli/internal/qualification"
	"github.com/triangle-intelligence/compliance-cli/internal/resolver"
	"github.com/triangle-intelligence/compliance-cli/internal/thresholds"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the compliance API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer store.Close() //nolint:errcheck

		table, err := loadThresholds()
		if err != nil {
			return err
		}

		baseParams, err := engineParams(table, "", 0)
		if err != nil {
			return err
		}
		api := &apiServer{
			resolver: newResolver(store),
			table:    table,
			notifier: alerting.NewNotifier(cfg.Alerting.WebhookURL),
			params:   baseParams,
		}
		api.engine = qualification.New(api.resolver)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.routes(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

type apiServer struct {
	resolver *resolver.Resolver
	engine   *qualification.Engine
	table    *thresholds.Table
	notifier *alerting.Notifier
	params   qualification.Params
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/resolve", s.handleResolve)
	r.Post("/api/rates", s.handleRates)
	r.Post("/api/qualify", s.handleQualify)
	return r
}

func (s *apiServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HSCode        string `json:"hs_code"`
		OriginCountry string `json:"origin_country"`
		Field         string `json:"field"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Field == "" {
		req.Field = string(model.Section301)
	}

	res, err := s.resolver.ResolveRate(r.Context(), req.HSCode, req.OriginCountry, model.RateField(req.Field))
	if err != nil {
		zap.L().Error("resolve failed", zap.String("hs_code", req.HSCode), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "rate resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *apiServer) handleRates(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HSCode        string `json:"hs_code"`
		OriginCountry string `json:"origin_country"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rates, err := s.resolver.ResolveAllPolicyRates(r.Context(), req.HSCode, req.OriginCountry)
	if err != nil {
		zap.L().Error("rates failed", zap.String("hs_code", req.HSCode), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "rate resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

func (s *apiServer) handleQualify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Components       []model.Component `json:"components"`
		ProductHSCode    string            `json:"product_hs_code"`
		ThresholdPct     float64           `json:"threshold_pct"`
		ShipmentValueUSD float64           `json:"shipment_value_usd"`
		Notify           bool              `json:"notify"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params := s.params
	params.ShipmentValueUSD = req.ShipmentValueUSD
	if req.ProductHSCode != "" {
		params.Threshold = s.table.ForHSCode(req.ProductHSCode)
	}
	if req.ThresholdPct > 0 {
		params.Threshold = req.ThresholdPct
	}

	result, err := s.engine.Evaluate(r.Context(), req.Components, params)
	if err != nil {
		zap.L().Error("qualification failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "qualification failed")
		return
	}

	analysisID := uuid.NewString()
	if req.Notify && len(result.Alerts) > 0 {
		// Delivery outlives the request.
		go func() {
			sent := s.notifier.Send(context.Background(), analysisID, result.Alerts)
			zap.L().Info("alerts delivered",
				zap.String("analysis_id", analysisID),
				zap.Int("sent", sent),
			)
		}()
	}

	writeJSON(w, http.StatusOK, struct {
		AnalysisID string `json:"analysis_id"`
		*model.QualificationResult
	}{analysisID, result})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
