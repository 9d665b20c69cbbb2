package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"exohabit/controller"
	"exohabit/monitoring"
	"exohabit/planet"
	"exohabit/scoring"
)

const pingTimeout = 3 * time.Second

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("POST /api/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/ws/dashboard", s.hub.HandleWebSocket)
	mux.Handle("GET /api/metrics", s.metrics.Handler())
}

type errorResponse struct {
	Error    string `json:"error"`
	Field    string `json:"field,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Detail   string `json:"detail,omitempty"`
	ErrorBox string `json:"error_box,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	upstream := "ok"
	if err := s.scorer.Ping(ctx); err != nil {
		upstream = "offline"
	}
	animations := make([]map[string]interface{}, 0, len(s.tasks))
	for _, t := range s.tasks {
		animations = append(animations, t.GetStats())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"upstream":   upstream,
		"in_flight":  s.ctrl.InFlight(),
		"hub":        s.hub.Stats(),
		"animations": animations,
		"system":     s.metrics.GetSystemStats(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"display":   s.display.Snapshot(),
		"form":      s.form.Values(),
		"in_flight": s.ctrl.InFlight(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	recent := s.display.Recent()
	writeJSON(w, http.StatusOK, map[string]any{
		"outcomes": recent,
		"count":    len(recent),
	})
}

// handlePredict 替换表单内容并提交；进行中的请求会被取消
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	values, ok := s.readForm(w, r)
	if !ok {
		return
	}
	s.form.Set(values)

	started := time.Now()
	outcome, err := s.ctrl.SubmitValues(r.Context(), values)
	s.metrics.RecordPrediction(predictionResult(err), time.Since(started))
	if err != nil {
		s.writeSubmitError(w, r, err)
		return
	}
	s.logger.Debug("prediction served",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("submission", outcome.ID),
		zap.Duration("elapsed", time.Since(GetStartTime(r.Context()))))
	writeJSON(w, http.StatusOK, outcome)
}

func predictionResult(err error) string {
	var verr *planet.ValidationError
	var reqErr *scoring.RequestError
	switch {
	case err == nil:
		return monitoring.ResultOK
	case errors.As(err, &verr):
		return monitoring.ResultInvalid
	case errors.As(err, &reqErr):
		return monitoring.ResultUpstream
	case errors.Is(err, controller.ErrSuperseded), errors.Is(err, controller.ErrInFlight):
		return monitoring.ResultSuperseded
	default:
		return monitoring.ResultAbandoned
	}
}

// handleValidate 只更新表单并校验，不访问远程服务
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	values, ok := s.readForm(w, r)
	if !ok {
		return
	}
	s.form.Set(values)

	if err := s.ctrl.Validate(); err != nil {
		s.writeSubmitError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	wasInFlight := s.ctrl.InFlight()
	s.ctrl.Cancel()
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": wasInFlight})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Refresh(r.Context())
	snap := s.display.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":   snap.Stats,
		"ranking": snap.Ranking,
	})
}

func (s *Server) readForm(w http.ResponseWriter, r *http.Request) (planet.RawValues, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}
	values, err := decodeForm(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid form", Detail: err.Error()})
		return nil, false
	}
	return values, true
}

func (s *Server) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *planet.ValidationError
	var reqErr *scoring.RequestError

	switch {
	case errors.As(err, &verr):
		resp := errorResponse{
			Error:  controller.MsgInvalidInput,
			Field:  string(verr.Field),
			Reason: verr.Reason,
			Detail: verr.Error(),
		}
		if verr.Reason == planet.ReasonOutOfRange {
			resp.ErrorBox = controller.MsgLimitsExceeded
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.As(err, &reqErr):
		writeError(w, http.StatusBadGateway, scoring.ConnectionFailed)
	case errors.Is(err, controller.ErrSuperseded), errors.Is(err, controller.ErrInFlight):
		writeError(w, http.StatusConflict, err.Error())
	default:
		// 客户端断开或服务关闭
		s.logger.Debug("submission abandoned",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
