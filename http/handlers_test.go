package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"exohabit/config"
	"exohabit/controller"
	"exohabit/monitoring"
	"exohabit/planet"
	"exohabit/scoring"
)

const earthForm = `{"pl_rade":"1.0","pl_eqt":288,"pl_orbper":"365","st_teff":5778,"st_mass":"1.0","st_rad":1}`

type upstream struct {
	predictBody atomic.Value
	down        atomic.Bool
	hits        atomic.Int32
}

func (u *upstream) start(t *testing.T) *scoring.Client {
	t.Helper()
	u.predictBody.Store(`{"prediction":1,"habitability_score":0.87}`)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict", func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		if u.down.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(u.predictBody.Load().(string)))
	})
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_planets":4000,"habitable_count":12,"avg_score":0.31}`))
	})
	mux.HandleFunc("GET /rank", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":[{"pl_name":"TRAPPIST-1 e","habitability_score":0.9}]}`))
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		if u.down.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return scoring.NewClient(srv.URL, srv.Client(), nil)
}

func newTestServer(t *testing.T, scorer controller.Scorer) (*Server, *httptest.Server) {
	t.Helper()
	cfg := ServerConfigFrom(config.Default())
	cfg.BootDelay = 0
	s, err := NewServer(cfg, scorer, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.startBackground(ctx)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		s.stopAnimations()
	})
	return s, ts
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestHealthHandler(t *testing.T) {
	up := &upstream{}
	_, ts := newTestServer(t, up.start(t))

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "ok", payload["upstream"])
}

func TestApplyDisplayRetimesAnimations(t *testing.T) {
	up := &upstream{}
	s, ts := newTestServer(t, up.start(t))

	d := config.Default().Display
	d.RadarInterval = 50 * time.Millisecond
	require.NoError(t, s.ApplyDisplay(d))

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var payload struct {
		Animations []struct {
			Name     string `json:"name"`
			Interval string `json:"interval"`
		} `json:"animations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Animations, 3)
	assert.Equal(t, "radar", payload.Animations[1].Name)
	assert.Equal(t, "50ms", payload.Animations[1].Interval)

	d.PulseInterval = 0
	assert.Error(t, s.ApplyDisplay(d))
}

func TestPredictSuccess(t *testing.T) {
	up := &upstream{}
	s, ts := newTestServer(t, up.start(t))

	resp, payload := post(t, ts.URL+"/api/predict", earthForm)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Prediction: 1 | Habitability Score: 87.00%", payload["text"])
	assert.Equal(t, 87.0, payload["bar_percent"])

	snap := s.Display().Snapshot()
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, statsPanel("4,000", "12", "31.0%"), snap.Stats)
	require.Len(t, snap.Ranking, 1)
	assert.Equal(t, "TRAPPIST-1 e", snap.Ranking[0].Name)
	assert.Equal(t, "1.0", s.form.Values()[planet.Radius])
}

func TestPredictValidationError(t *testing.T) {
	up := &upstream{}
	_, ts := newTestServer(t, up.start(t))

	body := strings.Replace(earthForm, `"pl_eqt":288`, `"pl_eqt":5000`, 1)
	resp, payload := post(t, ts.URL+"/api/predict", body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, controller.MsgInvalidInput, payload["error"])
	assert.Equal(t, "pl_eqt", payload["field"])
	assert.Equal(t, controller.MsgLimitsExceeded, payload["error_box"])

	body = strings.Replace(earthForm, `"st_mass":"1.0"`, `"st_mass":"heavy"`, 1)
	resp, payload = post(t, ts.URL+"/api/predict", body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, planet.ReasonNonNumeric, payload["reason"])
	assert.Nil(t, payload["error_box"])

	assert.Zero(t, up.hits.Load())
}

func TestPredictUpstreamFailure(t *testing.T) {
	up := &upstream{}
	s, ts := newTestServer(t, up.start(t))
	up.down.Store(true)

	resp, payload := post(t, ts.URL+"/api/predict", earthForm)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, scoring.ConnectionFailed, payload["error"])
	assert.Equal(t, controller.MsgConnectionFailed, s.Display().Snapshot().Message)
	assert.False(t, s.Controller().InFlight())
}

func TestMetricsEndpoint(t *testing.T) {
	up := &upstream{}
	_, ts := newTestServer(t, up.start(t))

	post(t, ts.URL+"/api/predict", earthForm)
	post(t, ts.URL+"/api/predict", strings.Replace(earthForm, `"st_rad":1`, `"st_rad":""`, 1))
	up.down.Store(true)
	post(t, ts.URL+"/api/predict", earthForm)

	resp, err := http.Get(ts.URL + "/api/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	body := buf.String()
	assert.Contains(t, body, `exohabit_predictions_total{result="ok"} 1`)
	assert.Contains(t, body, `exohabit_predictions_total{result="invalid"} 1`)
	assert.Contains(t, body, `exohabit_predictions_total{result="upstream_error"} 1`)
	assert.Contains(t, body, "exohabit_prediction_duration_seconds_count 1")
}

func TestPredictBadBody(t *testing.T) {
	up := &upstream{}
	_, ts := newTestServer(t, up.start(t))

	for _, body := range []string{
		`[1,2,3]`,
		`null`,
		`{"pl_rade": true}`,
		`{"pl_eqt": {"a": 1}}`,
		`{"st_mass": [1]}`,
	} {
		resp, payload := post(t, ts.URL+"/api/predict", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "invalid form", payload["error"], body)
	}
	assert.Zero(t, up.hits.Load())
}

func TestDecodeForm(t *testing.T) {
	values, err := decodeForm([]byte(`{"pl_rade":"1.5 AU","pl_eqt":288,"st_teff":5.778e3,"st_mass":null,"extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, planet.RawValues{
		planet.Radius:                 "1.5 AU",
		planet.EquilibriumTemp:    "288",
		planet.StellarTemperature:     "5.778e3",
		planet.StellarMass:            "",
	}, values)

	_, err = decodeForm([]byte(`{"pl_rade": false}`))
	assert.Error(t, err)
}

type blockingScorer struct {
	started chan struct{}
}

func (b *blockingScorer) Predict(ctx context.Context, req planet.PredictionRequest) (*scoring.Prediction, error) {
	b.started <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingScorer) Stats(ctx context.Context) (*scoring.Stats, error) {
	return &scoring.Stats{}, nil
}

func (b *blockingScorer) Rank(ctx context.Context, limit int) (*scoring.Ranking, error) {
	return &scoring.Ranking{}, nil
}

func (b *blockingScorer) Ping(ctx context.Context) error { return nil }

func TestPredictSupersededAndCancel(t *testing.T) {
	scorer := &blockingScorer{started: make(chan struct{}, 2)}
	_, ts := newTestServer(t, scorer)

	first := make(chan int, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/api/predict", "application/json", strings.NewReader(earthForm))
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()
	<-scorer.started

	second := make(chan int, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/api/predict", "application/json", strings.NewReader(earthForm))
		if err != nil {
			second <- 0
			return
		}
		resp.Body.Close()
		second <- resp.StatusCode
	}()
	<-scorer.started

	select {
	case code := <-first:
		assert.Equal(t, http.StatusConflict, code)
	case <-time.After(5 * time.Second):
		t.Fatal("first submission was not superseded")
	}

	resp, payload := post(t, ts.URL+"/api/cancel", ``)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["cancelled"])

	select {
	case code := <-second:
		assert.Equal(t, http.StatusConflict, code)
	case <-time.After(5 * time.Second):
		t.Fatal("second submission was not cancelled")
	}
}

func TestValidateHandler(t *testing.T) {
	up := &upstream{}
	_, ts := newTestServer(t, up.start(t))

	resp, payload := post(t, ts.URL+"/api/validate", earthForm)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["valid"])

	resp, payload = post(t, ts.URL+"/api/validate", `{"pl_rade":"1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "pl_eqt", payload["field"])
	assert.Zero(t, up.hits.Load())
}

func TestRefreshAndState(t *testing.T) {
	up := &upstream{}
	_, ts := newTestServer(t, up.start(t))

	resp, payload := post(t, ts.URL+"/api/refresh", ``)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"total": "4,000", "habitable": "12", "avg_score": "31.0%"}, payload["stats"])

	get, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	defer get.Body.Close()
	var state map[string]any
	require.NoError(t, json.NewDecoder(get.Body).Decode(&state))
	assert.Equal(t, false, state["in_flight"])
	assert.Contains(t, state, "display")
}

func TestCORSPreflight(t *testing.T) {
	up := &upstream{}
	_, ts := newTestServer(t, up.start(t))

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/predict", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := Chain(RecoveryMiddleware(zap.NewNop()), LoggerMiddleware(zap.NewNop()))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}

func TestRequestSizeLimit(t *testing.T) {
	up := &upstream{}
	_, ts := newTestServer(t, up.start(t))

	big := bytes.Repeat([]byte("x"), maxBodyBytes+1)
	resp, err := http.Post(ts.URL+"/api/predict", "application/json", bytes.NewReader(big))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestDashboardWebSocket(t *testing.T) {
	up := &upstream{}
	s, ts := newTestServer(t, up.start(t))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/ws/dashboard", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var greeting monitoring.Message
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, monitoring.SnapshotMessage, greeting.Type)

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	resp, _ := post(t, ts.URL+"/api/predict", earthForm)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for {
		var msg monitoring.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == monitoring.ResultMessage {
			var outcome controller.Outcome
			require.NoError(t, json.Unmarshal(msg.Data, &outcome))
			assert.Equal(t, 87.0, outcome.ScorePercent)
			return
		}
	}
}

// statsPanel builds an expected stats panel.
func statsPanel(total, habitable, avg string) monitoring.StatsPanel {
	return monitoring.StatsPanel{Total: total, Habitable: habitable, AvgScore: avg}
}
