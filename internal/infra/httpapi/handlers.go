// Package httpapi exposes the trigger, queue, health, config and report endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"birthday_notification_bot/internal/app"
	"birthday_notification_bot/internal/domain/notification"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type HealthChecker interface {
	Check(ctx context.Context) *app.HealthReport
}

type ReportGenerator interface {
	Generate(ctx context.Context) (*notification.Report, error)
}

type Deps struct {
	// BaseContext bounds runs started over HTTP. A client disconnect does not abort a batch; shutdown does.
	BaseContext   context.Context
	Notifications app.NotificationService
	Health        HealthChecker
	Reports       ReportGenerator
	PublicConfig  func() map[string]any
	APIKeys       map[string]struct{}
	Logger        *logrus.Entry
}

type handlers struct {
	base   context.Context
	deps   Deps
	logger *logrus.Entry
}

// NewRouter builds the API router.
func NewRouter(d Deps) *mux.Router {
	if d.BaseContext == nil {
		d.BaseContext = context.Background()
	}
	h := &handlers{base: d.BaseContext, deps: d, logger: d.Logger}

	r := mux.NewRouter()
	r.Use(Recoverer(d.Logger), RequestLogger(d.Logger))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteProblem(w, http.StatusNotFound, "not found", r.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteProblem(w, http.StatusMethodNotAllowed, "method not allowed", r.Method+" "+r.URL.Path)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.Use(APIKeyAuth(d.APIKeys))
	api.HandleFunc("/check-birthdays", h.checkBirthdays).Methods(http.MethodGet)
	api.HandleFunc("/cron-scheduler", h.cronScheduler).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)
	api.HandleFunc("/config", h.config).Methods(http.MethodGet)
	api.HandleFunc("/report", h.report).Methods(http.MethodGet)
	return r
}

func (h *handlers) checkBirthdays(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Notifications.PreviewQueue(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("queue preview failed")
		WriteProblem(w, http.StatusInternalServerError, "queue preview failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"inQueue":   len(p.Items),
		"preview":   p,
		"timestamp": time.Now().UTC(),
	})
}

// cronScheduler is the time-gated trigger. ?force=true skips the gate.
func (h *handlers) cronScheduler(w http.ResponseWriter, r *http.Request) {
	force, err := boolParam(r, "force")
	if err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid parameter", err.Error())
		return
	}
	testMode, err := boolParam(r, "testMode")
	if err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid parameter", err.Error())
		return
	}

	var res *notification.RunResult
	if force || testMode {
		res, err = h.deps.Notifications.RunOnDemand(h.base, app.RunOptions{Force: force, TestMode: testMode})
	} else {
		res, err = h.deps.Notifications.RunScheduled(h.base)
	}

	switch {
	case errors.Is(err, app.ErrRunInProgress):
		WriteProblem(w, http.StatusConflict, "run in progress", err.Error())
	case err != nil && res == nil:
		WriteProblem(w, http.StatusInternalServerError, "run failed", err.Error())
	case err != nil:
		WriteJSON(w, http.StatusInternalServerError, res)
	default:
		WriteJSON(w, http.StatusOK, res)
	}
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	rep := h.deps.Health.Check(r.Context())
	status := http.StatusOK
	if rep.Status == notification.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, rep)
}

func (h *handlers) config(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.deps.PublicConfig())
}

func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.deps.Reports.Generate(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("report generation failed")
		WriteProblem(w, http.StatusInternalServerError, "report failed", err.Error())
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(app.RenderReport(rep)))
		return
	}
	WriteJSON(w, http.StatusOK, rep)
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(name + " must be true or false")
	}
	return b, nil
}
