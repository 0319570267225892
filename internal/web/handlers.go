package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/go-chi/chi/v5"

	"github.com/andreagonzahe/lunaria-app/internal/auth"
	"github.com/andreagonzahe/lunaria-app/internal/cycle"
	"github.com/andreagonzahe/lunaria-app/internal/domain"
	"github.com/andreagonzahe/lunaria-app/internal/logger"
	"github.com/andreagonzahe/lunaria-app/internal/mood"
	"github.com/andreagonzahe/lunaria-app/internal/patterns"
	"github.com/andreagonzahe/lunaria-app/internal/reminders"
	lsync "github.com/andreagonzahe/lunaria-app/internal/sync"
)

// Accounts is the sign-in provider.
type Accounts interface {
	SignInWithPassword(ctx context.Context, email, password string) (*auth.User, error)
	SignUp(ctx context.Context, email, password string) (*auth.User, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*auth.User, error)
}

// Handlers contains the HTTP handlers of the local API.
type Handlers struct {
	coord     *lsync.Coordinator
	accounts  Accounts
	reminders *reminders.Scheduler
	push      *reminders.WebPushNotifier
	log       *logger.Logger
	now       func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg ServerConfig) *Handlers {
	return &Handlers{
		coord:     cfg.Coordinator,
		accounts:  cfg.Accounts,
		reminders: cfg.Reminders,
		push:      cfg.Push,
		log:       cfg.Logger,
		now:       cfg.Now,
	}
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Questionnaire handles GET /api/questionnaire.
func (h *Handlers) Questionnaire(w http.ResponseWriter, r *http.Request) {
	labels := make(map[domain.MoodState]string, len(domain.MoodStates))
	for _, s := range domain.MoodStates {
		labels[s] = mood.StateLabel(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sections": mood.Questionnaire,
		"states":   labels,
	})
}

// GetProfile handles GET /api/profile.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.coord.Profile(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutProfile handles PUT /api/profile.
func (h *Handlers) PutProfile(w http.ResponseWriter, r *http.Request) {
	var p domain.UserProfile
	if !h.decode(w, r, &p) {
		return
	}
	saved, err := h.coord.SaveProfile(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ListEntries handles GET /api/entries?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	var rng domain.DateRange
	for param, dst := range map[string]*domain.Date{"from": &rng.From, "to": &rng.To} {
		v := r.URL.Query().Get(param)
		if v == "" {
			continue
		}
		d, err := domain.ParseDate(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid " + param + " date"})
			return
		}
		*dst = d
	}

	entries, err := h.coord.MoodEntries(r.Context(), rng)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func dateParam(w http.ResponseWriter, r *http.Request) (domain.Date, bool) {
	d, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid date, want YYYY-MM-DD"})
		return domain.Date{}, false
	}
	return d, true
}

// GetEntry handles GET /api/entries/{date}.
func (h *Handlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	e, err := h.coord.MoodEntry(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type checkInRequest struct {
	Checklist        domain.Checklist   `json:"checklist"`
	CyclePhase       *domain.CyclePhase `json:"cyclePhase,omitempty"`
	Sleep            *domain.Sleep      `json:"sleep,omitempty"`
	MedicationsTaken map[string]bool    `json:"medicationsTaken,omitempty"`
}

// CheckIn handles PUT /api/entries/{date}. When no cycle phase is given and
// the profile tracks cycles automatically, the phase is estimated.
func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req checkInRequest
	if !h.decode(w, r, &req) {
		return
	}

	var opts []mood.EntryOption
	if req.CyclePhase != nil {
		opts = append(opts, mood.WithPhase(*req.CyclePhase))
	} else if phase, ok := h.estimatePhase(r.Context(), date); ok {
		opts = append(opts, mood.WithPhase(phase))
	}
	if req.Sleep != nil {
		opts = append(opts, mood.WithSleep(req.Sleep.Hours, req.Sleep.Quality))
	}
	if len(req.MedicationsTaken) > 0 {
		opts = append(opts, mood.WithMedicationsTaken(req.MedicationsTaken))
	}
	opts = append(opts, mood.WithCreatedAt(h.now().UTC()))

	entry, err := mood.NewEntry(date, req.Checklist, opts...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	saved, err := h.coord.SaveMoodEntry(r.Context(), entry)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handlers) estimatePhase(ctx context.Context, date domain.Date) (domain.CyclePhase, bool) {
	p, err := h.coord.Profile(ctx)
	if err != nil {
		return "", false
	}
	return cycle.Estimate(p.CycleTracking, date)
}

// GetMedications handles GET /api/medications.
func (h *Handlers) GetMedications(w http.ResponseWriter, r *http.Request) {
	meds, err := h.coord.Medications(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meds)
}

// PutMedications handles PUT /api/medications. It replaces the whole list
// and reschedules reminders.
func (h *Handlers) PutMedications(w http.ResponseWriter, r *http.Request) {
	var meds []domain.Medication
	if !h.decode(w, r, &meds) {
		return
	}
	saved, err := h.coord.SaveMedications(r.Context(), meds)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.reminders != nil {
		if _, err := h.reminders.Reschedule(saved); err != nil {
			h.log.Warn("rescheduling reminders failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, saved)
}

// ListReminders handles GET /api/reminders.
func (h *Handlers) ListReminders(w http.ResponseWriter, r *http.Request) {
	if h.reminders == nil {
		writeJSON(w, http.StatusOK, []reminders.Reminder{})
		return
	}
	writeJSON(w, http.StatusOK, h.reminders.Scheduled())
}

// GetSafetyPlan handles GET /api/safety-plan.
func (h *Handlers) GetSafetyPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.coord.SafetyPlan(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutSafetyPlan handles PUT /api/safety-plan.
func (h *Handlers) PutSafetyPlan(w http.ResponseWriter, r *http.Request) {
	var p domain.SafetyPlan
	if !h.decode(w, r, &p) {
		return
	}
	saved, err := h.coord.SaveSafetyPlan(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type insightsResponse struct {
	patterns.Result
	Summary patterns.Summary `json:"summary"`
}

// Insights handles GET /api/insights.
func (h *Handlers) Insights(w http.ResponseWriter, r *http.Request) {
	entries, err := h.coord.MoodEntries(r.Context(), domain.DateRange{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cfg := patterns.DefaultConfig()
	cfg.Now = h.now
	writeJSON(w, http.StatusOK, insightsResponse{
		Result:  patterns.Detect(entries, cfg),
		Summary: patterns.Summarize(entries),
	})
}

// Sync handles POST /api/sync. ?force=true bypasses the cooldown.
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	report, err := h.coord.SyncAll(r.Context(), force)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, syncBody(report))
}

// DeleteData handles DELETE /api/data. It wipes the device and cancels
// every reminder.
func (h *Handlers) DeleteData(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.ClearAll(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.reminders != nil {
		h.reminders.CancelAll()
	}
	w.WriteHeader(http.StatusNoContent)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) requireAccounts(w http.ResponseWriter) bool {
	if h.accounts == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "sign-in is not configured"})
		return false
	}
	return true
}

// Session handles GET /api/auth/session.
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	if h.accounts == nil {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	user, err := h.accounts.CurrentUser(r.Context())
	if err != nil {
		h.log.Warn("reading session failed", "error", err)
		user = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Login handles POST /api/auth/login. A successful sign-in is followed by
// a forced sync so the device picks up the account's data.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if !h.requireAccounts(w) {
		return
	}
	h.authenticate(w, r, h.accounts.SignInWithPassword)
}

// SignUp handles POST /api/auth/signup.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	if !h.requireAccounts(w) {
		return
	}
	h.authenticate(w, r, h.accounts.SignUp)
}

func (h *Handlers) authenticate(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, email, password string) (*auth.User, error),
) {
	var c credentials
	if !h.decode(w, r, &c) {
		return
	}
	if c.Email == "" || c.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "email and password are required"})
		return
	}

	user, err := fn(r.Context(), c.Email, c.Password)
	if errors.Is(err, auth.ErrConfirmationPending) {
		writeJSON(w, http.StatusAccepted, map[string]any{"user": nil, "confirmationPending": true})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := map[string]any{"user": user}
	report, err := h.coord.SyncAll(r.Context(), true)
	if err != nil {
		h.log.Warn("initial sync failed", "error", err)
	} else {
		resp["sync"] = syncBody(report)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout. Local data stays on the device.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if !h.requireAccounts(w) {
		return
	}
	if err := h.accounts.SignOut(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PushKey handles GET /api/push/key.
func (h *Handlers) PushKey(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "push notifications are not configured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.push.PublicKey()})
}

// Subscribe handles POST /api/push/subscriptions.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "push notifications are not configured"})
		return
	}
	var sub webpush.Subscription
	if !h.decode(w, r, &sub) {
		return
	}
	if err := h.push.Subscribe(sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// Unsubscribe handles DELETE /api/push/subscriptions?endpoint=...
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "push notifications are not configured"})
		return
	}
	h.push.Unsubscribe(r.URL.Query().Get("endpoint"))
	w.WriteHeader(http.StatusNoContent)
}
