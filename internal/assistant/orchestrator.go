// Package assistant turns user input into durable conversation history and
// mediates every exchange with the remote advisor.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/jobpt/internal/advisor"
	"github.com/ashureev/jobpt/internal/domain"
	"github.com/ashureev/jobpt/internal/identity"
	"github.com/ashureev/jobpt/internal/observability"
	"github.com/ashureev/jobpt/internal/store"
	"github.com/containerd/errdefs"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUninitialized is returned by operations invoked before Init.
	ErrUninitialized = fmt.Errorf("assistant not initialized: %w", errdefs.ErrFailedPrecondition)

	// ErrEmptyMessage is returned when SendMessage gets blank text.
	ErrEmptyMessage = fmt.Errorf("message is empty: %w", errdefs.ErrInvalidArgument)
)

// State is the lifecycle state of the orchestrator.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateAwaitingRemote
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateAwaitingRemote:
		return "awaiting_remote"
	default:
		return "uninitialized"
	}
}

// Status is the advisor connectivity sub-status of an active orchestrator.
type Status int

const (
	StatusConnected Status = iota
	StatusDisconnected
)

func (s Status) String() string {
	if s == StatusDisconnected {
		return "disconnected"
	}
	return "connected"
}

// Identity supplies the local user and the onboarding flag.
type Identity interface {
	UserID() string
	OnboardingCompleted() bool
	SetOnboardingCompleted(completed bool) error
}

// Options tunes an Orchestrator. Zero values take defaults.
type Options struct {
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
	Metrics        *observability.Metrics
	Logger         *slog.Logger
	NewSessionID   func() string
}

const (
	defaultRequestTimeout = 30 * time.Second
	defaultProbeTimeout   = 5 * time.Second
	probeKey              = "probe"
)

// Orchestrator coordinates sends, session lifecycle and question generation.
// It is safe for concurrent use.
type Orchestrator struct {
	sessions  store.SessionStore
	messages  store.MessageStore
	profiles  store.ProfileStore
	questions store.QuestionSetStore
	purger    store.DataPurger
	advisor   advisor.Client
	identity  Identity
	metrics   *observability.Metrics
	logger    *slog.Logger

	newSessionID   func() string
	requestTimeout time.Duration
	probeTimeout   time.Duration

	mu          sync.RWMutex
	initialized bool
	sessionID   string
	status      Status
	inflight    int
	profile     *domain.ProfileData
	customQs    []string

	sendLocks keyedMutex
	probes    singleflight.Group

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// New creates an orchestrator over repos. Connectivity starts as connected.
func New(repos *store.Repositories, client advisor.Client, ident Identity, opts Options) *Orchestrator {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaultProbeTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics("jobpt", prometheus.NewRegistry())
	}
	if opts.NewSessionID == nil {
		opts.NewSessionID = identity.NewSessionID
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		sessions:       repos.Sessions,
		messages:       repos.Messages,
		profiles:       repos.Profiles,
		questions:      repos.Questions,
		purger:         repos,
		advisor:        client,
		identity:       ident,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		newSessionID:   opts.NewSessionID,
		requestTimeout: opts.RequestTimeout,
		probeTimeout:   opts.ProbeTimeout,
		sessionID:      opts.NewSessionID(),
		status:         StatusConnected,
		bgCtx:          bgCtx,
		bgCancel:       cancel,
	}
	o.metrics.SetConnected(true)
	return o
}

// Init loads the persisted profile and question set, then starts a background
// connectivity probe. A failed probe is logged and does not fail Init.
func (o *Orchestrator) Init(ctx context.Context) error {
	userID := o.identity.UserID()

	profile, err := o.profiles.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	qs, err := o.questions.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load custom questions: %w", err)
	}

	o.mu.Lock()
	if profile != nil {
		data := profile.Data
		o.profile = &data
	}
	if qs != nil {
		o.customQs = append([]string(nil), qs.Questions...)
	}
	alreadyInit := o.initialized
	o.initialized = true
	o.mu.Unlock()

	if alreadyInit {
		return nil
	}

	o.logger.Info("Assistant initialized",
		"user_id", userID,
		"session_id", o.SessionID(),
		"has_profile", profile != nil,
		"onboarding_completed", o.identity.OnboardingCompleted())

	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		if !o.CheckConnectivity(context.Background()) && o.bgCtx.Err() == nil {
			o.logger.Warn("Startup connectivity probe failed; running in offline mode")
		}
	}()
	return nil
}

// Wait blocks until background work started by Init has finished.
func (o *Orchestrator) Wait() {
	o.bg.Wait()
}

// Close stops background work and waits for it to finish.
func (o *Orchestrator) Close() {
	o.bgCancel()
	o.bg.Wait()
}

func (o *Orchestrator) ready() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.initialized {
		return ErrUninitialized
	}
	return nil
}

// State reports the lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	switch {
	case !o.initialized:
		return StateUninitialized
	case o.inflight > 0:
		return StateAwaitingRemote
	default:
		return StateActive
	}
}

// Status reports the last known advisor connectivity.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

func (o *Orchestrator) setStatus(s Status) {
	o.mu.Lock()
	prev := o.status
	o.status = s
	o.mu.Unlock()

	o.metrics.SetConnected(s == StatusConnected)
	if prev != s {
		o.logger.Info("Advisor connectivity changed", "from", prev.String(), "to", s.String())
	}
}

// SessionID returns the active session id.
func (o *Orchestrator) SessionID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sessionID
}

// Exchange is the result of one completed send.
type Exchange struct {
	SessionID string
	Reply     string
}

// SendMessage persists text as a user turn, obtains a reply and persists it as
// an assistant turn. Advisor failures never surface as errors: they produce a
// classified fallback reply and flip connectivity to disconnected. While
// disconnected no network call is made. Only storage errors are returned.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) (string, error) {
	ex, err := o.Send(ctx, text)
	return ex.Reply, err
}

// Send is SendMessage that also reports the session the exchange was written to.
func (o *Orchestrator) Send(ctx context.Context, text string) (Exchange, error) {
	if err := o.ready(); err != nil {
		return Exchange{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Exchange{}, ErrEmptyMessage
	}

	sessionID, unlock := o.lockActiveSession()
	defer unlock()

	if _, err := o.messages.Append(ctx, sessionID, domain.RoleUser, text); err != nil {
		return Exchange{}, fmt.Errorf("persist user message: %w", err)
	}

	reply, outcome, err := o.obtainReply(ctx, sessionID)
	if err != nil {
		return Exchange{}, err
	}

	if _, err := o.messages.Append(ctx, sessionID, domain.RoleAssistant, reply); err != nil {
		return Exchange{}, fmt.Errorf("persist assistant message: %w", err)
	}
	if _, err := o.sessions.Upsert(ctx, sessionID); err != nil {
		return Exchange{}, fmt.Errorf("touch session: %w", err)
	}

	o.metrics.MessagesSent.WithLabelValues(outcome).Inc()
	return Exchange{SessionID: sessionID, Reply: reply}, nil
}

// lockActiveSession takes the send lock of the active session. The active id is
// read again once the lock is held, so a caller queued behind a reset or delete
// moves on to the replacement session instead of writing to the removed one.
func (o *Orchestrator) lockActiveSession() (string, func()) {
	for {
		id := o.SessionID()
		unlock := o.sendLocks.Lock(id)
		if o.SessionID() == id {
			return id, unlock
		}
		unlock()
	}
}

// obtainReply returns the reply text and the outcome label for metrics.
func (o *Orchestrator) obtainReply(ctx context.Context, sessionID string) (string, string, error) {
	if o.Status() == StatusDisconnected {
		o.logger.Debug("Advisor disconnected; replying with offline notice", "session_id", sessionID)
		return OfflineNotice, "offline", nil
	}

	history, err := o.messages.ListForExternalRequest(ctx, sessionID)
	if err != nil {
		return "", "", fmt.Errorf("assemble history: %w", err)
	}
	outbound := make([]advisor.ChatMessage, 0, len(history)+1)
	if p := o.Profile(); p != nil {
		outbound = append(outbound, advisor.ChatMessage{Role: domain.RoleSystem, Content: BuildSystemPrompt(*p)})
	}
	outbound = append(outbound, history...)

	reply, err := o.callAdvisor(ctx, outbound)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", fmt.Errorf("send message: %w", ctx.Err())
		}
		kind := advisor.Classify(err)
		o.setStatus(StatusDisconnected)
		o.metrics.RemoteFailures.WithLabelValues(kind.String()).Inc()
		o.logger.Warn("Advisor call failed; using fallback reply",
			"session_id", sessionID, "kind", kind.String(), "error", err)
		return FallbackReply(kind), "fallback", nil
	}
	if reply == "" {
		return NoReplyMessage, "empty", nil
	}
	return reply, "remote", nil
}

// callAdvisor issues one chat call under the request timeout.
func (o *Orchestrator) callAdvisor(ctx context.Context, msgs []advisor.ChatMessage) (string, error) {
	o.mu.Lock()
	o.inflight++
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.inflight--
		o.mu.Unlock()
	}()

	callCtx, cancel := context.WithTimeout(ctx, o.requestTimeout)
	defer cancel()

	start := time.Now()
	reply, err := o.advisor.Chat(callCtx, msgs)
	o.metrics.ObserveRemoteLatency(time.Since(start))
	if err == nil && callCtx.Err() != nil {
		// A reply that raced the deadline is discarded.
		return "", callCtx.Err()
	}
	return reply, err
}

// StartNewSession switches to a fresh session id. Previous data is untouched.
func (o *Orchestrator) StartNewSession() string {
	id, prev := o.switchSession()
	o.metrics.SessionEvents.WithLabelValues("new").Inc()
	o.logger.Debug("Started new session", "session_id", id, "previous_session_id", prev)
	return id
}

func (o *Orchestrator) switchSession() (id, prev string) {
	id = o.newSessionID()
	o.mu.Lock()
	prev = o.sessionID
	o.sessionID = id
	o.mu.Unlock()
	return id, prev
}

// ResetSession deletes the active session with its messages and starts a new
// one. The switch happens before the delete, under the old session's send lock.
func (o *Orchestrator) ResetSession(ctx context.Context) (string, error) {
	if err := o.ready(); err != nil {
		return "", err
	}
	sessionID, unlock := o.lockActiveSession()
	id, _ := o.switchSession()
	err := o.sessions.Delete(ctx, sessionID)
	unlock()
	if err != nil {
		return "", fmt.Errorf("reset session: %w", err)
	}
	o.metrics.SessionEvents.WithLabelValues("reset").Inc()
	o.logger.Debug("Reset session", "session_id", id, "previous_session_id", sessionID)
	return id, nil
}

// DeleteSession removes a session and all of its messages. Deleting the active
// session also starts a new one.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	if err := o.ready(); err != nil {
		return err
	}
	unlock := o.sendLocks.Lock(id)
	defer unlock()
	o.mu.RLock()
	active := o.sessionID == id
	o.mu.RUnlock()
	if active {
		o.switchSession()
	}
	if err := o.sessions.Delete(ctx, id); err != nil {
		return err
	}
	o.metrics.SessionEvents.WithLabelValues("delete").Inc()
	return nil
}

// ClearAllSessions removes every session and message.
func (o *Orchestrator) ClearAllSessions(ctx context.Context) error {
	if err := o.ready(); err != nil {
		return err
	}
	if err := o.sessions.ClearAll(ctx); err != nil {
		return err
	}
	o.metrics.SessionEvents.WithLabelValues("clear").Inc()
	return nil
}

// ClearAllMessages removes every message but keeps sessions.
func (o *Orchestrator) ClearAllMessages(ctx context.Context) error {
	if err := o.ready(); err != nil {
		return err
	}
	return o.messages.ClearAll(ctx)
}

// ClearAllData wipes all four collections, resets onboarding and the in-memory
// mirrors, and starts a new session.
func (o *Orchestrator) ClearAllData(ctx context.Context) error {
	if err := o.ready(); err != nil {
		return err
	}
	sessionID, unlock := o.lockActiveSession()
	_, _ = o.switchSession()
	err := o.purger.ClearAllData(ctx)
	unlock()
	if err != nil {
		return err
	}
	if err := o.identity.SetOnboardingCompleted(false); err != nil {
		return fmt.Errorf("reset onboarding: %w", err)
	}

	o.mu.Lock()
	o.profile = nil
	o.customQs = nil
	o.mu.Unlock()

	o.metrics.SessionEvents.WithLabelValues("new").Inc()
	o.logger.Info("All local data cleared", "previous_session_id", sessionID, "session_id", o.SessionID())
	return nil
}

// GenerateCustomQuestions asks the advisor for tailored starters when
// connected, falling back to the static set for the profile's position when
// the call fails or yields nothing usable. The chosen set is persisted.
// Connectivity status is left unchanged.
func (o *Orchestrator) GenerateCustomQuestions(ctx context.Context, profile domain.ProfileData) ([]string, error) {
	if err := o.ready(); err != nil {
		return nil, err
	}

	var questions []string
	source := domain.QuestionSourceFallback
	if o.Status() == StatusConnected {
		reply, err := o.callAdvisor(ctx, []advisor.ChatMessage{
			{Role: domain.RoleSystem, Content: BuildSystemPrompt(profile)},
			{Role: domain.RoleUser, Content: QuestionRequest},
		})
		switch {
		case err != nil:
			o.logger.Warn("Question generation failed; using fallback set",
				"kind", advisor.Classify(err).String(), "error", err)
		default:
			questions = ParseQuestions(reply)
			if len(questions) > 0 {
				source = domain.QuestionSourceAI
			}
		}
	}
	if len(questions) == 0 {
		questions = FallbackQuestions(profile.PositionCategory())
	}

	saved, err := o.questions.Save(ctx, o.identity.UserID(), questions, source)
	if err != nil {
		return nil, fmt.Errorf("persist custom questions: %w", err)
	}

	o.mu.Lock()
	o.customQs = append([]string(nil), saved.Questions...)
	o.mu.Unlock()

	o.metrics.QuestionSets.WithLabelValues(string(source)).Inc()
	return append([]string(nil), saved.Questions...), nil
}

// CheckConnectivity probes the advisor and records the result. Concurrent
// callers share one probe. The probe is bounded by the probe timeout and by
// Close, not by the caller's context: a caller whose context ends gets false
// without touching the status, and the others still get the real result.
func (o *Orchestrator) CheckConnectivity(ctx context.Context) bool {
	ch := o.probes.DoChan(probeKey, func() (any, error) {
		probeCtx, cancel := context.WithTimeout(o.bgCtx, o.probeTimeout)
		defer cancel()

		err := o.advisor.Probe(probeCtx)
		if o.bgCtx.Err() != nil {
			return false, nil
		}
		if err != nil {
			o.setStatus(StatusDisconnected)
			o.metrics.ConnectivityProbe.WithLabelValues("failure").Inc()
			o.logger.Debug("Connectivity probe failed", "kind", advisor.Classify(err).String(), "error", err)
			return false, nil
		}
		o.setStatus(StatusConnected)
		o.metrics.ConnectivityProbe.WithLabelValues("success").Inc()
		return true, nil
	})
	select {
	case res := <-ch:
		ok, _ := res.Val.(bool)
		return ok
	case <-ctx.Done():
		return false
	}
}

// SaveProfile persists the profile and makes it the prompt source for later sends.
func (o *Orchestrator) SaveProfile(ctx context.Context, data domain.ProfileData) (domain.Profile, error) {
	if err := o.ready(); err != nil {
		return domain.Profile{}, err
	}
	saved, err := o.profiles.Save(ctx, o.identity.UserID(), data)
	if err != nil {
		return domain.Profile{}, err
	}
	o.mu.Lock()
	d := saved.Data.Clone()
	o.profile = &d
	o.mu.Unlock()
	return saved, nil
}

// Profile returns a copy of the loaded profile, or nil.
func (o *Orchestrator) Profile() *domain.ProfileData {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.profile == nil {
		return nil
	}
	p := o.profile.Clone()
	return &p
}

// CustomQuestions returns the current question set.
func (o *Orchestrator) CustomQuestions() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.customQs...)
}

// OnboardingCompleted reports the onboarding flag.
func (o *Orchestrator) OnboardingCompleted() bool {
	return o.identity.OnboardingCompleted()
}

// SetOnboardingCompleted persists the onboarding flag.
func (o *Orchestrator) SetOnboardingCompleted(_ context.Context, completed bool) error {
	if err := o.identity.SetOnboardingCompleted(completed); err != nil {
		return fmt.Errorf("set onboarding: %w", err)
	}
	return nil
}

// History returns the messages of the active session in order.
func (o *Orchestrator) History(ctx context.Context) ([]domain.Message, error) {
	return o.Messages(ctx, o.SessionID())
}

// Messages returns the messages of any session in order.
func (o *Orchestrator) Messages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if err := o.ready(); err != nil {
		return nil, err
	}
	return o.messages.ListBySession(ctx, sessionID)
}

// MessageCount returns how many messages a session holds.
func (o *Orchestrator) MessageCount(ctx context.Context, sessionID string) (int, error) {
	if err := o.ready(); err != nil {
		return 0, err
	}
	return o.messages.Count(ctx, sessionID)
}

// Sessions lists every session, most recently updated first.
func (o *Orchestrator) Sessions(ctx context.Context) ([]domain.Session, error) {
	if err := o.ready(); err != nil {
		return nil, err
	}
	return o.sessions.ListAll(ctx)
}

// IsStorageError reports whether err came from the store layer.
func IsStorageError(err error) bool {
	return errors.Is(err, store.ErrTransactionAborted) ||
		errors.Is(err, store.ErrStoreNotInitialized) ||
		errors.Is(err, store.ErrSchemaUnavailable)
}
