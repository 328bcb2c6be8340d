package idempotency

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"idempotent-api/internal/cache"
	"idempotent-api/internal/metrics"
	"idempotent-api/internal/result"
	"idempotent-api/pkg/logging/logging"
)

const (
	DefaultTTL       = 24 * time.Hour
	DefaultKeyPrefix = "idempotency"
	DefaultLockTTL   = 30 * time.Second
)

type Config struct {
	// HeaderName carries the key. Default DefaultHeaderName.
	HeaderName string
	// TTL is the absolute lifetime of an entry from the moment it is written.
	TTL time.Duration
	// Methods that engage the protocol. Default POST and PATCH.
	Methods []string
	// KeyPrefix namespaces storage keys.
	KeyPrefix string
	// LockTTL bounds how long a per-key lock outlives a crashed holder.
	LockTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeaderName == "" {
		c.HeaderName = DefaultHeaderName
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if len(c.Methods) == 0 {
		c.Methods = []string{http.MethodPost, http.MethodPatch}
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultLockTTL
	}
	return c
}

// Coordinator runs the two idempotency phases for each request. It holds no
// per-request state; that lives in Session.
type Coordinator struct {
	store   cache.Store
	locker  cache.Locker
	routes  *result.Routes
	cfg     Config
	methods map[string]bool
}

type Option func(*Coordinator)

// WithLocker serializes the miss -> handler -> write sequence per key.
// Without it two concurrent first requests may both execute and the last
// write wins.
func WithLocker(l cache.Locker) Option {
	return func(c *Coordinator) { c.locker = l }
}

// WithRoutes resolves Location headers of replayed created-at-route results.
func WithRoutes(r *result.Routes) Option {
	return func(c *Coordinator) { c.routes = r }
}

func New(store cache.Store, cfg Config, opts ...Option) *Coordinator {
	cfg = cfg.withDefaults()

	c := &Coordinator{
		store:   store,
		cfg:     cfg,
		methods: make(map[string]bool, len(cfg.Methods)),
	}
	for _, m := range cfg.Methods {
		c.methods[strings.ToUpper(m)] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Config() Config { return c.cfg }

func (c *Coordinator) storageKey(key string) string {
	return c.cfg.KeyPrefix + ":" + key
}

// State is the progress of one request through the protocol.
type State int

const (
	StateNotStarted State = iota
	// StateSkipped: method not covered; nothing was looked up.
	StateSkipped
	// StateRejected: the key header was missing, empty or repeated.
	StateRejected
	// StatePassThrough: cache miss; the handler runs and Post stores its result.
	StatePassThrough
	// StateConflict: the key is stored for a request with another fingerprint.
	StateConflict
	// StateServed: the stored response replaces the handler.
	StateServed
	// StateInProgress: another request holds the key's lock.
	StateInProgress
	// StateFailed: server-side fault (body, backend, encoding).
	StateFailed
	// StateCompleted: Post stored the entry.
	StateCompleted
)

var stateNames = [...]string{
	StateNotStarted:  "not_started",
	StateSkipped:     "skipped",
	StateRejected:    "rejected",
	StatePassThrough: "pass_through",
	StateConflict:    "conflict",
	StateServed:      "served",
	StateInProgress:  "in_progress",
	StateFailed:      "failed",
	StateCompleted:   "completed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is the request-scoped state of the protocol. It is not safe for
// concurrent use; a request is handled by one goroutine.
type Session struct {
	c           *Coordinator
	r           *http.Request
	state       State
	key         string
	fingerprint string
	replay      result.Result
	err         error
	unlock      func()
}

// Begin starts a session for r.
func (c *Coordinator) Begin(r *http.Request) *Session {
	return &Session{c: c, r: r}
}

func (s *Session) State() State        { return s.state }
func (s *Session) Key() string         { return s.key }
func (s *Session) Fingerprint() string { return s.fingerprint }
func (s *Session) Err() error          { return s.err }

// Pre runs the pre-execution phase. A non-nil result means the handler must
// not run and the result is the response. A non-nil error is the response
// (see WriteError). Both nil means the handler runs. Only the first call does
// any work; later calls return the same outcome.
func (s *Session) Pre(ctx context.Context) (result.Result, error) {
	if s.state != StateNotStarted {
		return s.replay, s.err
	}

	s.state, s.replay, s.err = s.pre(ctx)
	if s.state != StatePassThrough {
		s.release()
	}

	metrics.Decisions.WithLabelValues(s.state.String()).Inc()
	if s.state != StateSkipped {
		fields := []zap.Field{
			zap.String("decision", s.state.String()),
			zap.String("idempotency_key", s.key),
			zap.String("fingerprint", s.fingerprint),
		}
		logger := logging.L(ctx)
		switch {
		case s.state == StateFailed:
			logger.Error("idempotency_decision", append(fields, zap.Error(s.err))...)
		case s.err != nil:
			logger.Info("idempotency_decision", append(fields, zap.Error(s.err))...)
		default:
			logger.Info("idempotency_decision", fields...)
		}
	}

	return s.replay, s.err
}

func (s *Session) pre(ctx context.Context) (State, result.Result, error) {
	c := s.c
	if !c.methods[s.r.Method] {
		return StateSkipped, nil, nil
	}

	key, err := ExtractKey(s.r.Header, c.cfg.HeaderName)
	if err != nil {
		return StateRejected, nil, err
	}
	s.key = key

	fp, err := Fingerprint(s.r)
	if err != nil {
		return StateFailed, nil, err
	}
	s.fingerprint = fp

	state, replay, err := s.lookup(ctx)
	if state != StatePassThrough || c.locker == nil {
		return state, replay, err
	}

	unlock, ok, err := c.locker.TryLock(ctx, c.storageKey(key), c.cfg.LockTTL)
	if err != nil {
		return StateFailed, nil, backendError(err)
	}
	if !ok {
		return StateInProgress, nil, ErrRequestInProgress
	}
	s.unlock = unlock

	// A concurrent holder may have written the entry between the first
	// lookup and acquiring the lock.
	return s.lookup(ctx)
}

func (s *Session) lookup(ctx context.Context) (State, result.Result, error) {
	c := s.c
	raw, hit, err := c.store.Get(ctx, c.storageKey(s.key))
	if err != nil {
		return StateFailed, nil, backendError(err)
	}
	if !hit {
		return StatePassThrough, nil, nil
	}

	entry, err := Decode(raw)
	if err != nil {
		logging.L(ctx).Warn("idempotency_corrupt_entry",
			zap.String("idempotency_key", s.key),
			zap.Error(err),
		)
		return StatePassThrough, nil, nil
	}

	if entry.Fingerprint != s.fingerprint {
		return StateConflict, nil, ErrFingerprintMismatch
	}

	replay, err := Reconstruct(entry, c.routes)
	if err != nil {
		logging.L(ctx).Warn("idempotency_corrupt_entry",
			zap.String("idempotency_key", s.key),
			zap.Error(err),
		)
		return StatePassThrough, nil, nil
	}
	return StateServed, replay, nil
}

// Post runs the post-execution phase: res is what the handler produced and
// status/header are what rendering it wrote. It does nothing unless Pre
// ended in StatePassThrough. On error nothing has been stored.
func (s *Session) Post(ctx context.Context, res result.Result, status int, header http.Header) error {
	if s.state != StatePassThrough {
		return nil
	}
	defer s.release()

	if err := s.post(ctx, res, status, header); err != nil {
		s.state, s.err = StateFailed, err
		logging.L(ctx).Error("idempotency_store_failed",
			zap.String("idempotency_key", s.key),
			zap.Error(err),
		)
		return err
	}

	s.state = StateCompleted
	return nil
}

func (s *Session) post(ctx context.Context, res result.Result, status int, header http.Header) error {
	desc, err := Describe(res)
	if err != nil {
		return err
	}

	raw, err := Encode(Entry{
		Fingerprint: s.fingerprint,
		StatusCode:  status,
		ContentType: header.Get("Content-Type"),
		Headers:     captureHeaders(header),
		Result:      desc,
	})
	if err != nil {
		return err
	}

	if err := s.c.store.Set(ctx, s.c.storageKey(s.key), raw, s.c.cfg.TTL); err != nil {
		return backendError(err)
	}
	return nil
}

// Close releases the per-key lock if the session still holds it. Safe to
// call more than once.
func (s *Session) Close() {
	s.release()
}

func (s *Session) release() {
	if s.unlock != nil {
		s.unlock()
		s.unlock = nil
	}
}

func backendError(err error) error {
	if errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
