// Package advisory answers security questions about the current infrastructure snapshot.
package advisory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ircmdb/ircmdb/pkg/backend"
	"github.com/ircmdb/ircmdb/pkg/cache/memory"
	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/ircmdb/ircmdb/pkg/parser"
	"github.com/ircmdb/ircmdb/pkg/prompt"
	"github.com/ircmdb/ircmdb/pkg/snapshot"
	"github.com/sirupsen/logrus"
)

// Recorder receives one record per answered request.
type Recorder interface {
	Record(ctx context.Context, rec models.QueryRecord) error
}

// Result is the outcome of one advisory request.
type Result struct {
	RequestID string
	AccountID string
	Kind      models.QueryKind
	FAQ       map[string]string
	Answer    string
	Outcome   models.CacheOutcome
}

// Service ties the snapshot store, prompt builders, cache and backend together.
type Service struct {
	store       snapshot.Store
	client      backend.Client
	cache       *memory.Cache
	recorder    Recorder
	log         *logrus.Logger
	fingerprint bool

	pending sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder reports every request to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithFingerprint adds a snapshot content hash to cache keys so a changed
// snapshot never serves answers computed for an older one.
func WithFingerprint(enabled bool) Option {
	return func(s *Service) { s.fingerprint = enabled }
}

// New creates a Service.
func New(store snapshot.Store, client backend.Client, cache *memory.Cache, opts ...Option) *Service {
	s := &Service{
		store:  store,
		client: client,
		cache:  cache,
		log:    logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AnswerFAQ returns the answers to the fixed FAQ set for the current snapshot.
func (s *Service) AnswerFAQ(ctx context.Context) (map[string]string, error) {
	res, err := s.Query(ctx, models.KindFAQ, "")
	if err != nil {
		return nil, err
	}
	return res.FAQ, nil
}

// AnswerQuestion returns the answer to a single question about the current snapshot.
func (s *Service) AnswerQuestion(ctx context.Context, question string) (string, error) {
	res, err := s.Query(ctx, models.KindAdHoc, question)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// Snapshot returns the current snapshot unchanged.
func (s *Service) Snapshot(ctx context.Context) (models.Snapshot, error) {
	return s.store.Load(ctx)
}

// CacheStats returns the advisory cache metrics.
func (s *Service) CacheStats() models.CacheStats {
	return s.cache.Stats()
}

// Query runs one advisory request of the given kind. question is ignored for FAQ requests.
func (s *Service) Query(ctx context.Context, kind models.QueryKind, question string) (Result, error) {
	start := time.Now()
	res := Result{RequestID: uuid.NewString(), Kind: kind}
	if kind == models.KindAdHoc {
		question = strings.TrimSpace(question)
	} else {
		question = ""
	}

	err := s.query(ctx, &res, question)
	s.report(res, question, err, time.Since(start))
	return res, err
}

func (s *Service) query(ctx context.Context, res *Result, question string) error {
	if !res.Kind.Valid() {
		return fmt.Errorf("unknown query kind %q", res.Kind)
	}
	if res.Kind == models.KindAdHoc && question == "" {
		return ErrEmptyQuestion
	}

	snap, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	res.AccountID = snap.AccountID

	var key models.CacheKey
	var compute memory.ComputeFunc
	if res.Kind == models.KindFAQ {
		key = models.FAQKey(snap.AccountID)
		compute = s.computeFAQ(snap)
	} else {
		key = models.AdHocKey(snap.AccountID, question)
		compute = s.computeAdHoc(snap, question)
	}
	if s.fingerprint {
		key.Fingerprint = prompt.Fingerprint(snap)
	}

	v, outcome, err := s.cache.GetOrCompute(ctx, key, compute)
	res.Outcome = outcome
	if err != nil {
		return err
	}
	res.FAQ = v.FAQ
	res.Answer = v.Answer
	return nil
}

func (s *Service) computeFAQ(snap models.Snapshot) memory.ComputeFunc {
	return func(ctx context.Context) (models.AdvisoryResult, error) {
		raw, err := s.client.Send(ctx, prompt.BuildFAQ(snap), prompt.SystemRole)
		if err != nil {
			return models.AdvisoryResult{}, err
		}
		faq, err := parser.ParseFAQ(raw)
		if err != nil {
			return models.AdvisoryResult{}, err
		}
		return models.AdvisoryResult{FAQ: faq}, nil
	}
}

func (s *Service) computeAdHoc(snap models.Snapshot, question string) memory.ComputeFunc {
	return func(ctx context.Context) (models.AdvisoryResult, error) {
		raw, err := s.client.Send(ctx, prompt.BuildAdHoc(snap, question), prompt.SystemRole)
		if err != nil {
			return models.AdvisoryResult{}, err
		}
		return models.AdvisoryResult{Answer: parser.ParseAdHoc(raw)}, nil
	}
}

func (s *Service) report(res Result, question string, err error, latency time.Duration) {
	code := Code(err)
	entry := s.log.WithFields(logrus.Fields{
		"request_id": res.RequestID,
		"account_id": res.AccountID,
		"kind":       res.Kind,
		"outcome":    res.Outcome,
		"latency_ms": latency.Milliseconds(),
	})
	if err != nil {
		entry.WithField("error_code", code).WithError(err).Warn("advisory request failed")
	} else {
		entry.Debug("advisory request answered")
	}

	if s.recorder == nil {
		return
	}
	rec := models.QueryRecord{
		RequestID: res.RequestID,
		AccountID: res.AccountID,
		Kind:      res.Kind,
		Question:  question,
		Outcome:   res.Outcome,
		ErrorCode: code,
		LatencyMs: latency.Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.recorder.Record(context.Background(), rec); err != nil {
			s.log.WithError(err).WithField("request_id", rec.RequestID).Warn("record query history")
		}
	}()
}

// Wait blocks until every pending history record has been written.
func (s *Service) Wait() {
	s.pending.Wait()
}
