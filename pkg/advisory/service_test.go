package advisory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ircmdb/ircmdb/pkg/backend"
	"github.com/ircmdb/ircmdb/pkg/cache/memory"
	"github.com/ircmdb/ircmdb/pkg/logging"
	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/ircmdb/ircmdb/pkg/parser"
	"github.com/ircmdb/ircmdb/pkg/prompt"
	"github.com/ircmdb/ircmdb/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu   sync.Mutex
	snap models.Snapshot
	err  error
}

func (f *fakeStore) Load(ctx context.Context) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.err
}

func (f *fakeStore) set(raw string) {
	s, err := snapshot.Parse([]byte(raw))
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	f.snap = s
	f.mu.Unlock()
}

type fakeClient struct {
	mu      sync.Mutex
	calls   atomic.Int32
	prompts []string
	reply   func(n int32, prompt string) (string, error)
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Send(ctx context.Context, p, role string) (string, error) {
	n := f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	return f.reply(n, p)
}

func replyWith(s string) func(int32, string) (string, error) {
	return func(int32, string) (string, error) { return s, nil }
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []models.QueryRecord
}

func (f *fakeRecorder) Record(ctx context.Context, rec models.QueryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

const account42 = `{"account_id": 42, "s3": {"buckets": [{"name": "logs", "public": false}]}}`

func setup(t *testing.T, reply func(int32, string) (string, error), opts ...Option) (*Service, *fakeStore, *fakeClient) {
	t.Helper()
	store := &fakeStore{}
	store.set(account42)
	client := &fakeClient{reply: reply}
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(store, client, memory.New(memory.Options{}), opts...), store, client
}

func TestAnswerQuestionScenario(t *testing.T) {
	svc, _, client := setup(t, replyWith("No public buckets found."))
	ctx := context.Background()
	q := "Are there public S3 buckets?"

	got, err := svc.AnswerQuestion(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "No public buckets found.", got)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], q)
	assert.Contains(t, client.prompts[0], `"account_id": 42`)
	assert.Contains(t, client.prompts[0], `"logs"`)

	got, err = svc.AnswerQuestion(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "No public buckets found.", got)
	assert.EqualValues(t, 1, client.calls.Load())
	assert.True(t, svc.cache.Contains(models.AdHocKey("42", q)))
}

func TestEmptyQuestion(t *testing.T) {
	svc, _, client := setup(t, replyWith("x"))
	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := svc.AnswerQuestion(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuestion)
		assert.Equal(t, CodeEmptyQuestion, Code(err))
	}
	assert.Zero(t, client.calls.Load())
}

func TestQuestionTrimmedForKey(t *testing.T) {
	svc, _, client := setup(t, replyWith("ok"))
	ctx := context.Background()

	_, err := svc.AnswerQuestion(ctx, "  Is MFA enforced?  ")
	require.NoError(t, err)
	_, err = svc.AnswerQuestion(ctx, "Is MFA enforced?")
	require.NoError(t, err)
	assert.EqualValues(t, 1, client.calls.Load())

	_, err = svc.AnswerQuestion(ctx, "is mfa enforced?")
	require.NoError(t, err)
	assert.EqualValues(t, 2, client.calls.Load(), "rephrased questions are distinct keys")
}

func TestBackendFailureNotCached(t *testing.T) {
	svc, _, client := setup(t, func(n int32, _ string) (string, error) {
		if n == 1 {
			return "", fmt.Errorf("%w: connection refused", backend.ErrUnavailable)
		}
		return "recovered", nil
	})
	ctx := context.Background()

	_, err := svc.AnswerQuestion(ctx, "q")
	assert.ErrorIs(t, err, backend.ErrUnavailable)
	assert.Equal(t, CodeBackendUnavailable, Code(err))

	got, err := svc.AnswerQuestion(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.EqualValues(t, 2, client.calls.Load())
}

func TestAnswerFAQ(t *testing.T) {
	body := `{"` + strings.Join(prompt.FAQQuestions, `":"fine","`) + `":"fine"}`
	svc, _, client := setup(t, replyWith("```json\n"+body+"\n```"))
	ctx := context.Background()

	faq, err := svc.AnswerFAQ(ctx)
	require.NoError(t, err)
	assert.Len(t, faq, len(prompt.FAQQuestions))
	for _, q := range prompt.FAQQuestions {
		assert.Equal(t, "fine", faq[q])
		assert.Contains(t, client.prompts[0], q)
	}

	faq["mutated"] = "yes"
	again, err := svc.AnswerFAQ(ctx)
	require.NoError(t, err)
	assert.NotContains(t, again, "mutated")
	assert.EqualValues(t, 1, client.calls.Load())
}

func TestFAQUnparseableNotCached(t *testing.T) {
	svc, _, client := setup(t, func(n int32, _ string) (string, error) {
		if n == 1 {
			return "I cannot answer that.", nil
		}
		return `{"q":"a"}`, nil
	})
	ctx := context.Background()

	_, err := svc.AnswerFAQ(ctx)
	assert.ErrorIs(t, err, parser.ErrUnparseable)
	assert.Equal(t, CodeResponseUnparseable, Code(err))
	assert.False(t, svc.cache.Contains(models.FAQKey("42")))

	faq, err := svc.AnswerFAQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", faq["q"])
	assert.EqualValues(t, 2, client.calls.Load())
}

func TestSnapshotErrorsPropagate(t *testing.T) {
	svc, store, client := setup(t, replyWith("x"))
	store.err = fmt.Errorf("%w: file.json", snapshot.ErrNotFound)

	_, err := svc.AnswerFAQ(context.Background())
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
	assert.Equal(t, CodeSnapshotNotFound, Code(err))

	store.err = fmt.Errorf("%w: no account_id", snapshot.ErrMalformed)
	_, err = svc.AnswerQuestion(context.Background(), "q")
	assert.Equal(t, CodeSnapshotMalformed, Code(err))
	assert.Zero(t, client.calls.Load())
}

func TestConcurrentMissesCoalesce(t *testing.T) {
	release := make(chan struct{})
	svc, _, client := setup(t, func(int32, string) (string, error) {
		<-release
		return "one answer", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.AnswerQuestion(context.Background(), "Are there public S3 buckets?")
			assert.NoError(t, err)
			assert.Equal(t, "one answer", got)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, client.calls.Load())
}

func TestSnapshotChangeWithoutFingerprintServesCached(t *testing.T) {
	svc, store, client := setup(t, func(n int32, _ string) (string, error) {
		return fmt.Sprintf("answer %d", n), nil
	})
	ctx := context.Background()

	first, _ := svc.AnswerQuestion(ctx, "q")
	store.set(`{"account_id": "42", "s3": {"buckets": []}}`)
	second, _ := svc.AnswerQuestion(ctx, "q")

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, client.calls.Load())
}

func TestSnapshotChangeWithFingerprintRecomputes(t *testing.T) {
	svc, store, client := setup(t, func(n int32, _ string) (string, error) {
		return fmt.Sprintf("answer %d", n), nil
	}, WithFingerprint(true))
	ctx := context.Background()

	first, _ := svc.AnswerQuestion(ctx, "q")
	store.set(`{"account_id": 42, "s3": {"buckets": []}}`)
	second, _ := svc.AnswerQuestion(ctx, "q")

	assert.NotEqual(t, first, second)
	assert.EqualValues(t, 2, client.calls.Load())
}

func TestRecorderReceivesEveryRequest(t *testing.T) {
	rec := &fakeRecorder{}
	svc, _, _ := setup(t, replyWith("ok"), WithRecorder(rec))
	ctx := context.Background()

	_, _ = svc.AnswerQuestion(ctx, "q")
	_, _ = svc.AnswerQuestion(ctx, "q")
	_, _ = svc.AnswerQuestion(ctx, " ")
	svc.Wait()

	require.Len(t, rec.records, 3)
	byOutcome := map[models.CacheOutcome]int{}
	ids := map[string]bool{}
	failed := 0
	for _, r := range rec.records {
		byOutcome[r.Outcome]++
		ids[r.RequestID] = true
		if r.Failed() {
			failed++
			assert.Equal(t, CodeEmptyQuestion, r.ErrorCode)
		} else {
			assert.Equal(t, "42", r.AccountID)
			assert.Equal(t, "q", r.Question)
		}
	}
	assert.Equal(t, 1, byOutcome[models.OutcomeMiss])
	assert.Equal(t, 1, byOutcome[models.OutcomeHit])
	assert.Equal(t, 1, failed)
	assert.Len(t, ids, 3)
}

func TestQueryReportsOutcome(t *testing.T) {
	svc, _, _ := setup(t, replyWith("ok"))
	ctx := context.Background()

	res, err := svc.Query(ctx, models.KindAdHoc, "q")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeMiss, res.Outcome)
	assert.Equal(t, "42", res.AccountID)
	assert.NotEmpty(t, res.RequestID)

	res, err = svc.Query(ctx, models.KindAdHoc, "q")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeHit, res.Outcome)

	_, err = svc.Query(ctx, models.QueryKind("bogus"), "q")
	assert.Equal(t, CodeInternal, Code(err))
}

func TestWarm(t *testing.T) {
	svc, _, client := setup(t, func(_ int32, p string) (string, error) {
		if strings.Contains(p, "Q: ") {
			return `{"q":"a"}`, nil
		}
		if strings.Contains(p, "'broken'") {
			return "", fmt.Errorf("%w: status 500", backend.ErrBackend)
		}
		return "warm", nil
	})
	ctx := context.Background()

	err := svc.Warm(ctx, []string{"one", "two", "broken"}, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrBackend)
	assert.EqualValues(t, 4, client.calls.Load())

	assert.True(t, svc.cache.Contains(models.FAQKey("42")))
	assert.True(t, svc.cache.Contains(models.AdHocKey("42", "one")))
	assert.True(t, svc.cache.Contains(models.AdHocKey("42", "two")))
	assert.False(t, svc.cache.Contains(models.AdHocKey("42", "broken")))

	_, err = svc.AnswerQuestion(ctx, "two")
	require.NoError(t, err)
	assert.EqualValues(t, 4, client.calls.Load())
}

func TestCode(t *testing.T) {
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, CodeBackendError, Code(fmt.Errorf("wrap: %w", backend.ErrBackend)))
	assert.Equal(t, CodeInternal, Code(errors.New("other")))
}
