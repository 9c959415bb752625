package imagegen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promptparty/promptparty-backend/internal/engine"
)

// fakeClient scripts per-prompt outcomes and tracks attempts.
type fakeClient struct {
	mu       sync.Mutex
	attempts map[string]int
	fail     map[string]error // error returned on every attempt
	failN    map[string]int   // fail this many times, then succeed
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		attempts: map[string]int{},
		fail:     map[string]error{},
		failN:    map[string]int{},
	}
}

func (f *fakeClient) Generate(ctx context.Context, prompt, style string) (string, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if cur <= peak || f.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[prompt]++
	if err := f.fail[prompt]; err != nil {
		return "", err
	}
	if n := f.failN[prompt]; n > 0 {
		f.failN[prompt] = n - 1
		return "", &VendorError{Status: 503, Body: "overloaded"}
	}
	return "https://img.example/" + prompt, nil
}

func (f *fakeClient) attemptsFor(prompt string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[prompt]
}

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: []time.Duration{0, 0, 0}, Retryable: IsRetryable}
}

func runBatch(t *testing.T, p *Pipeline, reqs []Request) []engine.GeneratedImage {
	t.Helper()
	out := make(chan []engine.GeneratedImage, 1)
	p.Enqueue(context.Background(), reqs, func(results []engine.GeneratedImage) {
		out <- results
	})
	select {
	case results := <-out:
		return results
	case <-time.After(2 * time.Second):
		t.Fatalf("batch never completed")
		return nil
	}
}

func TestPipeline_SuccessfulBatch(t *testing.T) {
	fc := newFakeClient()
	p := NewPipeline(fc, 2, testPolicy(), zap.NewNop())

	results := runBatch(t, p, []Request{
		{ID: "r1", PlayerID: "p1", Prompt: "one"},
		{ID: "r2", PlayerID: "p2", Prompt: "two"},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "p1", results[0].PlayerID)
	assert.Equal(t, "https://img.example/one", results[0].ImageRef)
	assert.False(t, results[0].Placeholder)
	assert.Equal(t, "https://img.example/two", results[1].ImageRef)
}

func TestPipeline_RetryableFailureExhaustsToPlaceholder(t *testing.T) {
	fc := newFakeClient()
	fc.fail["doomed"] = &VendorError{Status: 500, Body: "boom"}
	p := NewPipeline(fc, 2, testPolicy(), zap.NewNop())

	results := runBatch(t, p, []Request{
		{ID: "r1", PlayerID: "p1", Prompt: "doomed"},
		{ID: "r2", PlayerID: "p2", Prompt: "fine"},
	})

	require.Len(t, results, 2)
	assert.True(t, results[0].Placeholder)
	assert.Equal(t, PlaceholderRef, results[0].ImageRef)
	assert.Contains(t, results[0].Reason, "boom")
	assert.Equal(t, 3, fc.attemptsFor("doomed"), "should retry up to MaxAttempts")
	assert.False(t, results[1].Placeholder, "one failure must not poison the batch")
}

func TestPipeline_NonRetryableFailsFast(t *testing.T) {
	fc := newFakeClient()
	fc.fail["bad"] = &VendorError{Status: 401, Body: "bad key"}
	p := NewPipeline(fc, 2, testPolicy(), zap.NewNop())

	results := runBatch(t, p, []Request{{ID: "r1", PlayerID: "p1", Prompt: "bad"}})

	assert.True(t, results[0].Placeholder)
	assert.Equal(t, 1, fc.attemptsFor("bad"), "4xx must not be retried")
}

func TestPipeline_TransientThenSuccess(t *testing.T) {
	fc := newFakeClient()
	fc.failN["flaky"] = 2
	p := NewPipeline(fc, 2, testPolicy(), zap.NewNop())

	results := runBatch(t, p, []Request{{ID: "r1", PlayerID: "p1", Prompt: "flaky"}})

	assert.False(t, results[0].Placeholder)
	assert.Equal(t, 3, fc.attemptsFor("flaky"))
}

func TestPipeline_HonorsConcurrencyCap(t *testing.T) {
	fc := newFakeClient()
	fc.delay = 20 * time.Millisecond
	p := NewPipeline(fc, 2, testPolicy(), zap.NewNop())

	reqs := make([]Request, 6)
	for i := range reqs {
		reqs[i] = Request{ID: "r", PlayerID: "p", Prompt: "x"}
	}
	runBatch(t, p, reqs)

	assert.LessOrEqual(t, fc.peak.Load(), int32(2), "cap of 2 exceeded")
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &VendorError{Status: 500}, true},
		{"rate limited body but 503", &VendorError{Status: 503}, true},
		{"bad request", &VendorError{Status: 400}, false},
		{"unauthorized", &VendorError{Status: 401}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"cancel", context.Canceled, false},
		{"transport", errors.New("connection reset"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 1*time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 4*time.Second, p.Delay(9), "schedule tail repeats")
}
