package quality

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingVerifier struct {
	mu      sync.Mutex
	calls   []uint64
	started chan struct{}
	proceed chan struct{}
}

func newBlockingVerifier() *blockingVerifier {
	return &blockingVerifier{
		started: make(chan struct{}, 1),
		proceed: make(chan struct{}),
	}
}

func (v *blockingVerifier) VerifySubmission(_ context.Context, submissionID uint64, _ bool, _ uint8, _ string) (string, error) {
	v.mu.Lock()
	v.calls = append(v.calls, submissionID)
	v.mu.Unlock()

	v.started <- struct{}{}
	<-v.proceed
	return "0xtx", nil
}

func TestQueueSubmissionSkipsInflightRedelivery(t *testing.T) {
	verifier := newBlockingVerifier()
	p := NewProcessor(nil, testEngine(t, newFakeStore(), 70), verifier, testLogger(t), 1, time.Second)

	sub := csvSubmission()
	p.queueSubmission(context.Background(), sub)

	// Wait until the first run holds the claim, then redeliver the same
	// submission the way a fast poll tick would.
	select {
	case <-verifier.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first verification never started")
	}
	p.queueSubmission(context.Background(), sub)

	close(verifier.proceed)
	p.workerPool.StopWait()

	require.Len(t, verifier.calls, 1)
	assert.Equal(t, sub.SubmissionID, verifier.calls[0])
}

func TestClaimReleasedAfterProcessing(t *testing.T) {
	p := NewProcessor(nil, testEngine(t, newFakeStore(), 70), nil, testLogger(t), 1, time.Second)

	require.True(t, p.claim(3))
	assert.False(t, p.claim(3))
	p.release(3)
	assert.True(t, p.claim(3))
}
