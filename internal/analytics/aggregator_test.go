package analytics

import (
	"context"
	"math"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/provider"
)

func result(pid string, confidence float64, tokens int) *provider.Result {
	return &provider.Result{ProviderID: pid, Confidence: confidence, TokensUsed: tokens, Succeeded: true}
}

func TestSnapshotUnknownUserIsZero(t *testing.T) {
	a := NewAggregator(nil, zaptest.NewLogger(t))
	state := a.Snapshot("nobody")
	if state.TotalMessages != 0 || state.TotalTokens != 0 || state.AverageConfidence != 0 {
		t.Errorf("unknown user state = %+v, want zero", state)
	}
	if state.PerProvider == nil {
		t.Error("PerProvider is nil, want empty map")
	}
}

func TestUpdateCounters(t *testing.T) {
	a := NewAggregator(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	a.Update(ctx, "u1", result("workers-ai", 0.9, 120))
	a.Update(ctx, "u1", result("openai", 0.8, 80))
	a.Update(ctx, "u1", result("workers-ai", 0.9, 100))

	state := a.Snapshot("u1")
	if state.TotalMessages != 3 {
		t.Errorf("TotalMessages = %d, want 3", state.TotalMessages)
	}
	if state.TotalTokens != 300 {
		t.Errorf("TotalTokens = %d, want 300", state.TotalTokens)
	}
	if state.PerProvider["workers-ai"] != 2 || state.PerProvider["openai"] != 1 {
		t.Errorf("PerProvider = %v, want workers-ai:2 openai:1", state.PerProvider)
	}
}

// The incremental average must match the arithmetic mean of all observed
// confidences within float tolerance.
func TestIncrementalAverageMatchesMean(t *testing.T) {
	a := NewAggregator(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	confidences := []float64{0.95, 0.9, 0.8, 0.1, 0.9, 0.95, 0.8}
	var sum float64
	for _, c := range confidences {
		a.Update(ctx, "u2", result("p", c, 10))
		sum += c
	}

	want := sum / float64(len(confidences))
	got := a.Snapshot("u2").AverageConfidence
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("AverageConfidence = %v, want %v", got, want)
	}
}

func TestConcurrentUpdatesSameUser(t *testing.T) {
	const writers = 8
	const perWriter = 50

	a := NewAggregator(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				a.Update(ctx, "u3", result("p", 0.5, 10))
			}
		}()
	}
	wg.Wait()

	state := a.Snapshot("u3")
	if state.TotalMessages != writers*perWriter {
		t.Errorf("TotalMessages = %d, want %d", state.TotalMessages, writers*perWriter)
	}
	if state.TotalTokens != writers*perWriter*10 {
		t.Errorf("TotalTokens = %d, want %d", state.TotalTokens, writers*perWriter*10)
	}
	if math.Abs(state.AverageConfidence-0.5) > 1e-9 {
		t.Errorf("AverageConfidence = %v, want 0.5", state.AverageConfidence)
	}
}

func TestUsersAggregateIndependently(t *testing.T) {
	a := NewAggregator(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	a.Update(ctx, "u4", result("p", 0.9, 10))
	a.Update(ctx, "u5", result("p", 0.1, 99))

	if got := a.Snapshot("u4"); got.TotalMessages != 1 || got.AverageConfidence != 0.9 {
		t.Errorf("u4 state = %+v", got)
	}
	if got := a.Snapshot("u5"); got.TotalTokens != 99 || got.AverageConfidence != 0.1 {
		t.Errorf("u5 state = %+v", got)
	}
}

// Snapshot hands out copies; mutating one must not leak into live state.
func TestSnapshotIsACopy(t *testing.T) {
	a := NewAggregator(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	a.Update(ctx, "u6", result("p", 0.9, 10))
	snap := a.Snapshot("u6")
	snap.PerProvider["p"] = 999

	if got := a.Snapshot("u6").PerProvider["p"]; got != 1 {
		t.Errorf("live PerProvider count = %d after snapshot mutation, want 1", got)
	}
}
