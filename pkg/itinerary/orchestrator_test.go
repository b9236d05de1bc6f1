package itinerary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyageai/pkg/llm"
	"voyageai/pkg/model"
)

func newOrchestrator(t *testing.T, text *fakeText, images *fakeImages) *Orchestrator {
	t.Helper()
	return NewOrchestrator(text, images, newBuilder(t), Options{})
}

func waitComplete(t *testing.T, o *Orchestrator) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := o.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func TestOrchestrator_KyotoScenario(t *testing.T) {
	text := &fakeText{responses: []string{kyotoResponse}}
	images := &fakeImages{}
	o := newOrchestrator(t, text, images)

	partial, err := o.Generate(context.Background(), kyotoRequest())
	require.NoError(t, err)

	assert.Equal(t, StatePartialResult, partial.State)
	require.Len(t, partial.Result.Itinerary, 2)
	for _, d := range partial.Result.Itinerary {
		assert.True(t, d.Image.IsPending())
	}
	assert.Equal(t, 2, partial.PendingImages)
	assert.Nil(t, partial.Failure)

	done := waitComplete(t, o)
	assert.Equal(t, StateComplete, done.State)
	assert.Nil(t, done.Failure)
	assert.Zero(t, done.PendingImages)

	d0, d1 := done.Result.Itinerary[0], done.Result.Itinerary[1]
	require.True(t, d0.Image.IsReady())
	assert.True(t, strings.HasPrefix(d0.Image.URI(), "data:image/png;base64,"))
	assert.True(t, d1.Image.IsFailed())

	// Non-image fields are unchanged from the partial result.
	for i := range done.Result.Itinerary {
		want := partial.Result.Itinerary[i]
		got := done.Result.Itinerary[i]
		got.Image = want.Image
		assert.Equal(t, want, got)
	}
	assert.Equal(t, partial.Result.Summary, done.Result.Summary)

	assert.Equal(t, []string{llm.IntentItinerary}, text.intents)
	assert.True(t, text.prompts[0].UseSearch)
}

func TestOrchestrator_PartialSnapshotIsNotMutatedByImages(t *testing.T) {
	o := newOrchestrator(t, &fakeText{responses: []string{kyotoResponse}}, &fakeImages{})

	partial, err := o.Generate(context.Background(), kyotoRequest())
	require.NoError(t, err)
	waitComplete(t, o)

	for _, d := range partial.Result.Itinerary {
		assert.True(t, d.Image.IsPending(), "snapshots are copies")
	}
}

func TestOrchestrator_SlowImageDoesNotBlockOthers(t *testing.T) {
	raw := strings.Replace(kyotoResponse, "misty temple at sunrise", "slow temple", 1)
	raw = strings.Replace(raw, "bamboo grove, please fail", "bamboo grove", 1)
	images := &fakeImages{release: make(chan struct{})}
	o := newOrchestrator(t, &fakeText{responses: []string{raw}}, images)

	_, err := o.Generate(context.Background(), kyotoRequest())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		d, _ := o.Snapshot().Result.DayByIndex(2)
		return d.Image.IsReady()
	}, 2*time.Second, 5*time.Millisecond)

	snap := o.Snapshot()
	assert.Equal(t, StateEnriching, snap.State)
	d1, _ := snap.Result.DayByIndex(1)
	assert.True(t, d1.Image.IsPending())

	close(images.release)
	done := waitComplete(t, o)
	assert.Equal(t, StateComplete, done.State)
	assert.True(t, done.Result.Itinerary[0].Image.IsReady())
}

func TestOrchestrator_ImageConcurrencyLimit(t *testing.T) {
	images := &fakeImages{}
	o := NewOrchestrator(&fakeText{responses: []string{kyotoResponse}}, images, newBuilder(t), Options{ImageConcurrency: 1})

	_, err := o.Generate(context.Background(), kyotoRequest())
	require.NoError(t, err)
	done := waitComplete(t, o)

	assert.Equal(t, StateComplete, done.State)
	assert.Len(t, images.prompts, 2)
}

func TestOrchestrator_ImageTimeout(t *testing.T) {
	raw := strings.Replace(kyotoResponse, "misty temple at sunrise", "slow temple", 1)
	images := &fakeImages{release: make(chan struct{})}
	defer close(images.release)
	o := NewOrchestrator(&fakeText{responses: []string{raw}}, images, newBuilder(t), Options{ImageTimeout: 20 * time.Millisecond})

	_, err := o.Generate(context.Background(), kyotoRequest())
	require.NoError(t, err)
	done := waitComplete(t, o)

	assert.True(t, done.Result.Itinerary[0].Image.IsFailed())
}

func TestOrchestrator_TextFailures(t *testing.T) {
	tests := []struct {
		name    string
		text    *fakeText
		reason  FailureReason
		message string
		target  error
	}{
		{
			name:    "missing credentials",
			text:    &fakeText{unset: true},
			reason:  ReasonConfiguration,
			message: llm.ErrMissingCredentials.Error(),
			target:  llm.ErrMissingCredentials,
		},
		{
			name:    "malformed output",
			text:    &fakeText{responses: []string{`{"summary":"s","accommodations":[],"itinerary":[]}`}},
			reason:  ReasonMalformed,
			message: "The AI returned an invalid format. Please try again.",
			target:  ErrMalformedResponse,
		},
		{
			name:    "transport",
			text:    &fakeText{err: errors.New("429 quota exceeded")},
			reason:  ReasonTransport,
			message: "Failed to generate itinerary. Error: 429 quota exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := &fakeImages{}
			o := newOrchestrator(t, tt.text, images)

			snap, err := o.Generate(context.Background(), kyotoRequest())
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Equal(t, StateFailed, snap.State)
			require.NotNil(t, snap.Failure)
			assert.Equal(t, tt.reason, snap.Failure.Reason)
			assert.Equal(t, tt.message, snap.Failure.Message)
			assert.Nil(t, snap.Result)
			assert.Empty(t, images.prompts, "images are never requested after a text failure")

			done := waitComplete(t, o)
			assert.Equal(t, StateFailed, done.State)
		})
	}
}

func TestOrchestrator_MissingCredentialsSkipsTextCall(t *testing.T) {
	text := &fakeText{unset: true}
	o := newOrchestrator(t, text, &fakeImages{})

	_, err := o.Generate(context.Background(), kyotoRequest())
	assert.ErrorIs(t, err, llm.ErrMissingCredentials)
	assert.Zero(t, text.calls())
}

func TestOrchestrator_MissingImageCredentialsFailsBeforeText(t *testing.T) {
	text := &fakeText{responses: []string{kyotoResponse}}
	images := &fakeImages{unset: true}
	o := newOrchestrator(t, text, images)

	snap, err := o.Generate(context.Background(), kyotoRequest())
	assert.ErrorIs(t, err, llm.ErrMissingCredentials)
	assert.Zero(t, text.calls())
	assert.Equal(t, StateFailed, snap.State)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, ReasonConfiguration, snap.Failure.Reason)
	assert.Equal(t, StateFailed, o.Snapshot().State)
}

func TestOrchestrator_ValidationLeavesStateUntouched(t *testing.T) {
	text := &fakeText{responses: []string{kyotoResponse}}
	o := newOrchestrator(t, text, &fakeImages{})

	_, err := o.Generate(context.Background(), kyotoRequest())
	require.NoError(t, err)
	before := waitComplete(t, o)

	bad := kyotoRequest()
	bad.Destination = "  "
	_, err = o.Generate(context.Background(), bad)
	assert.ErrorIs(t, err, model.ErrValidation)

	after := o.Snapshot()
	assert.Equal(t, before.GenerationID, after.GenerationID)
	assert.Equal(t, StateComplete, after.State)
	assert.Equal(t, 1, text.calls())
}

func TestOrchestrator_RegenerationDiscardsStaleImages(t *testing.T) {
	slowRaw := strings.Replace(kyotoResponse, "misty temple at sunrise", "slow temple", 1)
	text := &fakeText{responses: []string{slowRaw, kyotoResponse}}
	images := &fakeImages{release: make(chan struct{})}
	o := newOrchestrator(t, text, images)

	first, err := o.Generate(context.Background(), kyotoRequest())
	require.NoError(t, err)

	second, err := o.Generate(context.Background(), kyotoRequest())
	require.NoError(t, err)
	require.NotEqual(t, first.GenerationID, second.GenerationID)

	done := waitComplete(t, o)
	assert.Equal(t, second.GenerationID, done.GenerationID)

	// A late completion from the first generation must not land on the second.
	o.settle(first.GenerationID, 1, model.ImageReady("data:image/png;base64,c3RhbGU="))
	close(images.release)

	snap := o.Snapshot()
	assert.Equal(t, second.GenerationID, snap.GenerationID)
	assert.Equal(t, done.Result, snap.Result)
	assert.Equal(t, StateComplete, snap.State)
}

func TestOrchestrator_SettleOnlyOnce(t *testing.T) {
	o := newOrchestrator(t, &fakeText{responses: []string{kyotoResponse}}, &fakeImages{})
	_, err := o.Generate(context.Background(), kyotoRequest())
	require.NoError(t, err)
	done := waitComplete(t, o)

	o.settle(done.GenerationID, 2, model.ImageReady("data:image/png;base64,eA=="))
	o.settle(done.GenerationID, 99, model.ImageReady("data:image/png;base64,eA=="))

	d, _ := o.Snapshot().Result.DayByIndex(2)
	assert.True(t, d.Image.IsFailed())
}

func TestOrchestrator_SupersededDuringTextCall(t *testing.T) {
	text := &fakeText{responses: []string{kyotoResponse}, block: make(chan struct{})}
	o := newOrchestrator(t, text, &fakeImages{})

	errCh := make(chan error, 1)
	go func() {
		_, err := o.Generate(context.Background(), kyotoRequest())
		errCh <- err
	}()
	require.Eventually(t, func() bool { return text.calls() == 1 }, time.Second, time.Millisecond)

	saved := model.SavedItinerary{ID: "saved-1", Request: kyotoRequest(), Result: model.ItineraryResult{
		Summary:   "restored",
		Itinerary: []model.ItineraryDay{{Day: 1, Title: "Old"}},
	}}
	restored := o.Restore(saved)
	close(text.block)

	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	snap := o.Snapshot()
	assert.Equal(t, restored.GenerationID, snap.GenerationID)
	assert.Equal(t, "restored", snap.Result.Summary)
}

func TestOrchestrator_Idle(t *testing.T) {
	o := newOrchestrator(t, &fakeText{}, &fakeImages{})

	assert.Equal(t, StateIdle, o.Snapshot().State)
	snap, err := o.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)

	_, _, ok := o.Current()
	assert.False(t, ok)
	_, err = o.SetSummary("x")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestOrchestrator_Subscribe(t *testing.T) {
	o := newOrchestrator(t, &fakeText{responses: []string{kyotoResponse}}, &fakeImages{})
	ch, cancel := o.Subscribe()
	defer cancel()

	_, err := o.Generate(context.Background(), kyotoRequest())
	require.NoError(t, err)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case snap := <-ch:
			if snap.State == StateComplete {
				assert.Zero(t, snap.PendingImages)
				return
			}
		case <-timeout:
			t.Fatal("never observed the complete state")
		}
	}
}

func TestOrchestrator_SubscribeCancelClosesChannel(t *testing.T) {
	o := newOrchestrator(t, &fakeText{}, &fakeImages{})
	ch, cancel := o.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
}

func TestOrchestrator_SetSummaryAndCurrent(t *testing.T) {
	o := newOrchestrator(t, &fakeText{responses: []string{kyotoResponse}}, &fakeImages{})
	_, err := o.Generate(context.Background(), kyotoRequest())
	require.NoError(t, err)
	waitComplete(t, o)

	snap, err := o.SetSummary("My own words.")
	require.NoError(t, err)
	assert.Equal(t, "My own words.", snap.Result.Summary)

	req, res, ok := o.Current()
	require.True(t, ok)
	assert.Equal(t, "Kyoto", req.Destination)
	assert.Equal(t, "My own words.", res.Summary)

	res.Summary = "mutated copy"
	assert.Equal(t, "My own words.", o.Snapshot().Result.Summary)
}

func TestOrchestrator_RestoreMarksPendingAsFailed(t *testing.T) {
	o := newOrchestrator(t, &fakeText{}, &fakeImages{})
	saved := model.SavedItinerary{
		ID:      "abc",
		Request: kyotoRequest(),
		Result: model.ItineraryResult{Itinerary: []model.ItineraryDay{
			{Day: 1, Image: model.ImageReady("data:image/jpeg;base64,eA==")},
			{Day: 2, Image: model.ImagePending()},
		}},
	}

	snap := o.Restore(saved)
	assert.Equal(t, StateComplete, snap.State)
	assert.True(t, snap.Result.Itinerary[0].Image.IsReady())
	assert.True(t, snap.Result.Itinerary[1].Image.IsFailed())
	assert.True(t, saved.Result.Itinerary[1].Image.IsPending(), "saved copy is untouched")
}
