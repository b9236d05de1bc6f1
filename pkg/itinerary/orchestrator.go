package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"voyageai/pkg/llm"
	"voyageai/pkg/llm/imageutil"
	"voyageai/pkg/logging"
	"voyageai/pkg/model"
)

// State is the position of a generation in its lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StateTextPending   State = "text_pending"
	StateFailed        State = "failed"
	StatePartialResult State = "partial_result"
	StateEnriching     State = "enriching"
	StateComplete      State = "complete"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateComplete
}

// Snapshot is an immutable copy of the orchestrator's current generation.
type Snapshot struct {
	GenerationID  string                 `json:"generation_id,omitempty"`
	State         State                  `json:"state"`
	Request       *model.TripRequest     `json:"request,omitempty"`
	Result        *model.ItineraryResult `json:"result,omitempty"`
	Failure       *Failure               `json:"failure,omitempty"`
	PendingImages int                    `json:"pending_images"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Options tune the orchestrator.
type Options struct {
	Image        imageutil.Options
	ImageRequest llm.ImageOptions
	// ImageConcurrency bounds parallel image calls; 0 launches every day at once.
	ImageConcurrency int
	ImageTimeout     time.Duration
	TextTimeout      time.Duration
}

// Orchestrator runs one text call per generation, then enriches each day with an image.
// A new generation supersedes the previous one; late results from it are discarded.
type Orchestrator struct {
	text      llm.TextGenerator
	images    llm.ImageGenerator
	builder   *PromptBuilder
	augmentor *Augmentor
	opts      Options
	newID     func() string

	mu      sync.Mutex
	gen     *generation
	subs    map[int]chan Snapshot
	nextSub int
}

type generation struct {
	id       string
	state    State
	req      model.TripRequest
	result   *model.ItineraryResult
	failure  *Failure
	updated  time.Time
	done     chan struct{}
	doneOnce sync.Once
}

func (g *generation) finish() {
	g.doneOnce.Do(func() { close(g.done) })
}

// NewOrchestrator creates an orchestrator for a single planning session.
func NewOrchestrator(text llm.TextGenerator, images llm.ImageGenerator, builder *PromptBuilder, opts Options) *Orchestrator {
	return &Orchestrator{
		text:      text,
		images:    images,
		builder:   builder,
		augmentor: NewAugmentor(text, builder),
		opts:      opts,
		newID:     uuid.NewString,
		subs:      make(map[int]chan Snapshot),
	}
}

// Generate starts a new generation and returns once the text phase settles.
// On success the snapshot is the partial result; images keep arriving in the background.
// A validation error leaves the current generation untouched.
func (o *Orchestrator) Generate(ctx context.Context, req model.TripRequest) (Snapshot, error) {
	req = req.Clone()
	req.Normalize()
	if err := req.Validate(); err != nil {
		return Snapshot{}, err
	}

	g := o.begin(req)

	if !o.text.Configured() || !o.images.Configured() {
		return o.fail(g, llm.ErrMissingCredentials)
	}

	prompt, err := o.builder.BuildPrompt(req)
	if err != nil {
		return o.fail(g, err)
	}

	textCtx := ctx
	if o.opts.TextTimeout > 0 {
		var cancel context.CancelFunc
		textCtx, cancel = context.WithTimeout(ctx, o.opts.TextTimeout)
		defer cancel()
	}

	slog.Info("Itinerary: generating", "generation", g.id, "destination", req.Destination, "days", req.Days())
	raw, err := o.text.GenerateText(textCtx, llm.IntentItinerary, prompt)
	if err != nil {
		return o.fail(g, err)
	}
	logging.Trace(nil, "Itinerary: raw response", "generation", g.id, "body", raw)

	result, err := ParseItineraryResponse(raw)
	if err != nil {
		slog.Warn("Itinerary: response rejected", "generation", g.id, "error", err)
		return o.fail(g, err)
	}

	o.mu.Lock()
	if o.gen != g {
		o.mu.Unlock()
		return Snapshot{}, ErrSuperseded
	}
	g.result = result
	o.transition(g, StatePartialResult)
	snap := o.snapshot(g)

	jobs := make([]imageJob, 0, len(result.Itinerary))
	for _, d := range result.Itinerary {
		jobs = append(jobs, imageJob{day: d.Day, prompt: d.ImagePrompt})
	}
	o.transition(g, StateEnriching)
	o.mu.Unlock()

	go o.enrich(context.WithoutCancel(ctx), g, jobs)

	return snap, nil
}

// begin replaces the current generation with a new one in TextPending.
func (o *Orchestrator) begin(req model.TripRequest) *generation {
	g := &generation{
		id:    o.newID(),
		req:   req,
		done:  make(chan struct{}),
		state: StateIdle,
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if prev := o.gen; prev != nil {
		if !prev.state.Terminal() {
			slog.Info("Itinerary: superseding generation", "previous", prev.id, "state", prev.state, "generation", g.id)
		}
		prev.finish()
	}
	o.gen = g
	o.transition(g, StateTextPending)
	return g
}

func (o *Orchestrator) fail(g *generation, err error) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != g {
		return Snapshot{}, ErrSuperseded
	}
	g.failure = NewFailure(err)
	o.transition(g, StateFailed)
	slog.Error("Itinerary: generation failed", "generation", g.id, "reason", g.failure.Reason, "error", err)
	return o.snapshot(g), fmt.Errorf("generate itinerary: %w", err)
}

type imageJob struct {
	day    int
	prompt string
}

// enrich runs one image task per day. Tasks never return an error so the join never short-circuits.
func (o *Orchestrator) enrich(ctx context.Context, g *generation, jobs []imageJob) {
	var eg errgroup.Group
	if o.opts.ImageConcurrency > 0 {
		eg.SetLimit(o.opts.ImageConcurrency)
	}

	for _, job := range jobs {
		eg.Go(func() error {
			o.settle(g.id, job.day, o.renderImage(ctx, g.id, job))
			return nil
		})
	}
	_ = eg.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != g || g.state != StateEnriching {
		return
	}
	o.transition(g, StateComplete)
	slog.Info("Itinerary: enrichment complete", "generation", g.id, "days", len(jobs))
}

func (o *Orchestrator) renderImage(ctx context.Context, genID string, job imageJob) model.ImageState {
	if strings.TrimSpace(job.prompt) == "" {
		slog.Warn("Itinerary: day has no image prompt", "generation", genID, "day", job.day)
		return model.ImageFailed()
	}

	if o.opts.ImageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.ImageTimeout)
		defer cancel()
	}

	img, err := o.images.GenerateImage(ctx, job.prompt, o.opts.ImageRequest.WithDefaults())
	if err != nil {
		slog.Warn("Itinerary: image generation failed", "generation", genID, "day", job.day, "error", err)
		return model.ImageFailed()
	}

	uri, err := imageutil.ToDataURI(img, o.opts.Image)
	if err != nil {
		slog.Warn("Itinerary: image conversion failed", "generation", genID, "day", job.day, "error", err)
		return model.ImageFailed()
	}
	return model.ImageReady(uri)
}

// settle applies a finished image task. Results for a superseded generation,
// an unknown day, or an already settled day are dropped.
func (o *Orchestrator) settle(genID string, dayIndex int, state model.ImageState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	g := o.gen
	if g == nil || g.id != genID || g.result == nil {
		slog.Debug("Itinerary: discarding stale image", "generation", genID, "day", dayIndex)
		return
	}
	day, ok := g.result.DayByIndex(dayIndex)
	if !ok || !day.Image.IsPending() {
		slog.Debug("Itinerary: discarding image for settled or missing day", "generation", genID, "day", dayIndex)
		return
	}
	day.Image = state
	o.touch(g)
}

// transition moves g to state and notifies subscribers. Caller holds o.mu.
func (o *Orchestrator) transition(g *generation, state State) {
	g.state = state
	if state.Terminal() {
		g.finish()
	}
	o.touch(g)
}

// touch records a change to g and notifies subscribers. Caller holds o.mu.
func (o *Orchestrator) touch(g *generation) {
	g.updated = time.Now()
	if len(o.subs) == 0 {
		return
	}
	snap := o.snapshot(g)
	for _, ch := range o.subs {
		// Latest wins: drop the undelivered snapshot if the subscriber is behind.
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// snapshot copies g. Caller holds o.mu.
func (o *Orchestrator) snapshot(g *generation) Snapshot {
	if g == nil {
		return Snapshot{State: StateIdle}
	}
	req := g.req.Clone()
	snap := Snapshot{
		GenerationID: g.id,
		State:        g.state,
		Request:      &req,
		Result:       g.result.Clone(),
		UpdatedAt:    g.updated,
	}
	if g.failure != nil {
		f := *g.failure
		snap.Failure = &f
	}
	if g.result != nil {
		snap.PendingImages = g.result.PendingImages()
	}
	return snap
}

// Snapshot returns the current generation; Idle when nothing was generated yet.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot(o.gen)
}

// Wait blocks until the current generation is Complete or Failed.
// If a newer generation starts meanwhile, Wait follows it.
func (o *Orchestrator) Wait(ctx context.Context) (Snapshot, error) {
	for {
		o.mu.Lock()
		g := o.gen
		if g == nil {
			o.mu.Unlock()
			return Snapshot{State: StateIdle}, nil
		}
		o.mu.Unlock()

		select {
		case <-g.done:
		case <-ctx.Done():
			return o.Snapshot(), ctx.Err()
		}

		o.mu.Lock()
		if o.gen == g {
			snap := o.snapshot(g)
			o.mu.Unlock()
			return snap, nil
		}
		o.mu.Unlock()
	}
}

// Subscribe returns a channel receiving a snapshot on every change.
// A slow subscriber only sees the latest snapshot. Call cancel to unsubscribe.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	if o.gen != nil {
		ch <- o.snapshot(o.gen)
	}
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
			close(ch)
		})
	}
}

// SetSummary replaces the summary with user-edited text.
func (o *Orchestrator) SetSummary(text string) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	g := o.gen
	if g == nil || g.result == nil {
		return Snapshot{}, ErrNotReady
	}
	g.result.Summary = text
	o.touch(g)
	return o.snapshot(g), nil
}

// AddMoreActivities asks for extra activities on one day and appends them.
// It is only available once the generation is Complete. On failure the result is left untouched.
func (o *Orchestrator) AddMoreActivities(ctx context.Context, dayIndex int) ([]model.PeriodActivity, model.ItineraryDay, error) {
	o.mu.Lock()
	g := o.gen
	if g == nil || g.state != StateComplete {
		o.mu.Unlock()
		return nil, model.ItineraryDay{}, ErrNotReady
	}
	day, ok := g.result.DayByIndex(dayIndex)
	if !ok {
		o.mu.Unlock()
		return nil, model.ItineraryDay{}, fmt.Errorf("%w: %d", ErrDayNotFound, dayIndex)
	}
	dayCopy := day.Clone()
	req := g.req.Clone()
	o.mu.Unlock()

	items, err := o.augmentor.AddMoreActivities(ctx, req, dayCopy, req.Interests)
	if err != nil {
		slog.Warn("Itinerary: add more activities failed", "generation", g.id, "day", dayIndex, "error", err)
		return nil, model.ItineraryDay{}, fmt.Errorf("%w: %w", ErrAugmentation, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != g {
		return nil, model.ItineraryDay{}, ErrSuperseded
	}
	day, ok = g.result.DayByIndex(dayIndex)
	if !ok {
		return nil, model.ItineraryDay{}, fmt.Errorf("%w: %d", ErrDayNotFound, dayIndex)
	}
	MergeActivities(day, items)
	o.touch(g)
	return items, day.Clone(), nil
}

// Restore makes a saved itinerary the current one, in state Complete.
// Images that were still pending when it was saved are shown as failed.
func (o *Orchestrator) Restore(saved model.SavedItinerary) Snapshot {
	result := saved.Result.Clone()
	for i := range result.Itinerary {
		if result.Itinerary[i].Image.IsPending() {
			result.Itinerary[i].Image = model.ImageFailed()
		}
	}

	g := &generation{
		id:     o.newID(),
		req:    saved.Request.Clone(),
		result: result,
		done:   make(chan struct{}),
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if prev := o.gen; prev != nil {
		prev.finish()
	}
	o.gen = g
	o.transition(g, StateComplete)
	slog.Info("Itinerary: restored saved itinerary", "saved", saved.ID, "generation", g.id)
	return o.snapshot(g)
}

// Current returns copies of the request and result to save. ok is false before any result exists.
func (o *Orchestrator) Current() (model.TripRequest, *model.ItineraryResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	g := o.gen
	if g == nil || g.result == nil {
		return model.TripRequest{}, nil, false
	}
	return g.req.Clone(), g.result.Clone(), true
}
