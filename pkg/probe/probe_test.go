package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"voyageai/pkg/llm"
)

type fakeProvider struct {
	configured bool
	healthErr  error
	checked    bool
}

func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) HealthCheck(ctx context.Context) error {
	f.checked = true
	return f.healthErr
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestRun(t *testing.T) {
	probes := []Probe{
		{
			Name: "Success Probe",
			Check: func(ctx context.Context) error {
				return nil
			},
			Critical: true,
		},
		{
			Name: "Failure Probe (Non-Critical)",
			Check: func(ctx context.Context) error {
				return errors.New("minor issue")
			},
			Critical: false,
		},
		{
			Name:    "Slow Probe",
			Timeout: 10 * time.Millisecond,
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}

	results := Run(context.Background(), probes)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("Expected success probe to pass, got error: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("Expected failure probe to fail, got nil")
	}
	if !errors.Is(results[2].Error, context.DeadlineExceeded) {
		t.Errorf("Expected slow probe to time out, got %v", results[2].Error)
	}
}

func TestCredentials(t *testing.T) {
	tests := []struct {
		name        string
		provider    *fakeProvider
		wantErr     error
		wantChecked bool
	}{
		{
			name:     "Missing Key",
			provider: &fakeProvider{},
			wantErr:  llm.ErrMissingCredentials,
		},
		{
			name:        "Healthy",
			provider:    &fakeProvider{configured: true},
			wantChecked: true,
		},
		{
			name:        "Unreachable",
			provider:    &fakeProvider{configured: true, healthErr: errors.New("401")},
			wantChecked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Credentials(tt.provider, false)
			err := p.Check(context.Background())
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Check() error = %v, want %v", err, tt.wantErr)
			}
			if tt.provider.healthErr != nil && err == nil {
				t.Error("Check() should surface the health check error")
			}
			if tt.provider.checked != tt.wantChecked {
				t.Errorf("HealthCheck called = %v, want %v", tt.provider.checked, tt.wantChecked)
			}
		})
	}
}

func TestCredentials_CriticalOnlyWhenRequired(t *testing.T) {
	results := Run(context.Background(), []Probe{Credentials(&fakeProvider{}, false)})
	if err := AnalyzeResults(results); err != nil {
		t.Errorf("optional credentials probe should not fail startup: %v", err)
	}

	results = Run(context.Background(), []Probe{Credentials(&fakeProvider{}, true)})
	if err := AnalyzeResults(results); !errors.Is(err, llm.ErrMissingCredentials) {
		t.Errorf("required credentials probe error = %v", err)
	}
}

func TestStore(t *testing.T) {
	if err := Store(fakePinger{}).Check(context.Background()); err != nil {
		t.Errorf("healthy store: %v", err)
	}
	p := Store(fakePinger{err: errors.New("connection refused")})
	if !p.Critical {
		t.Error("store probe should be critical")
	}
	if err := p.Check(context.Background()); err == nil {
		t.Error("expected ping error")
	}
}

func TestRun_Concurrent(t *testing.T) {
	// Each probe waits for the other, so a sequential runner would time both out.
	a, b := make(chan struct{}), make(chan struct{})
	pair := func(mine, theirs chan struct{}) CheckFunc {
		return func(ctx context.Context) error {
			close(mine)
			select {
			case <-theirs:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	results := Run(context.Background(), []Probe{
		{Name: "store", Check: pair(a, b), Timeout: time.Second},
		{Name: "credentials", Check: pair(b, a), Timeout: time.Second},
	})
	for _, r := range results {
		if r.Error != nil {
			t.Errorf("%s: %v", r.Probe.Name, r.Error)
		}
	}
	if results[0].Probe.Name != "store" || results[1].Probe.Name != "credentials" {
		t.Error("results lost probe order")
	}
}

func TestAnalyzeResults(t *testing.T) {
	storeDown := errors.New("connection refused")
	keyBad := errors.New("401 unauthorized")

	tests := []struct {
		name    string
		results []Result
		want    []error
	}{
		{
			name:    "all pass",
			results: []Result{{Probe: Probe{Name: "Itinerary store", Critical: true}}},
		},
		{
			name:    "optional failure is logged only",
			results: []Result{{Probe: Probe{Name: "LLM credentials"}, Error: keyBad}},
		},
		{
			name: "critical failures are joined",
			results: []Result{
				{Probe: Probe{Name: "LLM credentials", Critical: true}, Error: keyBad},
				{Probe: Probe{Name: "Itinerary store", Critical: true}, Error: storeDown},
			},
			want: []error{keyBad, storeDown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if len(tt.want) == 0 {
				if err != nil {
					t.Errorf("AnalyzeResults() = %v, want nil", err)
				}
				return
			}
			for _, w := range tt.want {
				if !errors.Is(err, w) {
					t.Errorf("AnalyzeResults() = %v, missing %v", err, w)
				}
			}
		})
	}
}
