package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/jwerderits/farmspread/internal/flatten"
	"github.com/jwerderits/farmspread/internal/ledgercsv"
	"github.com/jwerderits/farmspread/internal/pipeline"
	"github.com/jwerderits/farmspread/internal/storage"
	"github.com/jwerderits/farmspread/internal/window"
	"github.com/stretchr/testify/require"
)

// MockEventSource is a mock implementation of EventSource for testing.
type MockEventSource struct {
	DiscoverFunc func(ctx context.Context, rootURI string) ([]domain.EventRef, error)
}

func (m *MockEventSource) Discover(ctx context.Context, rootURI string) ([]domain.EventRef, error) {
	return m.DiscoverFunc(ctx, rootURI)
}

// MockEventFetcher serves event payloads by URI.
type MockEventFetcher struct {
	GetEventFunc func(ctx context.Context, uri string) (*domain.EventDetail, error)
	Fetched      []string
}

func (m *MockEventFetcher) GetEvent(ctx context.Context, uri string) (*domain.EventDetail, error) {
	m.Fetched = append(m.Fetched, uri)
	return m.GetEventFunc(ctx, uri)
}

// MockRunRecorder records what the pipeline reported.
type MockRunRecorder struct {
	Started   bool
	FailedErr error
	Succeeded bool
	RowCount  int
	Object    string
	Exported  int
}

func (m *MockRunRecorder) StartRun(ctx context.Context, w window.Window) (string, error) {
	m.Started = true
	return "run-1", nil
}

func (m *MockRunRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	m.FailedErr = runErr
}

func (m *MockRunRecorder) MarkRunSucceeded(ctx context.Context, runID string, rowCount int, objectName string) error {
	m.Succeeded = true
	m.RowCount = rowCount
	m.Object = objectName
	return nil
}

func (m *MockRunRecorder) RecordLedger(ctx context.Context, runID string, l *domain.Ledger) error {
	m.Exported = len(l.Rows)
	return nil
}

var eventPayloads = map[string]string{
	"/event/1/": `{"market": "Wooster Square", "start_datetime": "2020-06-07T09:00:00", "stalls": [
		{"vendor": {"id": 42, "name": "Sunny Acres", "data": {"attended": true, "sales": {"amount": 120,
			"breakdown": [{"currency": "Cash", "amount": 100.00}, {"currency": "SNAP", "amount": 20.00}]}}}},
		{"vendor": null}
	]}`,
	"/event/2/": `{"market": "Wooster Square", "start_datetime": "2020-06-13T09:00:00", "stalls": [
		{"vendor": {"id": 42, "name": "Sunny Acres", "data": {"attended": true, "sales": {"amount": 30,
			"breakdown": [{"currency": "Cash", "amount": 30.00}]}}}}
	]}`,
	"/event/3/": `{"market": "Edgewood", "start_datetime": "2020-05-20T15:00:00", "stalls": [
		{"vendor": {"id": "50", "name": "Late Spring", "data": {"attended": true, "sales": {"amount": 10,
			"breakdown": [{"currency": "Check", "amount": 10.00}]}}}}
	]}`,
}

const priorCSV = "transaction_id,reimbursements,reimbursement_fee,vendor_owes,city_seed_owes\n" +
	"42__2020-06-07,15.00,8.10,0.00,8.10\n"

type fixture struct {
	source   *MockEventSource
	fetcher  *MockEventFetcher
	recorder *MockRunRecorder
	store    *storage.SQLiteStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.OpenSQLiteStore(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ev := func(uri string, d int, m time.Month) domain.EventRef {
		return domain.EventRef{URI: uri, StartTime: time.Date(2020, m, d, 9, 0, 0, 0, time.UTC)}
	}
	return &fixture{
		source: &MockEventSource{
			DiscoverFunc: func(ctx context.Context, rootURI string) ([]domain.EventRef, error) {
				return []domain.EventRef{ev("/event/1/", 7, 6), ev("/event/3/", 20, 5), ev("/event/2/", 13, 6)}, nil
			},
		},
		fetcher: &MockEventFetcher{
			GetEventFunc: func(ctx context.Context, uri string) (*domain.EventDetail, error) {
				var detail domain.EventDetail
				if err := json.Unmarshal([]byte(eventPayloads[uri]), &detail); err != nil {
					return nil, err
				}
				return &detail, nil
			},
		},
		recorder: &MockRunRecorder{},
		store:    store,
	}
}

func (f *fixture) deps() pipeline.Deps {
	return pipeline.Deps{
		Source:    f.source,
		Flattener: flatten.NewFlattener(f.fetcher, time.UTC),
		Store:     f.store,
		Recorder:  f.recorder,
	}
}

func monthWindow(t *testing.T) window.Window {
	t.Helper()
	w, err := window.New(window.ModeMonth, civil.Date{Year: 2020, Month: 6, Day: 14}, 0)
	require.NoError(t, err)
	return w
}

func storedLedger(t *testing.T, store storage.Store, name string) *domain.Ledger {
	t.Helper()
	data, err := store.Get(context.Background(), name)
	require.NoError(t, err)
	l, err := ledgercsv.Decode(bytes.NewReader(data), name)
	require.NoError(t, err)
	return l
}

func TestRun_ReconcilesAgainstPriorWeek(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.Put(ctx, "2020-06-07.csv", []byte(priorCSV)))

	state, err := pipeline.Run(ctx, f.deps(), pipeline.Options{RootURI: "/api/v1/market/", Window: monthWindow(t)})
	require.NoError(t, err)

	require.Equal(t, "run-1", state.RunID)
	require.Equal(t, []string{"/event/1/", "/event/2/"}, f.fetcher.Fetched)
	require.Equal(t, "2020-06-07.csv", state.PriorName)
	require.Empty(t, state.ReconcileSkipped)
	require.True(t, state.Persisted)

	stored := storedLedger(t, f.store, "2020-06-14.csv")
	require.True(t, stored.Reconciled)
	require.Equal(t, []string{"cash", "snap"}, stored.PaymentColumns)
	require.Len(t, stored.Rows, 2)

	matched := stored.Rows[0]
	require.Equal(t, "42__2020-06-07", matched.TransactionID)
	require.Equal(t, "5.00", matched.Deltas.Reimbursements.Decimal.StringFixed(2))
	require.Equal(t, "4.70", matched.Deltas.ReimbursementFee.Decimal.StringFixed(2))
	require.Equal(t, "4.70", matched.Deltas.CitySeedOwes.Decimal.StringFixed(2))

	unmatched := stored.Rows[1]
	require.Equal(t, "42__2020-06-13", unmatched.TransactionID)
	require.Equal(t, "1.80", unmatched.VendorOwes.StringFixed(2))
	require.False(t, unmatched.Deltas.Reimbursements.Valid)

	require.True(t, f.recorder.Started)
	require.True(t, f.recorder.Succeeded)
	require.Nil(t, f.recorder.FailedErr)
	require.Equal(t, 2, f.recorder.RowCount)
	require.Equal(t, 2, f.recorder.Exported)
	require.Equal(t, f.store.URI("2020-06-14.csv"), f.recorder.Object)
}

func TestRun_CrossMonthWindowSkipsReconciliation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.Put(ctx, "2020-06-07.csv", []byte(priorCSV)))

	w, err := window.New(window.ModeRolling, civil.Date{Year: 2020, Month: 6, Day: 14}, 30)
	require.NoError(t, err)

	state, err := pipeline.Run(ctx, f.deps(), pipeline.Options{Window: w, StrictReconciliation: true})
	require.NoError(t, err)
	require.Equal(t, pipeline.SkipNotJoinable, state.ReconcileSkipped)
	require.Equal(t, []string{"/event/1/", "/event/3/", "/event/2/"}, f.fetcher.Fetched)

	stored := storedLedger(t, f.store, "2020-06-14.csv")
	require.False(t, stored.Reconciled)
	require.Equal(t, []string{"cash", "check", "snap"}, stored.PaymentColumns)
	for _, r := range stored.Rows {
		require.Nil(t, r.Deltas)
	}
}

func TestRun_MissingPriorDegrades(t *testing.T) {
	f := newFixture(t)

	state, err := pipeline.Run(context.Background(), f.deps(), pipeline.Options{Window: monthWindow(t)})
	require.NoError(t, err)
	require.Equal(t, pipeline.SkipPriorMissing, state.ReconcileSkipped)
	require.False(t, storedLedger(t, f.store, "2020-06-14.csv").Reconciled)
}

func TestRun_MissingPriorStrict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := pipeline.Run(ctx, f.deps(), pipeline.Options{Window: monthWindow(t), StrictReconciliation: true})
	require.ErrorIs(t, err, domain.ErrReconciliationUnavailable)
	require.ErrorIs(t, err, storage.ErrSnapshotNotFound)
	require.Contains(t, err.Error(), "pipeline step 6 (reconcile) failed")

	require.ErrorIs(t, f.recorder.FailedErr, domain.ErrReconciliationUnavailable)
	require.False(t, f.recorder.Succeeded)

	ok, err := f.store.Exists(ctx, "2020-06-14.csv")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRun_TransportErrorAbortsWithoutOutput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boom := &domain.TransportError{URL: "/event/2/", StatusCode: 500, Err: errors.New("internal error")}
	inner := f.fetcher.GetEventFunc
	f.fetcher.GetEventFunc = func(ctx context.Context, uri string) (*domain.EventDetail, error) {
		if uri == "/event/2/" {
			return nil, boom
		}
		return inner(ctx, uri)
	}

	state, err := pipeline.Run(ctx, f.deps(), pipeline.Options{Window: monthWindow(t)})
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	require.Contains(t, err.Error(), "pipeline step 4 (flatten) failed")
	require.False(t, state.Persisted)
	require.NotNil(t, f.recorder.FailedErr)

	ok, err := f.store.Exists(ctx, "2020-06-14.csv")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRun_DiscoveryFailure(t *testing.T) {
	f := newFixture(t)
	f.source.DiscoverFunc = func(ctx context.Context, rootURI string) ([]domain.EventRef, error) {
		return nil, fmt.Errorf("Discover: list markets: %w", &domain.TransportError{URL: rootURI, Err: errors.New("dial tcp: refused")})
	}

	_, err := pipeline.Run(context.Background(), f.deps(), pipeline.Options{RootURI: "/api/v1/market/", Window: monthWindow(t)})
	require.ErrorContains(t, err, "pipeline step 2 (discover) failed")
	require.Empty(t, f.fetcher.Fetched)
}

func TestRun_DryRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	state, err := pipeline.Run(ctx, f.deps(), pipeline.Options{Window: monthWindow(t), DryRun: true})
	require.NoError(t, err)
	require.False(t, state.Persisted)
	require.NotEmpty(t, state.Data)
	require.Zero(t, f.recorder.Exported)

	ok, err := f.store.Exists(ctx, "2020-06-14.csv")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRun_PaymentColumnWhitelist(t *testing.T) {
	f := newFixture(t)

	state, err := pipeline.Run(context.Background(), f.deps(), pipeline.Options{
		Window:         monthWindow(t),
		PaymentColumns: []string{"SNAP", "Cash", "snap", "Double Up"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"snap", "cash", "double_up"}, state.Ledger.PaymentColumns)

	header := ledgercsv.Header(state.Ledger)
	require.Equal(t, []string{"snap", "cash", "double_up"}, header[5:8])
}

func TestRun_DefaultRecorder(t *testing.T) {
	f := newFixture(t)
	deps := f.deps()
	deps.Recorder = nil

	state, err := pipeline.Run(context.Background(), deps, pipeline.Options{Window: monthWindow(t)})
	require.NoError(t, err)
	require.NotEmpty(t, state.RunID)
}

func TestRun_MissingDeps(t *testing.T) {
	_, err := pipeline.Run(context.Background(), pipeline.Deps{}, pipeline.Options{})
	require.Error(t, err)
}

func TestRenderSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.Put(ctx, "2020-06-07.csv", []byte(priorCSV)))

	state, err := pipeline.Run(ctx, f.deps(), pipeline.Options{Window: monthWindow(t)})
	require.NoError(t, err)

	var buf bytes.Buffer
	pipeline.RenderSummary(&buf, state)
	out := buf.String()
	require.Contains(t, out, "run-1")
	require.Contains(t, out, "against 2020-06-07.csv")
	require.Contains(t, out, "150.00")
	require.Contains(t, out, "Checksum mismatches")

	totals := pipeline.Summarize(state.Ledger)
	require.Equal(t, 2, totals.Rows)
	require.Equal(t, "20.00", totals.Reimbursements.StringFixed(2))
	require.Equal(t, "12.80", totals.CitySeedOwes.StringFixed(2))
	require.Equal(t, 0, totals.ChecksumMismatch)
}

type failingStep struct{ err error }

func (s *failingStep) Name() string { return "explode" }

func (s *failingStep) Execute(ctx context.Context, state *pipeline.PipelineState) error {
	return s.err
}

type setRunStep struct{}

func (s *setRunStep) Name() string { return "set_run" }

func (s *setRunStep) Execute(ctx context.Context, state *pipeline.PipelineState) error {
	state.RunID = "run-9"
	return nil
}

func TestPipeline_Execute(t *testing.T) {
	boom := errors.New("boom")
	recorder := &MockRunRecorder{}

	p := pipeline.NewPipeline(recorder, &setRunStep{}, &failingStep{err: boom})
	err := p.Execute(context.Background(), &pipeline.PipelineState{})
	require.ErrorIs(t, err, boom)
	require.EqualError(t, err, "pipeline step 2 (explode) failed: boom")
	require.ErrorIs(t, recorder.FailedErr, boom)

	// a failure before a run exists is not recorded
	recorder = &MockRunRecorder{}
	err = pipeline.NewPipeline(recorder, &failingStep{err: boom}).Execute(context.Background(), &pipeline.PipelineState{})
	require.ErrorIs(t, err, boom)
	require.Nil(t, recorder.FailedErr)
}
