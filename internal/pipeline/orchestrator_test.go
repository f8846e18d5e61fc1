package pipeline_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/logger"
	"github.com/feral-file/ff-transfer-alert/internal/metrics"
	"github.com/feral-file/ff-transfer-alert/internal/mocks"
	"github.com/feral-file/ff-transfer-alert/internal/notifier"
	"github.com/feral-file/ff-transfer-alert/internal/pipeline"
	"github.com/feral-file/ff-transfer-alert/internal/store"
)

const watched = "0x00000000000000000000000000000000000000aa"

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// testOrchestratorMocks contains all the mocks needed for testing the orchestrator
type testOrchestratorMocks struct {
	ctrl     *gomock.Controller
	source   *mocks.MockEtherscanClient
	resolver *mocks.MockMetadataResolver
	notifier *mocks.MockNotifier
	clock    *mocks.MockClock
	store    store.Store
	metrics  *metrics.Metrics
	orch     *pipeline.Orchestrator
}

// setupTestOrchestrator wires the orchestrator to an in-memory dedup store and mocked collaborators
func setupTestOrchestrator(t *testing.T, dedup ...store.Store) *testOrchestratorMocks {
	ctrl := gomock.NewController(t)

	tm := &testOrchestratorMocks{
		ctrl:     ctrl,
		source:   mocks.NewMockEtherscanClient(ctrl),
		resolver: mocks.NewMockMetadataResolver(ctrl),
		notifier: mocks.NewMockNotifier(ctrl),
		clock:    mocks.NewMockClock(ctrl),
		metrics:  metrics.New(),
	}

	tm.clock.EXPECT().Now().Return(time.Unix(1700000100, 0)).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Second).AnyTimes()
	tm.clock.EXPECT().Unix(gomock.Any(), gomock.Any()).DoAndReturn(time.Unix).AnyTimes()

	if len(dedup) > 0 {
		tm.store = dedup[0]
	} else {
		tm.store = store.NewMemoryStore(tm.clock)
	}

	tm.orch = pipeline.NewOrchestrator(
		tm.source,
		tm.store,
		tm.resolver,
		tm.notifier,
		notifier.NewFormatter(tm.clock, "KEY", "@cryptohornettg", "Europe/Kyiv"),
		tm.metrics,
		tm.clock,
		pipeline.Config{WatchedAddress: watched, Term: "KEY"},
	)

	return tm
}

func superKeyTransfer() domain.TransferRecord {
	return domain.TransferRecord{
		Hash:            "0xa",
		LogIndex:        0,
		From:            "0x00000000000000000000000000000000000000bb",
		To:              watched,
		ContractAddress: "0x00000000000000000000000000000000000000cc",
		TokenName:       "SUPERKEY",
		TokenSymbol:     "SKEY",
		Timestamp:       1700000000,
	}
}

func TestRun_NotifiesOnceAcrossRuns(t *testing.T) {
	tm := setupTestOrchestrator(t)
	defer tm.ctrl.Finish()

	ctx := context.Background()
	records := []domain.TransferRecord{superKeyTransfer()}

	tm.source.EXPECT().FetchRecentTransfers(gomock.Any(), watched).Return(records, nil).Times(2)
	tm.notifier.EXPECT().
		Send(gomock.Any(), "New KEY detected! Name: SUPERKEY Date: 15.11.2023, 00:13:20 Link: @cryptohornettg").
		Return(nil).
		Times(1)

	result, err := tm.orch.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunResult{Checked: 1, Matched: 1, Posted: 1, SkippedDuplicate: 0}, result)

	result, err = tm.orch.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunResult{Checked: 1, Matched: 1, Posted: 0, SkippedDuplicate: 1}, result)

	assert.Equal(t, float64(1), testutil.ToFloat64(tm.metrics.AlertsPosted))
	assert.Equal(t, float64(1), testutil.ToFloat64(tm.metrics.DuplicatesSkipped))
	assert.Equal(t, float64(2), testutil.ToFloat64(tm.metrics.RunsTotal.WithLabelValues(metrics.STATUS_SUCCESS)))
}

func TestRun_SymbolOnlyTransferNotifiesOnce(t *testing.T) {
	tm := setupTestOrchestrator(t)
	defer tm.ctrl.Finish()

	ctx := context.Background()
	record := superKeyTransfer()
	record.TokenName = ""
	record.TokenSymbol = "SUPERKEY"

	tm.source.EXPECT().FetchRecentTransfers(gomock.Any(), watched).
		Return([]domain.TransferRecord{record}, nil).
		Times(2)
	tm.resolver.EXPECT().ResolveIdentity(gomock.Any(), record.ContractAddress).
		Return(domain.TokenIdentity{Address: record.ContractAddress})
	tm.notifier.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, text string) error {
			assert.Contains(t, text, "Name: SUPERKEY")
			return nil
		}).
		Times(1)

	result, err := tm.orch.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunResult{Checked: 1, Matched: 1, Posted: 1, SkippedDuplicate: 0}, result)

	result, err = tm.orch.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunResult{Checked: 1, Matched: 1, Posted: 0, SkippedDuplicate: 1}, result)
}

func TestRun_Idempotent(t *testing.T) {
	tm := setupTestOrchestrator(t)
	defer tm.ctrl.Finish()

	ctx := context.Background()
	first := superKeyTransfer()
	second := superKeyTransfer()
	second.LogIndex = 3
	second.TokenName = "Monkey"
	unrelated := superKeyTransfer()
	unrelated.Hash = "0xb"
	unrelated.TokenName = "Tether USD"
	unrelated.TokenSymbol = "USDT"

	records := []domain.TransferRecord{first, unrelated, second}
	tm.source.EXPECT().FetchRecentTransfers(gomock.Any(), watched).Return(records, nil).Times(5)

	var sent []string
	tm.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, text string) error {
		sent = append(sent, text)
		return nil
	}).Times(2)

	for i := 0; i < 5; i++ {
		result, err := tm.orch.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Checked)
		assert.Equal(t, 2, result.Matched)
	}

	require.Len(t, sent, 2)
	assert.Contains(t, sent[0], "Name: SUPERKEY")
	assert.Contains(t, sent[1], "Name: Monkey")
}

func TestRun_SendFailureLosesMarkedTransfer(t *testing.T) {
	tm := setupTestOrchestrator(t)
	defer tm.ctrl.Finish()

	ctx := context.Background()
	first := superKeyTransfer()
	second := superKeyTransfer()
	second.Hash = "0xb"

	records := []domain.TransferRecord{first, second}
	tm.source.EXPECT().FetchRecentTransfers(gomock.Any(), watched).Return(records, nil).Times(2)

	sendErr := &domain.UpstreamError{Service: domain.SERVICE_TELEGRAM, StatusCode: 400, Message: "Bad Request"}
	gomock.InOrder(
		tm.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(sendErr),
		tm.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil),
	)

	// the failure aborts the loop, the second transfer is left for the next run
	result, err := tm.orch.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, sendErr)
	assert.False(t, errors.Is(err, pipeline.ErrFetchTransfers))
	assert.Equal(t, domain.RunResult{Checked: 2, Matched: 2, Posted: 0, SkippedDuplicate: 0}, result)

	seen, err := tm.store.Seen(ctx, first.DedupKey())
	require.NoError(t, err)
	assert.True(t, seen, "the transfer is marked before sending")

	seen, err = tm.store.Seen(ctx, second.DedupKey())
	require.NoError(t, err)
	assert.False(t, seen)

	// the failed transfer is never retried
	result, err = tm.orch.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunResult{Checked: 2, Matched: 2, Posted: 1, SkippedDuplicate: 1}, result)

	assert.Equal(t, float64(1), testutil.ToFloat64(tm.metrics.RunsTotal.WithLabelValues(metrics.STATUS_UPSTREAM_ERROR)))
}

func TestRun_FetchFailure(t *testing.T) {
	tm := setupTestOrchestrator(t)
	defer tm.ctrl.Finish()

	upstream := &domain.UpstreamError{Service: domain.SERVICE_ETHERSCAN, Message: "NOTOK: Invalid API Key"}
	tm.source.EXPECT().FetchRecentTransfers(gomock.Any(), watched).Return(nil, upstream)

	result, err := tm.orch.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrFetchTransfers)
	assert.True(t, domain.IsUpstreamError(err))
	assert.Equal(t, domain.RunResult{}, result)
}

func TestRun_EmptyHistory(t *testing.T) {
	tm := setupTestOrchestrator(t)
	defer tm.ctrl.Finish()

	tm.source.EXPECT().FetchRecentTransfers(gomock.Any(), watched).Return([]domain.TransferRecord{}, nil)

	result, err := tm.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunResult{}, result)
}

func TestRun_ConfigErrorIsNotAFetchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.Unix(0, 0)).AnyTimes()
	clock.EXPECT().Since(gomock.Any()).Return(time.Millisecond).AnyTimes()

	// nothing is fetched, marked or sent
	orch := pipeline.NewOrchestrator(
		mocks.NewMockEtherscanClient(ctrl),
		mocks.NewMockStore(ctrl),
		mocks.NewMockMetadataResolver(ctrl),
		mocks.NewMockNotifier(ctrl),
		notifier.NewFormatter(clock, "", "", ""),
		nil,
		clock,
		pipeline.Config{
			Preflight: func() error {
				return &domain.ConfigError{Missing: []string{"watch.address", "telegram.bot_token"}}
			},
		},
	)

	_, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
	assert.False(t, errors.Is(err, pipeline.ErrFetchTransfers))
}

func TestRun_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	dedup := mocks.NewMockStore(ctrl)
	tm := setupTestOrchestrator(t, dedup)
	defer tm.ctrl.Finish()

	storeErr := errors.New("redis: connection refused")
	tm.source.EXPECT().FetchRecentTransfers(gomock.Any(), watched).Return([]domain.TransferRecord{superKeyTransfer()}, nil)
	dedup.EXPECT().MarkIfAbsent(gomock.Any(), domain.DedupKey("seen:0xa:0"), domain.DEFAULT_DEDUP_TTL).Return(false, storeErr)

	result, err := tm.orch.Run(context.Background())
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, domain.RunResult{Checked: 1, Matched: 1}, result)
}

func TestRun_RunsDoNotOverlap(t *testing.T) {
	tm := setupTestOrchestrator(t)
	defer tm.ctrl.Finish()

	started := make(chan struct{})
	release := make(chan struct{})

	tm.source.EXPECT().FetchRecentTransfers(gomock.Any(), watched).Return([]domain.TransferRecord{superKeyTransfer()}, nil)
	tm.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, string) error {
		close(started)
		<-release
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		result, err := tm.orch.Run(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 1, result.Posted)
	}()

	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := tm.orch.Run(ctx)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	assert.Equal(t, domain.RunResult{}, result)

	close(release)
	wg.Wait()
}

func TestRun_FreeSlotIsTakenEvenWithDoneContext(t *testing.T) {
	tm := setupTestOrchestrator(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	const attempts = 20
	tm.source.EXPECT().FetchRecentTransfers(gomock.Any(), watched).Return(nil, nil).Times(attempts)

	for i := 0; i < attempts; i++ {
		_, err := tm.orch.Run(ctx)
		require.NoError(t, err)
	}
}

func TestDryRun(t *testing.T) {
	tm := setupTestOrchestrator(t)
	defer tm.ctrl.Finish()

	ctx := context.Background()
	first := superKeyTransfer()
	second := superKeyTransfer()
	second.Hash = "0xb"
	second.TokenName = ""
	second.TokenSymbol = "SKEY"

	tm.source.EXPECT().FetchRecentTransfers(gomock.Any(), watched).Return([]domain.TransferRecord{first, second}, nil)
	tm.resolver.EXPECT().
		ResolveIdentity(gomock.Any(), second.ContractAddress).
		Return(domain.TokenIdentity{Address: second.ContractAddress, Name: domain.StringPtr("Super Key Token")})

	require.NoError(t, tm.store.Mark(ctx, first.DedupKey(), time.Hour))

	result, err := tm.orch.DryRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunResult{Checked: 2, Matched: 2, Posted: 0, SkippedDuplicate: 1}, result.RunResult)
	require.Len(t, result.Pending, 1)
	assert.Equal(t, domain.DedupKey("seen:0xb:0"), result.Pending[0].DedupKey)
	assert.Equal(t, "New KEY detected! Name: Super Key Token Date: 15.11.2023, 00:13:20 Link: @cryptohornettg", result.Pending[0].Text)

	seen, err := tm.store.Seen(ctx, second.DedupKey())
	require.NoError(t, err)
	assert.False(t, seen, "a dry run never marks")
}

func TestDisplayName(t *testing.T) {
	const token = "0x00000000000000000000000000000000000000cc"

	tests := []struct {
		name     string
		record   domain.TransferRecord
		identity *domain.TokenIdentity // nil when the chain must not be queried
		expected string
	}{
		{
			name:     "record name wins without an on-chain read",
			record:   domain.TransferRecord{ContractAddress: token, TokenName: "SuperKey", TokenSymbol: "SKEY"},
			expected: "SuperKey",
		},
		{
			name:     "resolved name",
			record:   domain.TransferRecord{ContractAddress: token, TokenSymbol: "SKEY"},
			identity: &domain.TokenIdentity{Address: token, Name: domain.StringPtr("Chain Key"), Symbol: domain.StringPtr("CKEY")},
			expected: "Chain Key",
		},
		{
			name:     "record symbol before resolved symbol",
			record:   domain.TransferRecord{ContractAddress: token, TokenSymbol: "SKEY"},
			identity: &domain.TokenIdentity{Address: token, Symbol: domain.StringPtr("CKEY")},
			expected: "SKEY",
		},
		{
			name:     "resolved symbol",
			record:   domain.TransferRecord{ContractAddress: token, TokenName: "  "},
			identity: &domain.TokenIdentity{Address: token, Symbol: domain.StringPtr("CKEY")},
			expected: "CKEY",
		},
		{
			name:     "nothing known",
			record:   domain.TransferRecord{ContractAddress: token},
			identity: &domain.TokenIdentity{Address: token},
			expected: "Unknown KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestOrchestrator(t)
			defer tm.ctrl.Finish()

			if tt.identity != nil {
				tm.resolver.EXPECT().ResolveIdentity(gomock.Any(), token).Return(*tt.identity)
			}

			assert.Equal(t, tt.expected, tm.orch.DisplayName(context.Background(), tt.record))
		})
	}
}
