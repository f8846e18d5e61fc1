package sweeper_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/logger"
	"github.com/feral-file/ff-transfer-alert/internal/mocks"
	"github.com/feral-file/ff-transfer-alert/internal/pipeline"
	"github.com/feral-file/ff-transfer-alert/internal/sweeper"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestTransferSweeper_RunsAndPurges(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := mocks.NewMockRunner(ctrl)
	purger := mocks.NewMockPurger(ctrl)

	ticked := make(chan struct{}, 10)
	runner.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) (domain.RunResult, error) {
		info, ok := logger.RunFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, pipeline.TRIGGER_SCHEDULER, info.Trigger)
		return domain.RunResult{Checked: 1}, nil
	}).MinTimes(1)
	purger.EXPECT().PurgeExpired(gomock.Any()).DoAndReturn(func(context.Context) (int64, error) {
		ticked <- struct{}{}
		return 2, nil
	}).MinTimes(1)

	s := sweeper.NewTransferSweeper(sweeper.TransferSweeperConfig{Interval: time.Hour, RunOnStart: true}, runner, purger)
	assert.Equal(t, "transfer-sweeper", s.Name())

	done := make(chan error, 1)
	go func() {
		done <- s.Start(context.Background())
	}()

	select {
	case <-ticked:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not tick")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, <-done)
}

func TestTransferSweeper_RunFailureStillPurges(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := mocks.NewMockRunner(ctrl)
	purger := mocks.NewMockPurger(ctrl)

	ticked := make(chan struct{}, 10)
	runner.EXPECT().Run(gomock.Any()).
		Return(domain.RunResult{}, &domain.UpstreamError{Service: domain.SERVICE_ETHERSCAN, StatusCode: 502}).
		MinTimes(1)
	purger.EXPECT().PurgeExpired(gomock.Any()).DoAndReturn(func(context.Context) (int64, error) {
		ticked <- struct{}{}
		return 0, errors.New("database is closed")
	}).MinTimes(1)

	ctx, cancel := context.WithCancel(context.Background())
	s := sweeper.NewTransferSweeper(sweeper.TransferSweeperConfig{Interval: time.Hour, RunOnStart: true}, runner, purger)

	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	select {
	case <-ticked:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not tick")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestTransferSweeper_WithoutPurger(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := mocks.NewMockRunner(ctrl)
	ticked := make(chan struct{}, 10)
	runner.EXPECT().Run(gomock.Any()).DoAndReturn(func(context.Context) (domain.RunResult, error) {
		ticked <- struct{}{}
		return domain.RunResult{}, nil
	}).MinTimes(2)

	s := sweeper.NewTransferSweeper(sweeper.TransferSweeperConfig{Interval: 50 * time.Millisecond}, runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-ticked:
		case <-time.After(5 * time.Second):
			t.Fatal("sweeper did not tick on its interval")
		}
	}

	cancel()
	require.NoError(t, <-done)
}

func TestTransferSweeper_InvalidInterval(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := sweeper.NewTransferSweeper(sweeper.TransferSweeperConfig{}, mocks.NewMockRunner(ctrl), nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestTransferSweeper_StopWhenNotRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := sweeper.NewTransferSweeper(sweeper.TransferSweeperConfig{Interval: time.Minute}, mocks.NewMockRunner(ctrl), nil)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestTransferSweeper_StartAfterStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any()).Return(domain.RunResult{}, nil).AnyTimes()

	s := sweeper.NewTransferSweeper(sweeper.TransferSweeperConfig{Interval: time.Hour}, runner, nil)

	done := make(chan error, 1)
	go func() {
		done <- s.Start(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop is a no-op until Start has marked the sweeper running
	require.Eventually(t, func() bool {
		select {
		case err := <-done:
			done <- err
			return true
		default:
		}
		_ = s.Stop(ctx)
		return false
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, <-done)

	assert.ErrorIs(t, s.Start(context.Background()), sweeper.ErrSweeperAlreadyStarted)
	assert.NoError(t, s.Stop(ctx))
}
