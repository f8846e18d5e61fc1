package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-transfer-alert/internal/api/server"
	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/metrics"
	"github.com/feral-file/ff-transfer-alert/internal/mocks"
)

func TestRouter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := mocks.NewMockRunner(ctrl)
	st := mocks.NewMockStore(ctrl)
	m := metrics.New()

	srv := server.New(server.Config{TriggerSecret: "s3cret"}, runner, st, m.Handler())
	router := srv.Router()

	runner.EXPECT().Run(gomock.Any()).Return(domain.RunResult{Checked: 3}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cron/check-key", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"checked":3,"matched":0,"posted":0,"skippedDuplicate":0}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "key_watcher_run_duration_seconds")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cron/unknown?secret=s3cret", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
