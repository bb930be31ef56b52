package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sandkasten/pool/internal/status"
	"github.com/sandkasten/pool/internal/store"
)

func TestHandleAdminStatusSuccess(t *testing.T) {
	s, m := newTestServer("")
	m.status.On("Last").Return(status.Snapshot{ContainersIdle: 2, MaxContainers: 10})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/status", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleAdminListContainersSuccess(t *testing.T) {
	s, m := newTestServer("")
	m.pool.On("GetAll").Return([]store.ContainerRecord{{ContainerID: "c1"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/containers", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleAdminCreateContainerSuccess(t *testing.T) {
	s, m := newTestServer("")
	m.pool.On("CreateIdle", mock.Anything).Return(store.ContainerRecord{ContainerID: "c1"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/containers", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
}

func TestHandleAdminDeleteContainerSuccess(t *testing.T) {
	s, m := newTestServer("")
	m.pool.On("ForceDelete", mock.Anything, "c1").Return(nil)
	m.sessions.On("DestroyByContainerID", mock.Anything, "c1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/containers/c1", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	m.sessions.AssertCalled(t, "DestroyByContainerID", mock.Anything, "c1")
}

func TestHandleAdminPrewarmSuccess(t *testing.T) {
	s, m := newTestServer("")
	m.pool.On("EnsurePrewarmed", mock.Anything).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/prewarm", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleAdminListSessionsFiltersDestroyed(t *testing.T) {
	s, m := newTestServer("")
	m.sessions.On("List").Return([]store.SessionRecord{
		{ID: "s1", Status: store.SessionActive},
		{ID: "s2", Status: store.SessionDestroyed},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/sessions", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "s1")
	assert.NotContains(t, w.Body.String(), "s2")
}

func TestHandleAdminDestroySessionForcesContainerDestroy(t *testing.T) {
	s, m := newTestServer("")
	m.sessions.On("Destroy", mock.Anything, "s1", true).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/sessions/s1", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	m.sessions.AssertCalled(t, "Destroy", mock.Anything, "s1", true)
}
