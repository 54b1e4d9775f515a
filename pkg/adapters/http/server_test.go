package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/aretw0/domaindetect/pkg/adapters/http"
	"github.com/aretw0/domaindetect/pkg/adapters/memory"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) (http.Handler, *session.Manager, *httpadapter.StreamManager) {
	t.Helper()
	aligner := memory.NewAligner()
	aligner.SetHits("H",
		domain.CandidateHit{LibraryDomainID: "V", Start: 0, End: 60, PercentCoverage: 100, PercentIdentity: 95, EValue: 1e-30},
		domain.CandidateHit{LibraryDomainID: "C", Start: 55, End: 120, PercentCoverage: 100, PercentIdentity: 90, EValue: 1e-30},
	)
	loader := memory.NewLoader("test-1",
		domain.LibraryDomain{ID: "V", Kind: domain.KindVariable, Length: 60},
		domain.LibraryDomain{ID: "C", Kind: domain.KindConstant, Length: 65},
	)

	streams := httpadapter.NewStreamManager(nil)
	mgr := session.NewManager(domain.DefaultConfig(), session.Dependencies{
		Loader:  loader,
		Aligner: aligner,
	}, session.WithLifecycleHooks(streams.Hooks()))

	return httpadapter.NewHandler(mgr, httpadapter.WithStreams(streams)), mgr, streams
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap), w.Body.String())
	return snap
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	snap := decodeSnapshot(t, w)
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, domain.StateInit, snap.State)
	return snap.ID
}

func TestServer_Health(t *testing.T) {
	h, _, _ := fixture(t)

	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/info", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "domaindetect-http")
}

func TestServer_FullPipeline(t *testing.T) {
	h, _, _ := fixture(t)
	id := createSession(t, h)
	base := "/sessions/" + id

	w := do(t, h, http.MethodPost, base+"/library", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.StateLibraryLoaded, decodeSnapshot(t, w).State)
	assert.Equal(t, "test-1", decodeSnapshot(t, w).LibraryVersion)

	chains := httpadapter.ChainsRequest{Chains: []domain.Chain{{ID: "H", Sequence: strings.Repeat("A", 120)}}}
	w = do(t, h, http.MethodPost, base+"/search", chains)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.StateHitsLoaded, decodeSnapshot(t, w).State)

	w = do(t, h, http.MethodPost, base+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decodeSnapshot(t, w)
	assert.Equal(t, domain.StateResolved, snap.State)
	require.Len(t, snap.Results, 1)
	require.Len(t, snap.Results[0].Assignments, 2)
	assert.Equal(t, 60, snap.Results[0].Assignments[1].Start)

	// Assignments are not available before certification.
	w = do(t, h, http.MethodGet, base+"/assignments", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, base+"/certify", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.StateCertified, decodeSnapshot(t, w).State)

	w = do(t, h, http.MethodGet, base+"/assignments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var assignments map[string][]domain.DomainAssignment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &assignments))
	assert.Len(t, assignments["H"], 2)

	w = do(t, h, http.MethodPost, base+"/reannotate", chains)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var re httpadapter.ReannotateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &re))
	assert.Equal(t, []string{"H"}, re.Diff.Unchanged)
	assert.Empty(t, re.Diff.Changed)

	w = do(t, h, http.MethodGet, base+"/report?format=markdown", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "H")

	w = do(t, h, http.MethodGet, base+"/report?format=mermaid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graph LR")

	w = do(t, h, http.MethodGet, base+"/report?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_EditAssignments(t *testing.T) {
	h, _, _ := fixture(t)
	id := createSession(t, h)
	base := "/sessions/" + id

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/library", nil).Code)
	chains := httpadapter.ChainsRequest{Chains: []domain.Chain{{ID: "H", Sequence: strings.Repeat("A", 120)}}}
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/search", chains).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/resolve", nil).Code)

	overlapping := httpadapter.AssignmentsRequest{Assignments: []domain.DomainAssignment{
		{DomainID: "V", Start: 0, End: 70},
		{DomainID: "C", Start: 50, End: 120},
	}}
	w := do(t, h, http.MethodPut, base+"/chains/H/assignments", overlapping)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	edit := httpadapter.AssignmentsRequest{Assignments: []domain.DomainAssignment{
		{DomainID: "V", Start: 0, End: 70},
		{DomainID: "C", Start: 70, End: 120},
	}}
	w = do(t, h, http.MethodPut, base+"/chains/H/assignments", edit)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decodeSnapshot(t, w)
	assert.Equal(t, domain.StateResolved, snap.State)
	require.Len(t, snap.Results[0].Assignments, 2)
	assert.True(t, snap.Results[0].Assignments[0].Manual)
	assert.Equal(t, 70, snap.Results[0].Assignments[0].End)
}

func TestServer_Errors(t *testing.T) {
	h, _, _ := fixture(t)

	t.Run("unknown session", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/sessions/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = do(t, h, http.MethodPost, "/sessions/nope/resolve", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid transition", func(t *testing.T) {
		id := createSession(t, h)
		w := do(t, h, http.MethodPost, "/sessions/"+id+"/certify", nil)
		assert.Equal(t, http.StatusConflict, w.Code)

		var resp httpadapter.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Error)
		require.NotNil(t, resp.Session)
		assert.Equal(t, domain.StateInit, resp.Session.State)
	})

	t.Run("invalid config", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/sessions", map[string]any{"maxDomainDistance": -1})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	})

	t.Run("unknown field", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/sessions", map[string]any{"colour": "blue"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid chain", func(t *testing.T) {
		id := createSession(t, h)
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/sessions/"+id+"/library", nil).Code)
		w := do(t, h, http.MethodPost, "/sessions/"+id+"/search", httpadapter.ChainsRequest{
			Chains: []domain.Chain{{ID: "", Sequence: "AAA"}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	})
}

func TestServer_CreateWithConfig(t *testing.T) {
	h, mgr, _ := fixture(t)

	w := do(t, h, http.MethodPost, "/sessions", map[string]any{"domainBoundaryPolicy": "MAX"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	snap := decodeSnapshot(t, w)

	sess, err := mgr.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BoundaryMax, sess.Config().BoundaryPolicy)
	// Keys absent from the body keep the manager defaults.
	assert.Equal(t, mgr.Config().MaxDomainDistance, sess.Config().MaxDomainDistance)

	w = do(t, h, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), snap.ID)

	w = do(t, h, http.MethodDelete, "/sessions/"+snap.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodGet, "/sessions/"+snap.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_SubscribeEvents(t *testing.T) {
	h, mgr, _ := fixture(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	sess, err := mgr.Create(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/events?session_id=%s", srv.URL, sess.ID()), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)
	_, _ = reader.ReadString('\n') // data: connected
	_, _ = reader.ReadString('\n') // blank

	go func() {
		_ = mgr.Do(context.Background(), sess.ID(), func(ctx context.Context, s *session.Session) error {
			return s.LoadLibrary(ctx)
		})
	}()

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "), line)

	var event domain.StateEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event))
	assert.Equal(t, sess.ID(), event.SessionID)
	assert.Equal(t, domain.StateLibraryLoaded, event.To)
}

func TestServer_SubscribeEvents_RequiresSession(t *testing.T) {
	h, _, _ := fixture(t)
	w := do(t, h, http.MethodGet, "/events", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrSessionNotFound, http.StatusNotFound},
		{&domain.LibraryLoadError{Path: "x", Err: fmt.Errorf("boom")}, http.StatusUnprocessableEntity},
		{domain.ErrOverlappingDomains, http.StatusConflict},
		{domain.ErrLibraryNotLoaded, http.StatusConflict},
		{&domain.AggregateError{Errors: []error{&domain.ConfigError{Key: "k", Reason: "r"}}}, http.StatusBadRequest},
		{domain.ErrAlignmentFailed, http.StatusBadGateway},
		{fmt.Errorf("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, httpadapter.StatusFor(tt.err))
		})
	}
}
