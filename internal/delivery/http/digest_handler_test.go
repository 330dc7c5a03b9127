package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pulseai/internal/digest"
	"pulseai/internal/dto"
	"pulseai/internal/entity"
	"pulseai/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeDigestRepo struct {
	digests map[uint]*entity.Digest
	nextID  uint
}

func newFakeDigestRepo() *fakeDigestRepo {
	return &fakeDigestRepo{digests: make(map[uint]*entity.Digest), nextID: 1}
}

func (r *fakeDigestRepo) Create(_ context.Context, d *entity.Digest) error {
	d.ID = r.nextID
	r.nextID++
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	cp := *d
	r.digests[d.ID] = &cp
	return nil
}

func (r *fakeDigestRepo) Get(_ context.Context, id uint) (*entity.Digest, error) {
	d, ok := r.digests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDigestRepo) ListByUser(_ context.Context, userID int64, filter entity.DigestFilter, limit, offset int) ([]entity.Digest, error) {
	var out []entity.Digest
	for _, d := range r.digests {
		if d.UserID == userID && d.MatchesFilter(filter) {
			out = append(out, *d)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeDigestRepo) Mutate(_ context.Context, id uint, op entity.DigestOp) (*entity.Digest, error) {
	d, ok := r.digests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	d.ApplyOp(op, time.Now().UTC())
	cp := *d
	return &cp, nil
}

func (r *fakeDigestRepo) AddFeedback(_ context.Context, id uint, rating float64) (*entity.Digest, error) {
	d, ok := r.digests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	d.AddFeedback(rating)
	cp := *d
	return &cp, nil
}

func (r *fakeDigestRepo) FindWithFeedback(_ context.Context, userID int64) ([]entity.Digest, error) {
	var out []entity.Digest
	for _, d := range r.digests {
		if d.UserID == userID && d.FeedbackCount > 0 {
			out = append(out, *d)
		}
	}
	return out, nil
}

func newTestHandler(repo *fakeDigestRepo) *DigestHandler {
	log := logger.NewNop()
	return NewDigestHandler(nil, repo, digest.NewFeedbackAnalyzer(repo, log), log)
}

func doRequest(h echo.HandlerFunc, req *http.Request, pathParams map[string]string) *httptest.ResponseRecorder {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range pathParams {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestGenerateDigestRequiresUserID(t *testing.T) {
	h := newTestHandler(newFakeDigestRepo())

	req := httptest.NewRequest(http.MethodPost, "/digests", strings.NewReader(`{"category":"tech"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(h.GenerateDigest, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(entity.KindValidation), resp.Kind)
}

func TestListDigestsFiltersByLifecycle(t *testing.T) {
	repo := newFakeDigestRepo()
	h := newTestHandler(repo)

	ctx := context.Background()
	active := &entity.Digest{UserID: 7, Summary: "active"}
	archived := &entity.Digest{UserID: 7, Summary: "archived", Archived: true}
	deletedAt := time.Now().UTC()
	deleted := &entity.Digest{UserID: 7, Summary: "deleted", DeletedAt: &deletedAt}
	other := &entity.Digest{UserID: 8, Summary: "other user"}
	for _, d := range []*entity.Digest{active, archived, deleted, other} {
		require.NoError(t, repo.Create(ctx, d))
	}

	cases := []struct {
		filter string
		want   string
	}{
		{"active", "active"},
		{"archived", "archived"},
		{"deleted", "deleted"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/digests?user_id=7&filter="+tc.filter, nil)
		rec := doRequest(h.ListDigests, req, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var out []dto.DigestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Len(t, out, 1, "filter %s", tc.filter)
		assert.Equal(t, tc.want, out[0].Summary)
	}

	req := httptest.NewRequest(http.MethodGet, "/digests?user_id=7&filter=all", nil)
	rec := doRequest(h.ListDigests, req, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []dto.DigestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 3)
}

func TestListDigestsRejectsBadUserID(t *testing.T) {
	h := newTestHandler(newFakeDigestRepo())

	req := httptest.NewRequest(http.MethodGet, "/digests?user_id=abc", nil)
	rec := doRequest(h.ListDigests, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMutateDigestArchives(t *testing.T) {
	repo := newFakeDigestRepo()
	h := newTestHandler(repo)

	d := &entity.Digest{UserID: 7}
	require.NoError(t, repo.Create(context.Background(), d))

	req := httptest.NewRequest(http.MethodPost, "/digests/1/mutate", strings.NewReader(`{"user_id":7,"op":"archive"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(h.MutateDigest, req, map[string]string{"id": "1"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.MutateDigestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Digest.Archived)
}

func TestMutateDigestHidesForeignDigest(t *testing.T) {
	repo := newFakeDigestRepo()
	h := newTestHandler(repo)

	d := &entity.Digest{UserID: 7}
	require.NoError(t, repo.Create(context.Background(), d))

	req := httptest.NewRequest(http.MethodPost, "/digests/1/mutate", strings.NewReader(`{"user_id":99,"op":"archive"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(h.MutateDigest, req, map[string]string{"id": "1"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddFeedbackUpdatesRunningMean(t *testing.T) {
	repo := newFakeDigestRepo()
	h := newTestHandler(repo)

	d := &entity.Digest{UserID: 7}
	require.NoError(t, repo.Create(context.Background(), d))

	req := httptest.NewRequest(http.MethodPost, "/digests/1/feedback", strings.NewReader(`{"user_id":7,"rating":0.8}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(h.AddFeedback, req, map[string]string{"id": "1"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.DigestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 0.8, resp.FeedbackScore, 1e-9)
	assert.Equal(t, 1, resp.FeedbackCount)
}

func TestAddFeedbackRejectsOutOfRangeRating(t *testing.T) {
	repo := newFakeDigestRepo()
	h := newTestHandler(repo)

	d := &entity.Digest{UserID: 7}
	require.NoError(t, repo.Create(context.Background(), d))

	req := httptest.NewRequest(http.MethodPost, "/digests/1/feedback", strings.NewReader(`{"user_id":7,"rating":1.5}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(h.AddFeedback, req, map[string]string{"id": "1"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedbackReportInsufficientData(t *testing.T) {
	h := newTestHandler(newFakeDigestRepo())

	req := httptest.NewRequest(http.MethodGet, "/digests/feedback-report?user_id=7", nil)
	rec := doRequest(h.FeedbackReport, req, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.FeedbackReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient_data", resp.Status)
}
