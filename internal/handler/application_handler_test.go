package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/internal/models"
	appErrors "github.com/noah-isme/nu-admissions-api/pkg/errors"
)

type applicationServiceMock struct {
	lastFilter models.ApplicationFilter
	lastUpdate dto.UpdateApplicationRequest
	lastActor  *models.Actor
	lastReason string
	err        error
}

func (m *applicationServiceMock) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Application{{ID: 1}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, m.err
}

func (m *applicationServiceMock) Get(ctx context.Context, id int64) (*dto.ApplicationDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ApplicationDetail{Application: models.Application{ID: id}}, nil
}

func (m *applicationServiceMock) Update(ctx context.Context, actor *models.Actor, id int64, req dto.UpdateApplicationRequest) (*models.Application, error) {
	m.lastUpdate, m.lastActor = req, actor
	if m.err != nil {
		return nil, m.err
	}
	return &models.Application{ID: id}, nil
}

func (m *applicationServiceMock) LockIdentifiers(ctx context.Context, actor *models.Actor, id int64, reason string) (*models.Application, error) {
	m.lastReason = reason
	if m.err != nil {
		return nil, m.err
	}
	return &models.Application{ID: id, IdentifiersLocked: true}, nil
}

func (m *applicationServiceMock) UnlockIdentifiers(ctx context.Context, actor *models.Actor, id int64, reason string) (*models.Application, error) {
	m.lastReason = reason
	if m.err != nil {
		return nil, m.err
	}
	return &models.Application{ID: id}, nil
}

type approvalServiceMock struct {
	lastReq dto.ApproveRequest
	lastID  int64
	err     error
}

func (m *approvalServiceMock) Approve(ctx context.Context, actor *models.Actor, applicationID int64, req dto.ApproveRequest) (*dto.ApproveResponse, error) {
	m.lastReq, m.lastID = req, applicationID
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ApproveResponse{Success: true, Status: models.ApplicationStatusAdmitted, UniversityID: "NU24CSE001", UGCID: "UGC2024000001", StudentID: 9}, nil
}

func TestApplicationHandlerListParsesFilters(t *testing.T) {
	apps := &applicationServiceMock{}
	h := NewApplicationHandler(apps, &approvalServiceMock{})
	c, w := testContext(t, http.MethodGet, "/admissions/applications?status=provisional,%20flagged&program_code=cse&page=2&page_size=50&q=rahim", nil)

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.ApplicationStatus{models.ApplicationStatusProvisional, models.ApplicationStatusFlagged}, apps.lastFilter.Status)
	assert.Equal(t, "CSE", apps.lastFilter.ProgramCode)
	assert.Equal(t, "rahim", apps.lastFilter.Search)
	assert.Equal(t, 2, apps.lastFilter.Page)
	assert.Equal(t, 50, apps.lastFilter.PageSize)
	assert.Contains(t, w.Body.String(), `"total_count":1`)
}

func TestApplicationHandlerRejectsInvalidID(t *testing.T) {
	h := NewApplicationHandler(&applicationServiceMock{}, &approvalServiceMock{})
	c, w := testContext(t, http.MethodGet, "/admissions/applications/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplicationHandlerApproveSuccess(t *testing.T) {
	approvals := &approvalServiceMock{}
	h := NewApplicationHandler(&applicationServiceMock{}, approvals)
	c, w := testContext(t, http.MethodPost, "/admissions/applications/7/approve", dto.ApproveRequest{OverrideMissingDocs: true, Reason: "board decision"})
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	h.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), approvals.lastID)
	assert.True(t, approvals.lastReq.OverrideMissingDocs)

	var res dto.ApproveResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, "NU24CSE001", res.UniversityID)
	assert.Equal(t, "UGC2024000001", res.UGCID)
}

func TestApplicationHandlerApproveWithoutBody(t *testing.T) {
	approvals := &approvalServiceMock{}
	h := NewApplicationHandler(&applicationServiceMock{}, approvals)
	c, w := testContext(t, http.MethodPost, "/admissions/applications/7/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	h.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, approvals.lastReq.OverrideMissingDocs)
}

func TestApplicationHandlerApproveChunkedEmptyBody(t *testing.T) {
	approvals := &approvalServiceMock{}
	h := NewApplicationHandler(&applicationServiceMock{}, approvals)
	c, w := testContext(t, http.MethodPost, "/admissions/applications/7/approve", nil)
	c.Request.Body = io.NopCloser(strings.NewReader(""))
	c.Request.ContentLength = -1
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	h.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), approvals.lastID)
}

func TestApplicationHandlerApproveMalformedBody(t *testing.T) {
	approvals := &approvalServiceMock{}
	h := NewApplicationHandler(&applicationServiceMock{}, approvals)
	c, w := testContext(t, http.MethodPost, "/admissions/applications/7/approve", `{"override_missing_docs":`)
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	h.Approve(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, approvals.lastID)
}

func TestApplicationHandlerApproveMissingDocuments(t *testing.T) {
	approvals := &approvalServiceMock{err: appErrors.WithDetails(appErrors.ErrMissingDocuments, map[string]interface{}{
		"missing": []models.DocumentType{models.DocumentTypeHSC},
	})}
	h := NewApplicationHandler(&applicationServiceMock{}, approvals)
	c, w := testContext(t, http.MethodPost, "/admissions/applications/7/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	h.Approve(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "MISSING_DOCUMENTS", env.Error.Code)
	assert.Equal(t, []interface{}{"HSC"}, env.Error.Details["missing"])
}

func TestApplicationHandlerUpdatePIILocked(t *testing.T) {
	apps := &applicationServiceMock{err: appErrors.WithDetails(appErrors.ErrPIILocked, map[string]interface{}{"fields": []string{"nid_no"}})}
	h := NewApplicationHandler(apps, &approvalServiceMock{})
	c, w := testContext(t, http.MethodPatch, "/admissions/applications/3", map[string]string{"nid_no": "123"})
	c.Params = gin.Params{{Key: "id", Value: "3"}}

	h.Update(c)
	require.Equal(t, http.StatusLocked, w.Code)
	require.NotNil(t, apps.lastUpdate.NIDNo)
	assert.Equal(t, "123", *apps.lastUpdate.NIDNo)
	assert.Equal(t, "officer-1", apps.lastActor.UserID)
	assert.Equal(t, "PII_LOCKED", decode(t, w).Error.Code)
}

func TestApplicationHandlerUpdateInvalidBody(t *testing.T) {
	h := NewApplicationHandler(&applicationServiceMock{}, &approvalServiceMock{})
	c, w := testContext(t, http.MethodPatch, "/admissions/applications/3", "invalid")
	c.Params = gin.Params{{Key: "id", Value: "3"}}

	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplicationHandlerLockTransitions(t *testing.T) {
	apps := &applicationServiceMock{}
	h := NewApplicationHandler(apps, &approvalServiceMock{})

	c, w := testContext(t, http.MethodPost, "/admissions/applications/3/identifiers/lock", dto.LockRequest{Reason: "verified"})
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Lock(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "verified", apps.lastReason)

	apps.err = appErrors.Clone(appErrors.ErrNotLocked, "")
	c, w = testContext(t, http.MethodPost, "/admissions/applications/3/identifiers/unlock", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Unlock(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_LOCKED", decode(t, w).Error.Code)
}
