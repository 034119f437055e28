package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yigit/diplomaregistry/internal/app/models/dto"
	"github.com/yigit/diplomaregistry/internal/middleware"
	"github.com/yigit/diplomaregistry/internal/pkg/apperrors"
)

const wallet = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

type mockIssuance struct{ mock.Mock }

func (m *mockIssuance) SubmitEnrollment(ctx context.Context, req *dto.EnrollmentRequest, upload *multipart.FileHeader) (*dto.EnrollmentResponse, error) {
	args := m.Called(ctx, req, upload)
	resp, _ := args.Get(0).(*dto.EnrollmentResponse)
	return resp, args.Error(1)
}

func (m *mockIssuance) MintCredential(ctx context.Context, studentID string, req *dto.MintRequest) (*dto.MintResponse, error) {
	args := m.Called(ctx, studentID, req)
	resp, _ := args.Get(0).(*dto.MintResponse)
	return resp, args.Error(1)
}

func (m *mockIssuance) RemoveStudent(ctx context.Context, studentID string) (*dto.RemovalResponse, error) {
	args := m.Called(ctx, studentID)
	resp, _ := args.Get(0).(*dto.RemovalResponse)
	return resp, args.Error(1)
}

func (m *mockIssuance) GetIssuance(ctx context.Context, id string) (*dto.IssuanceResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*dto.IssuanceResponse)
	return resp, args.Error(1)
}

type mockRegistry struct{ mock.Mock }

func (m *mockRegistry) ListEnrolled(ctx context.Context) ([]dto.StudentView, error) {
	args := m.Called(ctx)
	views, _ := args.Get(0).([]dto.StudentView)
	return views, args.Error(1)
}

func (m *mockRegistry) GetStudent(ctx context.Context, studentID string) (*dto.StudentView, error) {
	args := m.Called(ctx, studentID)
	view, _ := args.Get(0).(*dto.StudentView)
	return view, args.Error(1)
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*dto.TokenResponse)
	return resp, args.Error(1)
}

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *dto.ErrorDetail `json:"error"`
}

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

func newRouter(issuance *mockIssuance, registry *mockRegistry, maxUpload int64) *gin.Engine {
	ctrl := NewStudentController(issuance, registry, maxUpload, zerolog.Nop())
	r := gin.New()
	r.POST("/students", ctrl.SubmitEnrollment)
	r.POST("/students/:id/credentials", ctrl.MintCredential)
	r.DELETE("/students/:id", ctrl.RemoveStudent)
	r.GET("/students", ctrl.ListStudents)
	r.GET("/students/:id", ctrl.GetStudent)
	r.GET("/issuances/:id", ctrl.GetIssuance)
	return r
}

func enrollmentForm(t *testing.T, fields map[string]string, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withFile {
		part, err := w.CreateFormFile("diploma", "diploma.pdf")
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 diploma"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"id":            "42",
		"name":          "Ada",
		"course":        "CS",
		"birthDate":     "2000-01-01",
		"grade":         "18",
		"studentWallet": wallet,
	}
}

func serve(r *gin.Engine, method, path string, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, envelope) {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestSubmitEnrollment(t *testing.T) {
	issuance := &mockIssuance{}
	r := newRouter(issuance, &mockRegistry{}, 0)

	want := &dto.EnrollmentResponse{IssuanceID: uuid.New(), StudentID: "42", EnrollTxHash: "0xabc", MetadataLocator: "ipfs://meta"}
	issuance.On("SubmitEnrollment", mock.Anything, mock.MatchedBy(func(req *dto.EnrollmentRequest) bool {
		return req.ID == "42" && req.StudentWallet == wallet
	}), mock.MatchedBy(func(fh *multipart.FileHeader) bool {
		return fh.Filename == "diploma.pdf"
	})).Return(want, nil)

	body, ct := enrollmentForm(t, validFields(), true)
	w, env := serve(r, http.MethodPost, "/students", body, ct)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	var got dto.EnrollmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "ipfs://meta", got.MetadataLocator)
	issuance.AssertExpectations(t)
}

func TestSubmitEnrollment_RejectedBeforeService(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(map[string]string)
		withFile bool
		field    string
	}{
		{"bad wallet", func(f map[string]string) { f["studentWallet"] = "0x1234" }, true, "studentWallet"},
		{"missing name", func(f map[string]string) { delete(f, "name") }, true, "name"},
		{"non numeric id", func(f map[string]string) { f["id"] = "forty-two" }, true, "id"},
		{"missing file", func(map[string]string) {}, false, "diploma"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuance := &mockIssuance{}
			r := newRouter(issuance, &mockRegistry{}, 0)

			fields := validFields()
			tt.mutate(fields)
			body, ct := enrollmentForm(t, fields, tt.withFile)
			w, env := serve(r, http.MethodPost, "/students", body, ct)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, dto.ErrorCodeValidationFailed, env.Error.Code)
			assert.Equal(t, tt.field, env.Error.Field)
			issuance.AssertNotCalled(t, "SubmitEnrollment", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitEnrollment_TooLarge(t *testing.T) {
	issuance := &mockIssuance{}
	r := newRouter(issuance, &mockRegistry{}, 4)

	body, ct := enrollmentForm(t, validFields(), true)
	w, env := serve(r, http.MethodPost, "/students", body, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "diploma", env.Error.Field)
	issuance.AssertNotCalled(t, "SubmitEnrollment", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitEnrollment_InsufficientFunds(t *testing.T) {
	issuance := &mockIssuance{}
	r := newRouter(issuance, &mockRegistry{}, 0)

	err := apperrors.Wrap(apperrors.ErrEnrollmentFailed, apperrors.ErrInsufficientFunds, "Signing wallet needs funding to pay transaction fees")
	issuance.On("SubmitEnrollment", mock.Anything, mock.Anything, mock.Anything).Return(nil, err)

	body, ct := enrollmentForm(t, validFields(), true)
	w, env := serve(r, http.MethodPost, "/students", body, ct)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, dto.ErrorCodeInsufficientFunds, env.Error.Code)
	assert.Equal(t, "InsufficientFunds", env.Error.Kind)
}

func TestMintCredential_PartialFailureKeepsData(t *testing.T) {
	issuance := &mockIssuance{}
	r := newRouter(issuance, &mockRegistry{}, 0)

	partial := &dto.MintResponse{StudentID: "42", AdminTxHash: "0xadmin", AdminTokenID: "7"}
	issuance.On("MintCredential", mock.Anything, "42", mock.Anything).
		Return(partial, apperrors.Wrap(apperrors.ErrMintFailed, errors.New("nonce too low"), "Failed to mint diploma to student wallet"))

	body := bytes.NewBufferString(`{"metadataLocator":"ipfs://meta","custodyWallet":"` + wallet + `","studentWallet":"` + wallet + `"}`)
	w, env := serve(r, http.MethodPost, "/students/42/credentials", body, "application/json")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, dto.ErrorCodeMintFailed, env.Error.Code)
	var got dto.MintResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "0xadmin", got.AdminTxHash)
	assert.Equal(t, "7", got.AdminTokenID)
}

func TestMintCredential(t *testing.T) {
	issuance := &mockIssuance{}
	r := newRouter(issuance, &mockRegistry{}, 0)

	issuance.On("MintCredential", mock.Anything, "42", mock.MatchedBy(func(req *dto.MintRequest) bool {
		return req.MetadataLocator == "ipfs://meta" && req.StudentWallet == wallet && req.CustodyWallet == ""
	})).Return(&dto.MintResponse{StudentID: "42", StudentTxHash: "0xs", StudentTokenID: "3"}, nil)

	body := bytes.NewBufferString(`{"metadataLocator":"ipfs://meta","studentWallet":"` + wallet + `"}`)
	w, env := serve(r, http.MethodPost, "/students/42/credentials", body, "application/json")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	issuance.AssertExpectations(t)
}

func TestMintCredential_NotEnrolled(t *testing.T) {
	issuance := &mockIssuance{}
	r := newRouter(issuance, &mockRegistry{}, 0)

	issuance.On("MintCredential", mock.Anything, "42", mock.Anything).
		Return(nil, apperrors.Wrap(apperrors.ErrMintFailed, apperrors.ErrNotEnrolled, "Student is not enrolled"))

	body := bytes.NewBufferString(`{"metadataLocator":"ipfs://meta","studentWallet":"` + wallet + `"}`)
	w, env := serve(r, http.MethodPost, "/students/42/credentials", body, "application/json")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NotEnrolled", env.Error.Kind)
	assert.Empty(t, env.Data)
}

func TestRemoveStudent(t *testing.T) {
	issuance := &mockIssuance{}
	r := newRouter(issuance, &mockRegistry{}, 0)

	issuance.On("RemoveStudent", mock.Anything, "42").Return(&dto.RemovalResponse{StudentID: "42", TxHash: "0xr", Success: true}, nil)

	w, env := serve(r, http.MethodDelete, "/students/42", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestListStudents(t *testing.T) {
	registry := &mockRegistry{}
	r := newRouter(&mockIssuance{}, registry, 0)

	registry.On("ListEnrolled", mock.Anything).Return([]dto.StudentView{
		{ID: "1", Name: "Ada", TokenID: "0"},
		{ID: "2", Name: "Grace", TokenID: "5", DisplayLink: "ipfs://img"},
	}, nil).Once()

	w, env := serve(r, http.MethodGet, "/students", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	var got dto.StudentListResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, "ipfs://img", got.Students[1].DisplayLink)

	registry.On("ListEnrolled", mock.Anything).Return([]dto.StudentView{
		{ID: "1"}, {ID: "2"}, {ID: "3"},
	}, nil).Once()
	w, env = serve(r, http.MethodGet, "/students?page=2&size=2", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 3, got.Total)
	require.Len(t, got.Students, 1)
	assert.Equal(t, "3", got.Students[0].ID)
	require.NotNil(t, got.Pagination)
	assert.Equal(t, 2, got.Pagination.TotalPages)

	registry.On("ListEnrolled", mock.Anything).Return([]dto.StudentView{
		{ID: "1"}, {ID: "2"}, {ID: "3"},
	}, nil).Once()
	w, env = serve(r, http.MethodGet, "/students?page=922337203685477581&size=11", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	got = dto.StudentListResponse{}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Empty(t, got.Students)
	assert.Equal(t, 3, got.Total)

	registry.On("ListEnrolled", mock.Anything).Return(nil, nil).Once()
	w, env = serve(r, http.MethodGet, "/students", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(string(env.Data), `"students":[]`))
}

func TestListStudents_LedgerUnavailable(t *testing.T) {
	registry := &mockRegistry{}
	r := newRouter(&mockIssuance{}, registry, 0)

	registry.On("ListEnrolled", mock.Anything).Return(nil, apperrors.Wrap(apperrors.ErrLedgerUnavailable, errors.New("dial tcp"), "Failed to read enrolled students"))

	w, env := serve(r, http.MethodGet, "/students", nil, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, dto.ErrorCodeLedgerUnavailable, env.Error.Code)
}

func TestGetStudent_NotFound(t *testing.T) {
	registry := &mockRegistry{}
	r := newRouter(&mockIssuance{}, registry, 0)

	registry.On("GetStudent", mock.Anything, "9").Return(nil, apperrors.Wrap(apperrors.ErrStudentNotFound, nil, "Student not found"))

	w, env := serve(r, http.MethodGet, "/students/9", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrorCodeResourceNotFound, env.Error.Code)
}

func TestGetIssuance(t *testing.T) {
	issuance := &mockIssuance{}
	r := newRouter(issuance, &mockRegistry{}, 0)

	id := uuid.New()
	issuance.On("GetIssuance", mock.Anything, id.String()).Return(&dto.IssuanceResponse{ID: id, StudentID: "42", State: "ENROLLED"}, nil)

	w, env := serve(r, http.MethodGet, "/issuances/"+id.String(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	var got dto.IssuanceResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "ENROLLED", got.State)
}

func TestLogin(t *testing.T) {
	authSvc := &mockAuth{}
	ctrl := NewAuthController(authSvc, zerolog.Nop())
	r := gin.New()
	r.POST("/auth/login", ctrl.Login)

	authSvc.On("Login", mock.Anything, &dto.LoginRequest{Username: "registrar", Password: "secret"}).
		Return(&dto.TokenResponse{AccessToken: "tok", TokenType: "Bearer", ExpiresIn: 3600}, nil)
	authSvc.On("Login", mock.Anything, &dto.LoginRequest{Username: "registrar", Password: "wrong"}).
		Return(nil, apperrors.ErrInvalidCredentials)

	w, env := serve(r, http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":"registrar","password":"secret"}`), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	var tok dto.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	assert.Equal(t, "tok", tok.AccessToken)

	w, env = serve(r, http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":"registrar","password":"wrong"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrorCodeInvalidCredentials, env.Error.Code)

	w, _ = serve(r, http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":"registrar"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	ctrl := NewHealthController()
	r := gin.New()
	r.GET("/health", ctrl.Health)
	r.GET("/ping", ctrl.Ping)

	w, _ := serve(r, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w, _ = serve(r, http.MethodGet, "/ping", nil, "")
	assert.Contains(t, w.Body.String(), "pong")
}
