package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yigit/diplomaregistry/internal/pkg/ledger"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Enroll(ctx context.Context, e ledger.Enrollment) (*ledger.Receipt, error) {
	args := m.Called(ctx, e)
	r, _ := args.Get(0).(*ledger.Receipt)
	return r, args.Error(1)
}

func (m *mockLedger) IssueToken(ctx context.Context, studentID, recipient, metadataURI string) (*ledger.MintReceipt, error) {
	args := m.Called(ctx, studentID, recipient, metadataURI)
	r, _ := args.Get(0).(*ledger.MintReceipt)
	return r, args.Error(1)
}

func (m *mockLedger) Remove(ctx context.Context, studentID string) (*ledger.Receipt, error) {
	args := m.Called(ctx, studentID)
	r, _ := args.Get(0).(*ledger.Receipt)
	return r, args.Error(1)
}

func (m *mockLedger) GetStudent(ctx context.Context, studentID string) (*ledger.Student, error) {
	args := m.Called(ctx, studentID)
	st, _ := args.Get(0).(*ledger.Student)
	return st, args.Error(1)
}

func (m *mockLedger) GetTotalEnrolled(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockLedger) GetStudentIDAt(ctx context.Context, index uint64) (string, error) {
	args := m.Called(ctx, index)
	return args.String(0), args.Error(1)
}

func (m *mockLedger) GetTokenMetadataLocator(ctx context.Context, tokenID string) (string, error) {
	args := m.Called(ctx, tokenID)
	return args.String(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, data []byte, contentType, name string) (string, error) {
	args := m.Called(ctx, data, contentType, name)
	return args.String(0), args.Error(1)
}

func (m *mockPublisher) PublishDocument(ctx context.Context, doc interface{}, name string) (string, error) {
	args := m.Called(ctx, doc, name)
	return args.String(0), args.Error(1)
}

func (m *mockPublisher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	args := m.Called(ctx, locator)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="diploma"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["diploma"][0]
}
