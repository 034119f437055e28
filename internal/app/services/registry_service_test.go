package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yigit/diplomaregistry/internal/pkg/apperrors"
	"github.com/yigit/diplomaregistry/internal/pkg/ledger"
)

func newRegistry(l *mockLedger, p *mockPublisher) *RegistryService {
	return NewRegistryService(l, p, 1000, 0, 0, zerolog.Nop())
}

func student(id, token string, enrolled bool) *ledger.Student {
	return &ledger.Student{ID: id, Name: "S" + id, Course: "CS", BirthDate: "2000-01-01", Grade: "18", IsEnrolled: enrolled, Wallet: adaWallet, TokenID: token}
}

// seedLedger enrolls ids in order; tokens maps id to token id
func seedLedger(l *mockLedger, ids []string, tokens map[string]string, removed map[string]bool) {
	l.On("GetTotalEnrolled", mock.Anything).Return(uint64(len(ids)), nil)
	for i, id := range ids {
		token := tokens[id]
		if token == "" {
			token = "0"
		}
		l.On("GetStudentIDAt", mock.Anything, uint64(i)).Return(id, nil)
		l.On("GetStudent", mock.Anything, id).Return(student(id, token, !removed[id]), nil)
	}
}

func TestListEnrolled_ResolvesDisplayLinks(t *testing.T) {
	l, p := &mockLedger{}, &mockPublisher{}
	seedLedger(l, []string{"1", "2", "3", "4"}, map[string]string{"1": "10", "2": "20", "4": "40"}, map[string]bool{"3": true})

	l.On("GetTokenMetadataLocator", mock.Anything, "10").Return("ipfs://m10", nil)
	l.On("GetTokenMetadataLocator", mock.Anything, "20").Return("ipfs://m20", nil)
	l.On("GetTokenMetadataLocator", mock.Anything, "40").Return("ipfs://m40", nil)
	p.On("Fetch", mock.Anything, "ipfs://m10").Return([]byte(`{"name":"a","image":"ipfs://img10","animation_url":"ipfs://pdf10"}`), nil)
	p.On("Fetch", mock.Anything, "ipfs://m20").Return([]byte(`{"name":"b","image":"ipfs://img20"}`), nil)
	p.On("Fetch", mock.Anything, "ipfs://m40").Return(nil, errors.New("gateway timeout"))

	views, err := newRegistry(l, p).ListEnrolled(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "1", views[0].ID)
	assert.Equal(t, "ipfs://pdf10", views[0].DisplayLink)
	assert.Equal(t, "ipfs://m10", views[0].MetadataLocator)

	assert.Equal(t, "2", views[1].ID)
	assert.Equal(t, "ipfs://img20", views[1].DisplayLink)

	// Fetch failure falls back to the raw locator
	assert.Equal(t, "4", views[2].ID)
	assert.Equal(t, "ipfs://m40", views[2].DisplayLink)
}

func TestListEnrolled_OneMetadataFailureKeepsAllRecords(t *testing.T) {
	l, p := &mockLedger{}, &mockPublisher{}
	ids := []string{"1", "2", "3"}
	seedLedger(l, ids, map[string]string{"1": "11", "2": "12", "3": "13"}, nil)
	for _, tok := range []string{"11", "12", "13"} {
		l.On("GetTokenMetadataLocator", mock.Anything, tok).Return("ipfs://m"+tok, nil)
	}
	p.On("Fetch", mock.Anything, "ipfs://m11").Return([]byte(`{"image":"ipfs://i11"}`), nil)
	p.On("Fetch", mock.Anything, "ipfs://m12").Return([]byte(`not json`), nil)
	p.On("Fetch", mock.Anything, "ipfs://m13").Return([]byte(`{"image":"ipfs://i13"}`), nil)

	views, err := newRegistry(l, p).ListEnrolled(context.Background())
	require.NoError(t, err)
	require.Len(t, views, len(ids))
	assert.Equal(t, "ipfs://i11", views[0].DisplayLink)
	assert.Equal(t, "ipfs://m12", views[1].DisplayLink)
	assert.Equal(t, "ipfs://i13", views[2].DisplayLink)
}

func TestListEnrolled_LedgerReadFailureDropsRecord(t *testing.T) {
	l, p := &mockLedger{}, &mockPublisher{}
	l.On("GetTotalEnrolled", mock.Anything).Return(uint64(3), nil)
	l.On("GetStudentIDAt", mock.Anything, uint64(0)).Return("1", nil)
	l.On("GetStudentIDAt", mock.Anything, uint64(1)).Return("", errors.New("rpc timeout"))
	l.On("GetStudentIDAt", mock.Anything, uint64(2)).Return("3", nil)
	l.On("GetStudent", mock.Anything, "1").Return(student("1", "0", true), nil)
	l.On("GetStudent", mock.Anything, "3").Return(student("3", "9", true), nil)
	l.On("GetTokenMetadataLocator", mock.Anything, "9").Return("", errors.New("execution reverted"))

	views, err := newRegistry(l, p).ListEnrolled(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "1", views[0].ID)
	assert.Empty(t, views[0].DisplayLink)
	p.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestListEnrolled_TotalFailureFailsListing(t *testing.T) {
	l, p := &mockLedger{}, &mockPublisher{}
	l.On("GetTotalEnrolled", mock.Anything).Return(uint64(0), errors.New("dial tcp: refused"))

	_, err := newRegistry(l, p).ListEnrolled(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrLedgerUnavailable)
}

func TestListEnrolled_CancelledWhilePacing(t *testing.T) {
	l, p := &mockLedger{}, &mockPublisher{}
	seedLedger(l, []string{"1", "2"}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRegistry(l, p).ListEnrolled(ctx)
	require.ErrorIs(t, err, apperrors.ErrLedgerUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	l.AssertNotCalled(t, "GetStudentIDAt", mock.Anything, mock.Anything)
}

func TestListEnrolled_Idempotent(t *testing.T) {
	l, p := &mockLedger{}, &mockPublisher{}
	seedLedger(l, []string{"5", "6"}, map[string]string{"6": "1"}, nil)
	l.On("GetTokenMetadataLocator", mock.Anything, "1").Return("ipfs://m1", nil)
	p.On("Fetch", mock.Anything, "ipfs://m1").Return([]byte(`{"image":"ipfs://i1"}`), nil)

	svc := newRegistry(l, p)
	first, err := svc.ListEnrolled(context.Background())
	require.NoError(t, err)
	second, err := svc.ListEnrolled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListEnrolled_Empty(t *testing.T) {
	l, p := &mockLedger{}, &mockPublisher{}
	l.On("GetTotalEnrolled", mock.Anything).Return(uint64(0), nil)

	views, err := newRegistry(l, p).ListEnrolled(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestRegistryGetStudent(t *testing.T) {
	l, p := &mockLedger{}, &mockPublisher{}
	l.On("GetStudent", mock.Anything, "1").Return(student("1", "4", true), nil)
	l.On("GetStudent", mock.Anything, "2").Return(student("0", "0", false), nil)
	l.On("GetTokenMetadataLocator", mock.Anything, "4").Return("ipfs://m4", nil)
	p.On("Fetch", mock.Anything, "ipfs://m4").Return([]byte(`{"image":"ipfs://i4","animation_url":"ipfs://a4"}`), nil)

	svc := newRegistry(l, p)
	view, err := svc.GetStudent(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "ipfs://a4", view.DisplayLink)

	_, err = svc.GetStudent(context.Background(), "2")
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)

	_, err = svc.GetStudent(context.Background(), "abc")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
