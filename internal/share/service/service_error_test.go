package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"proofshare/internal/share/models"
	"proofshare/internal/share/service/mocks"
	"proofshare/internal/share/store"
	id "proofshare/pkg/domain"
	dErrors "proofshare/pkg/domain-errors"
	"proofshare/pkg/testutil"
)

// Store failure paths are exercised against a mock; the in-memory registry
// never errors on its own.

func newMockedService(t *testing.T) (*Service, *mocks.MockStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(mockStore, &capturePublisher{}, logger)
	require.NoError(t, err)
	return svc, mockStore
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, &capturePublisher{}, nil)
	require.Error(t, err)

	_, err = New(mocks.NewMockStore(gomock.NewController(t)), nil, nil)
	require.Error(t, err)
}

func TestCreateSessionStoreFailure(t *testing.T) {
	svc, mockStore := newMockedService(t)
	mockStore.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("backend unavailable"))

	request := testutil.NewRequestBuilder().Build()
	_, err := svc.CreateSession(context.Background(), request, models.SessionTypeQR, 0)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestGetSessionStoreFailure(t *testing.T) {
	svc, mockStore := newMockedService(t)
	mockStore.EXPECT().
		FindByID(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, false, errors.New("backend unavailable"))

	_, err := svc.GetSession(context.Background(), id.NewSessionID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestListSessionsStoreFailure(t *testing.T) {
	svc, mockStore := newMockedService(t)
	mockStore.EXPECT().
		List(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("backend unavailable"))

	_, err := svc.ListSessions(context.Background(), store.Filter{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestCleanupStoreFailure(t *testing.T) {
	svc, mockStore := newMockedService(t)
	mockStore.EXPECT().
		ExpireDue(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("backend unavailable"))

	_, err := svc.Cleanup(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestTransitionErrorCodeSurvivesTranslation(t *testing.T) {
	svc, mockStore := newMockedService(t)
	mockStore.EXPECT().
		Update(gomock.Any(), gomock.Any(), gomock.Any(), true, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeInvalidTransition, "cannot activate session in status completed"))

	_, err := svc.ActivateSession(context.Background(), id.NewSessionID(), testutil.TestDIDs.Holder, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition),
		"domain codes from transition callbacks must pass through untranslated")
}

func TestUpdatePassesLazyExpireFlag(t *testing.T) {
	svc, mockStore := newMockedService(t)
	session := testutil.NewSessionBuilder().Build()

	// Revocation runs without lazy expiry; activation with it.
	mockStore.EXPECT().
		Update(gomock.Any(), session.ID, gomock.Any(), false, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.SessionID, now time.Time, _ bool, apply func(*models.SharingSession) error) (*models.SharingSession, error) {
			if err := apply(session); err != nil {
				return nil, err
			}
			return session.Clone(), nil
		})

	require.NoError(t, svc.RevokeSession(context.Background(), session.ID, "r"))
	assert.Equal(t, models.StatusRevoked, session.Status)
}
