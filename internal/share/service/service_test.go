package service

import (
	"context"
	"time"

	"proofshare/internal/share/events"
	"proofshare/internal/share/models"
	"proofshare/internal/share/store"
	id "proofshare/pkg/domain"
	dErrors "proofshare/pkg/domain-errors"
	"proofshare/pkg/testutil"
)

func (s *ServiceSuite) TestCreateSession() {
	session, err := s.service.CreateSession(context.Background(), s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	s.Equal(models.StatusPending, session.Status)
	s.Equal(s.now, session.CreatedAt)
	s.Equal(s.now.Add(15*time.Minute), session.ExpiresAt, "default TTL applies when none supplied")

	created := s.publisher.ofKind(events.KindSessionCreated)
	s.Require().Len(created, 1)
	s.Equal(session.ID, created[0].SessionID)
	s.Equal(testutil.TestDIDs.Requester, created[0].RequesterDID)
}

func (s *ServiceSuite) TestCreateSessionExplicitTTL() {
	session, err := s.service.CreateSession(context.Background(), s.newRequest(), models.SessionTypeDirect, time.Hour)
	s.Require().NoError(err)
	s.Equal(s.now.Add(time.Hour), session.ExpiresAt)
}

func (s *ServiceSuite) TestCreateSessionNilRequest() {
	_, err := s.service.CreateSession(context.Background(), nil, models.SessionTypeQR, 0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestCreateSessionInvalidType() {
	_, err := s.service.CreateSession(context.Background(), s.newRequest(), models.SessionType("smoke-signal"), 0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestCreateSessionCapacity() {
	svc, err := New(s.store, s.publisher, nil,
		WithClock(func() time.Time { return s.now }),
		WithMaxActiveSessions(2),
	)
	s.Require().NoError(err)

	ctx := context.Background()
	_, err = svc.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)
	_, err = svc.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	_, err = svc.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))

	// A terminal session frees a slot.
	sessions, err := svc.ListSessions(ctx, store.Filter{Limit: 1})
	s.Require().NoError(err)
	s.Require().NoError(svc.RevokeSession(ctx, sessions[0].ID, "freeing a slot"))

	_, err = svc.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.NoError(err)
}

func (s *ServiceSuite) TestGetSession() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	found, err := s.service.GetSession(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.ID, found.ID)
}

func (s *ServiceSuite) TestGetSessionNotFound() {
	_, err := s.service.GetSession(context.Background(), id.NewSessionID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestGetSessionLazyExpiry() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, time.Minute)
	s.Require().NoError(err)

	s.advance(2 * time.Minute)

	_, err = s.service.GetSession(ctx, session.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	// Exactly one expired event across repeated reads.
	_, err = s.service.GetSession(ctx, session.ID)
	s.Require().Error(err)
	s.Len(s.publisher.ofKind(events.KindSessionExpired), 1)

	// The expired record stays queryable through listing.
	expired := models.StatusExpired
	sessions, err := s.service.ListSessions(ctx, store.Filter{Status: &expired})
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(session.ID, sessions[0].ID)
}

func (s *ServiceSuite) TestGetSessionTerminalStatesQueryable() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)
	s.Require().NoError(s.service.RevokeSession(ctx, session.ID, "done"))

	found, err := s.service.GetSession(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, found.Status)
}

func (s *ServiceSuite) TestActivateSession() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	s.advance(time.Minute)

	activated, err := s.service.ActivateSession(ctx, session.ID, testutil.TestDIDs.Holder, "")
	s.Require().NoError(err)
	s.Equal(models.StatusActive, activated.Status)
	s.Equal(testutil.TestDIDs.Holder, activated.HolderDID)
	s.Equal(s.now, activated.UpdatedAt)

	s.Len(s.publisher.ofKind(events.KindSessionActivated), 1)
}

func (s *ServiceSuite) TestActivateSessionTwice() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	_, err = s.service.ActivateSession(ctx, session.ID, testutil.TestDIDs.Holder, "")
	s.Require().NoError(err)

	_, err = s.service.ActivateSession(ctx, session.ID, testutil.TestDIDs.Holder, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestActivateSessionPastDeadline() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, time.Minute)
	s.Require().NoError(err)

	s.advance(time.Hour)

	_, err = s.service.ActivateSession(ctx, session.ID, testutil.TestDIDs.Holder, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Len(s.publisher.ofKind(events.KindSessionExpired), 1)
}

func (s *ServiceSuite) TestActivateRecordsDeviceFingerprint() {
	svc, err := New(s.store, s.publisher, nil,
		WithClock(func() time.Time { return s.now }),
		WithDeviceService(deviceServiceEnabled()),
	)
	s.Require().NoError(err)

	ctx := context.Background()
	session, err := svc.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	activated, err := svc.ActivateSession(ctx, session.ID, testutil.TestDIDs.Holder,
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15")
	s.Require().NoError(err)
	s.NotEmpty(activated.Metadata[models.MetaDeviceFingerprint])
}

func (s *ServiceSuite) TestRespondToSession() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)
	_, err = s.service.ActivateSession(ctx, session.ID, testutil.TestDIDs.Holder, "")
	s.Require().NoError(err)

	completed, err := s.service.RespondToSession(ctx, session.ID, testutil.TestDIDs.Holder, s.fullResponse(session))
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, completed.Status)
	s.NotNil(completed.Response)

	done := s.publisher.ofKind(events.KindSessionCompleted)
	s.Require().Len(done, 1)
	s.Equal("true", done[0].Metadata[models.MetaConsentGiven])
}

func (s *ServiceSuite) TestRespondDirectlyFromPending() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeDirect, 0)
	s.Require().NoError(err)

	completed, err := s.service.RespondToSession(ctx, session.ID, testutil.TestDIDs.Holder, s.fullResponse(session))
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, completed.Status)
	s.Empty(s.publisher.ofKind(events.KindSessionActivated))
}

func (s *ServiceSuite) TestRespondRequiresHolder() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	_, err = s.service.RespondToSession(ctx, session.ID, "", s.fullResponse(session))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestRespondMismatchedRequest() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	stray := testutil.NewResponseBuilder(s.newRequest()).Build()
	_, err = s.service.RespondToSession(ctx, session.ID, testutil.TestDIDs.Holder, stray)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeResponseMismatch))

	// Failed completion leaves the session usable.
	found, err := s.service.GetSession(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
}

func (s *ServiceSuite) TestRespondMissingRequiredProof() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	partial := testutil.NewResponseBuilder(session.Request).
		WithProofs(testutil.SharedProofFor(models.DomainIncome)).
		Build()
	_, err = s.service.RespondToSession(ctx, session.ID, testutil.TestDIDs.Holder, partial)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeMissingRequiredProof))
}

func (s *ServiceSuite) TestRespondExtraOptionalProofAllowed() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	generous := testutil.NewResponseBuilder(session.Request).
		WithProofs(
			testutil.SharedProofFor(models.DomainAge),
			testutil.SharedProofFor(models.DomainEducation),
		).
		Build()
	_, err = s.service.RespondToSession(ctx, session.ID, testutil.TestDIDs.Holder, generous)
	s.NoError(err)
}

func (s *ServiceSuite) TestRespondDeclinedConsent() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	declined := testutil.NewResponseBuilder(session.Request).ConsentGiven(false).Build()
	completed, err := s.service.RespondToSession(ctx, session.ID, testutil.TestDIDs.Holder, declined)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, completed.Status)

	done := s.publisher.ofKind(events.KindSessionCompleted)
	s.Require().Len(done, 1)
	s.Equal("false", done[0].Metadata[models.MetaConsentGiven])
}

func (s *ServiceSuite) TestRevokeSession() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)

	s.Require().NoError(s.service.RevokeSession(ctx, session.ID, "holder reported phishing"))

	found, err := s.service.GetSession(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, found.Status)
	s.Equal("holder reported phishing", found.Metadata[models.MetaRevocationReason])

	revoked := s.publisher.ofKind(events.KindSessionRevoked)
	s.Require().Len(revoked, 1)
	s.Equal("holder reported phishing", revoked[0].Metadata[models.MetaRevocationReason])
}

func (s *ServiceSuite) TestRevokeAfterCompletion() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)
	_, err = s.service.RespondToSession(ctx, session.ID, testutil.TestDIDs.Holder, s.fullResponse(session))
	s.Require().NoError(err)

	err = s.service.RevokeSession(ctx, session.ID, "too late")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestRevokeWinsOverUnsweptDeadline() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, time.Minute)
	s.Require().NoError(err)

	s.advance(time.Hour)

	// Nobody has observed the deadline yet; explicit revocation lands first.
	s.Require().NoError(s.service.RevokeSession(ctx, session.ID, "requester decision"))

	found, err := s.service.GetSession(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, found.Status)
	s.Empty(s.publisher.ofKind(events.KindSessionExpired))
}

func (s *ServiceSuite) TestListSessions() {
	ctx := context.Background()
	_, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, 0)
	s.Require().NoError(err)
	s.advance(time.Second)
	second, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeDirect, 0)
	s.Require().NoError(err)

	sessions, err := s.service.ListSessions(ctx, store.Filter{})
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(second.ID, sessions[0].ID, "newest first")
}

func (s *ServiceSuite) TestCleanup() {
	ctx := context.Background()
	short, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, time.Minute)
	s.Require().NoError(err)
	_, err = s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, time.Hour)
	s.Require().NoError(err)

	s.advance(10 * time.Minute)

	count, err := s.service.Cleanup(ctx)
	s.Require().NoError(err)
	s.Equal(1, count)

	expired := s.publisher.ofKind(events.KindSessionExpired)
	s.Require().Len(expired, 1)
	s.Equal(short.ID, expired[0].SessionID)

	// Second sweep finds nothing.
	count, err = s.service.Cleanup(ctx)
	s.Require().NoError(err)
	s.Zero(count)
	s.Len(s.publisher.ofKind(events.KindSessionExpired), 1)
}

func (s *ServiceSuite) TestLazyExpiryAndSweepEmitOnce() {
	ctx := context.Background()
	session, err := s.service.CreateSession(ctx, s.newRequest(), models.SessionTypeQR, time.Minute)
	s.Require().NoError(err)

	s.advance(10 * time.Minute)

	_, err = s.service.GetSession(ctx, session.ID)
	s.Require().Error(err)

	count, err := s.service.Cleanup(ctx)
	s.Require().NoError(err)
	s.Zero(count)
	s.Len(s.publisher.ofKind(events.KindSessionExpired), 1)
}
