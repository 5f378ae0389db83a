package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proofshare/internal/share/events"
	"proofshare/internal/share/models"
	id "proofshare/pkg/domain"
	"proofshare/pkg/testutil"
)

func sessionEvent(kind events.Kind, sessionID id.SessionID, metadata map[string]string) events.Event {
	return events.Event{
		Kind:         kind,
		SessionID:    sessionID,
		SessionType:  models.SessionTypeQR,
		RequesterDID: testutil.TestDIDs.Requester,
		Timestamp:    time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		Metadata:     metadata,
	}
}

func TestSinkAggregates(t *testing.T) {
	sink := NewSink()
	sessionID := testutil.TestIDs.SessionID1

	sink.Record(sessionEvent(events.KindSessionCreated, sessionID, nil))
	sink.Record(sessionEvent(events.KindSessionActivated, sessionID, nil))
	sink.Record(sessionEvent(events.KindSessionCompleted, sessionID,
		map[string]string{models.MetaConsentGiven: "true"}))
	sink.Record(sessionEvent(events.KindSessionCompleted, testutil.TestIDs.SessionID2,
		map[string]string{models.MetaConsentGiven: "false"}))

	totals := sink.Snapshot()
	assert.Equal(t, 1, totals.ByKind[events.KindSessionCreated])
	assert.Equal(t, 2, totals.ByKind[events.KindSessionCompleted])
	assert.Equal(t, 4, totals.ByRequester[testutil.TestDIDs.Requester])
	assert.Equal(t, 1, totals.Consented)
	assert.Equal(t, 1, totals.Declined)
}

func TestSinkListBySessionArrivalOrder(t *testing.T) {
	sink := NewSink()
	sessionID := testutil.TestIDs.SessionID1

	sink.Record(sessionEvent(events.KindSessionCreated, sessionID, nil))
	sink.Record(sessionEvent(events.KindSessionRevoked, sessionID, nil))
	sink.Record(sessionEvent(events.KindSessionCreated, testutil.TestIDs.SessionID2, nil))

	recorded := sink.ListBySession(sessionID)
	require.Len(t, recorded, 2)
	assert.Equal(t, events.KindSessionCreated, recorded[0].Kind)
	assert.Equal(t, events.KindSessionRevoked, recorded[1].Kind)

	assert.Empty(t, sink.ListBySession(id.NewSessionID()))
}

func TestSinkSnapshotIsACopy(t *testing.T) {
	sink := NewSink()
	sink.Record(sessionEvent(events.KindSessionCreated, testutil.TestIDs.SessionID1, nil))

	totals := sink.Snapshot()
	totals.ByKind[events.KindSessionCreated] = 99

	assert.Equal(t, 1, sink.Snapshot().ByKind[events.KindSessionCreated])
}

func TestSinkClear(t *testing.T) {
	sink := NewSink()
	sink.Record(sessionEvent(events.KindSessionCompleted, testutil.TestIDs.SessionID1,
		map[string]string{models.MetaConsentGiven: "true"}))

	sink.Clear()

	totals := sink.Snapshot()
	assert.Empty(t, totals.ByKind)
	assert.Zero(t, totals.Consented)
	assert.Empty(t, sink.ListBySession(testutil.TestIDs.SessionID1))
}

func TestSinkOnBus(t *testing.T) {
	sink := NewSink()
	bus := events.NewBus()
	bus.Subscribe(sink.Record)

	bus.Publish(sessionEvent(events.KindSessionCreated, testutil.TestIDs.SessionID1, nil))
	bus.Close()

	assert.Equal(t, 1, sink.Snapshot().ByKind[events.KindSessionCreated])
}
