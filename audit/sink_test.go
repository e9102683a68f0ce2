package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	complyforgetest "github.com/complyforge/complyforge/internal/testing"
)

func TestRecordAndListByEntity(t *testing.T) {
	sink := NewSQLSink(complyforgetest.CreateTestDB(t))
	ctx := context.Background()

	event := Event{
		Action:     ActionGuardrailCheck,
		EntityType: "generation_request",
		EntityID:   "job-1",
		UserID:     "user-1",
		Metadata: map[string]interface{}{
			"blocked":  true,
			"severity": 8,
		},
	}
	require.NoError(t, sink.Record(ctx, event))

	events, err := sink.ListByEntity(ctx, "generation_request", "job-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, ActionGuardrailCheck, got.Action)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, true, got.Metadata["blocked"])
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRecordWithoutMetadata(t *testing.T) {
	sink := NewSQLSink(complyforgetest.CreateTestDB(t))
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, Event{
		Action:     ActionGenerateDoc,
		EntityType: "document",
		EntityID:   "doc-1",
	}))

	events, err := sink.ListByEntity(ctx, "document", "doc-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Metadata)
}

func TestStatsCountsByAction(t *testing.T) {
	sink := NewSQLSink(complyforgetest.CreateTestDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Record(ctx, Event{
			Action: ActionGuardrailCheck, EntityType: "generation_request", EntityID: "job-1",
		}))
	}
	require.NoError(t, sink.Record(ctx, Event{
		Action: ActionCrossValidation, EntityType: "document", EntityID: "doc-1",
	}))

	counts, err := sink.Stats(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, counts, 2)
	// Ordered by action name.
	assert.Equal(t, ActionCrossValidation, counts[0].Action)
	assert.Equal(t, 1, counts[0].Count)
	assert.Equal(t, ActionGuardrailCheck, counts[1].Action)
	assert.Equal(t, 3, counts[1].Count)
}

func TestStatsHonorsSince(t *testing.T) {
	sink := NewSQLSink(complyforgetest.CreateTestDB(t))
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, Event{
		Action:     ActionGuardrailCheck,
		EntityType: "generation_request",
		EntityID:   "job-1",
		CreatedAt:  time.Now().Add(-48 * time.Hour),
	}))

	counts, err := sink.Stats(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestRecordInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO audit_log").WillReturnError(assert.AnError)

	sink := NewSQLSink(db)
	err = sink.Record(context.Background(), Event{
		Action:     ActionGuardrailCheck,
		EntityType: "generation_request",
		EntityID:   "job-1",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record audit event")
	assert.NoError(t, mock.ExpectationsWereMet())
}
