package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearstone-ma/be-diligence/internal/errors"
	"github.com/clearstone-ma/be-diligence/internal/progress"
)

func newStageHarness(t *testing.T) (*StageService, *RequestService, *memStore) {
	t.Helper()
	m := newMemStore()
	pub := &fakePublisher{}
	stageSvc := NewStageService(stageStore{m}, requestStore{m}, testLogger())
	requestSvc := NewRequestService(
		requestStore{m}, stageStore{m}, responseStore{m},
		documentStore{m}, auditStore{m}, pub, testLogger(),
	)
	return stageSvc, requestSvc, m
}

func TestCreateStage(t *testing.T) {
	ctx := context.Background()
	svc, _, m := newStageHarness(t)
	deal := seedDeal(t, m)

	first, err := svc.CreateStage(ctx, &CreateStageRequest{
		DealID: deal.ID, Name: "Preliminary Review", CompletionThreshold: 80,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.SortOrder)
	assert.True(t, first.IsActive)

	second, err := svc.CreateStage(ctx, &CreateStageRequest{
		DealID: deal.ID, Name: "Deep Dive", CompletionThreshold: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.SortOrder)

	_, err = svc.CreateStage(ctx, &CreateStageRequest{
		DealID: deal.ID, Name: "Bad", CompletionThreshold: 101,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))

	_, err = svc.CreateStage(ctx, &CreateStageRequest{DealID: deal.ID, Name: "  "})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
}

func TestReorderStages(t *testing.T) {
	ctx := context.Background()
	svc, _, m := newStageHarness(t)
	deal := seedDeal(t, m)

	a := seedStage(t, m, deal.ID, 1, 50)
	b := seedStage(t, m, deal.ID, 2, 50)
	c := seedStage(t, m, deal.ID, 3, 50)

	t.Run("rewrites workflow order", func(t *testing.T) {
		stages, err := svc.ReorderStages(ctx, deal.ID, []string{c.ID, a.ID, b.ID})
		require.NoError(t, err)
		require.Len(t, stages, 3)
		assert.Equal(t, c.ID, stages[0].ID)
		assert.Equal(t, a.ID, stages[1].ID)
		assert.Equal(t, b.ID, stages[2].ID)
	})

	t.Run("rejects incomplete permutation", func(t *testing.T) {
		_, err := svc.ReorderStages(ctx, deal.ID, []string{a.ID, b.ID})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := svc.ReorderStages(ctx, deal.ID, []string{a.ID, a.ID, b.ID})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
	})

	t.Run("rejects foreign stage", func(t *testing.T) {
		other := seedDeal(t, m)
		foreign := seedStage(t, m, other.ID, 1, 50)
		_, err := svc.ReorderStages(ctx, deal.ID, []string{a.ID, b.ID, foreign.ID})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
	})
}

func TestDeleteStageUnassignsRequests(t *testing.T) {
	ctx := context.Background()
	svc, requestSvc, m := newStageHarness(t)
	deal := seedDeal(t, m)
	stage := seedStage(t, m, deal.ID, 1, 50)

	created, err := requestSvc.CreateRequest(ctx, &CreateRequestRequest{
		DealID: deal.ID, StageID: &stage.ID,
		Category: "legal", Priority: "low", Title: "Litigation summary",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteStage(ctx, stage.ID))

	got, err := requestSvc.GetRequest(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StageID)
}

func TestDealBoard(t *testing.T) {
	ctx := context.Background()
	svc, requestSvc, m := newStageHarness(t)
	deal := seedDeal(t, m)

	first := seedStage(t, m, deal.ID, 1, 50)
	second := seedStage(t, m, deal.ID, 2, 80)
	third := seedStage(t, m, deal.ID, 3, 100)

	// Two requests in the first stage, one of them approved; one unassigned
	// request; the later stages stay empty.
	mk := func(t *testing.T, stageID *string, title string) string {
		t.Helper()
		created, err := requestSvc.CreateRequest(ctx, &CreateRequestRequest{
			DealID: deal.ID, StageID: stageID,
			Category: "financial", Priority: "high", Title: title,
		})
		require.NoError(t, err)
		return created.ID
	}
	approvedID := mk(t, &first.ID, "Revenue breakdown")
	mk(t, &first.ID, "Debt schedule")
	mk(t, nil, "Unsorted questionnaire")

	_, err := requestSvc.SubmitResponse(ctx, &SubmitResponseRequest{
		RequestID: approvedID, Body: "uploaded", SubmittedBy: "seller-1",
	})
	require.NoError(t, err)
	_, err = requestSvc.ApproveRequest(ctx, &ApproveRequestRequest{ID: approvedID, ApprovedBy: "buyer-1"})
	require.NoError(t, err)

	board, err := svc.DealBoard(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, board.Stages, 3)

	assert.Equal(t, first.ID, board.Stages[0].Stage.ID)
	assert.Equal(t, 2, board.Stages[0].Progress.Total)
	assert.Equal(t, 1, board.Stages[0].Progress.Completed)
	assert.Equal(t, 50, board.Stages[0].Progress.Percentage)
	assert.True(t, board.Stages[0].Unlocked)

	// 50% meets the first stage's threshold, so the second gate is open.
	assert.True(t, board.Stages[1].Unlocked)
	assert.Equal(t, progress.GroupProgress{Key: second.ID}, board.Stages[1].Progress)

	// The second stage sits at 0%, short of its 80% threshold.
	assert.False(t, board.Stages[2].Unlocked)
	assert.Equal(t, progress.GroupProgress{Key: third.ID}, board.Stages[2].Progress)

	require.NotNil(t, board.Unassigned)
	assert.Equal(t, progress.StageUnassigned, board.Unassigned.Key)
	assert.Equal(t, 1, board.Unassigned.Total)
	assert.Equal(t, 0, board.Unassigned.Completed)
}

func TestDealBoardEmptyDeal(t *testing.T) {
	ctx := context.Background()
	svc, _, m := newStageHarness(t)
	deal := seedDeal(t, m)

	board, err := svc.DealBoard(ctx, deal.ID)
	require.NoError(t, err)
	assert.Empty(t, board.Stages)
	assert.Nil(t, board.Unassigned)
}

func TestProgressServiceRollups(t *testing.T) {
	ctx := context.Background()
	_, requestSvc, m := newStageHarness(t)
	progressSvc := NewProgressService(requestStore{m})
	deal := seedDeal(t, m)

	for _, c := range []string{"legal", "legal", "financial"} {
		_, err := requestSvc.CreateRequest(ctx, &CreateRequestRequest{
			DealID: deal.ID, Category: c, Priority: "medium", Title: "Item " + c,
		})
		require.NoError(t, err)
	}

	groups, err := progressSvc.CategoryProgress(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "legal", groups[0].Key)
	assert.Equal(t, 2, groups[0].Total)
	assert.Equal(t, "financial", groups[1].Key)
	assert.Equal(t, 1, groups[1].Total)

	stages, err := progressSvc.StageProgress(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, progress.StageUnassigned, stages[0].Key)
	assert.Equal(t, 3, stages[0].Total)
}
