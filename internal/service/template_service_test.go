package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearstone-ma/be-diligence/internal/errors"
	"github.com/clearstone-ma/be-diligence/internal/progress"
)

func newTemplateHarness(t *testing.T) (*TemplateService, *memStore, *fakePublisher) {
	t.Helper()
	m := newMemStore()
	pub := &fakePublisher{}
	svc := NewTemplateService(
		templateStore{m}, requestStore{m}, stageStore{m}, m, pub, testLogger(),
	)
	return svc, m, pub
}

func standardItems() []TemplateItemRequest {
	return []TemplateItemRequest{
		{Category: "financial", Priority: "high", Title: "Audited financials"},
		{Category: "legal", Priority: "high", Title: "Corporate structure"},
		{Category: "hr", Priority: "medium", Title: "Key employee contracts"},
	}
}

func TestCreateTemplate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTemplateHarness(t)

	t.Run("creates active template with ordered items", func(t *testing.T) {
		tpl, err := svc.CreateTemplate(ctx, &CreateTemplateRequest{
			Name:  "Standard Buy-Side Checklist",
			Items: standardItems(),
		})
		require.NoError(t, err)
		assert.True(t, tpl.IsActive)
		require.Len(t, tpl.Items, 3)
		assert.Equal(t, 1, tpl.Items[0].SortOrder)
		assert.Equal(t, 3, tpl.Items[2].SortOrder)
		assert.Equal(t, progress.CategoryFinancial, tpl.Items[0].Category)
	})

	t.Run("rejects empty item list", func(t *testing.T) {
		_, err := svc.CreateTemplate(ctx, &CreateTemplateRequest{Name: "Empty"})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
	})

	t.Run("rejects bad item category", func(t *testing.T) {
		_, err := svc.CreateTemplate(ctx, &CreateTemplateRequest{
			Name:  "Bad",
			Items: []TemplateItemRequest{{Category: "astrology", Priority: "high", Title: "x"}},
		})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
	})
}

func TestApplyTemplate(t *testing.T) {
	ctx := context.Background()
	svc, m, pub := newTemplateHarness(t)
	deal := seedDeal(t, m)
	stage := seedStage(t, m, deal.ID, 1, 100)

	tpl, err := svc.CreateTemplate(ctx, &CreateTemplateRequest{
		Name:  "Standard Buy-Side Checklist",
		Items: standardItems(),
	})
	require.NoError(t, err)

	t.Run("creates one pending request per item", func(t *testing.T) {
		requests, err := svc.ApplyTemplate(ctx, &ApplyTemplateRequest{
			TemplateID: tpl.ID,
			DealID:     deal.ID,
			StageID:    &stage.ID,
			AppliedBy:  "analyst-1",
		})
		require.NoError(t, err)
		require.Len(t, requests, 3)
		for i, r := range requests {
			assert.Equal(t, deal.ID, r.DealID)
			require.NotNil(t, r.StageID)
			assert.Equal(t, stage.ID, *r.StageID)
			assert.Equal(t, progress.ApprovalPending, r.Approval)
			assert.Equal(t, progress.StatusIncomplete, r.DerivedStatus)
			assert.Equal(t, tpl.Items[i].Title, r.Title)
		}

		events := pub.byType("template_applied")
		require.Len(t, events, 1)
		assert.Equal(t, deal.ID, events[0].dealID)
	})

	t.Run("refuses stage of another deal", func(t *testing.T) {
		other := seedDeal(t, m)
		foreign := seedStage(t, m, other.ID, 1, 100)
		_, err := svc.ApplyTemplate(ctx, &ApplyTemplateRequest{
			TemplateID: tpl.ID, DealID: deal.ID, StageID: &foreign.ID,
		})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
	})

	t.Run("refuses archived deal", func(t *testing.T) {
		archived := seedDeal(t, m)
		require.NoError(t, m.UpdateStatus(ctx, archived.ID, "archived"))
		_, err := svc.ApplyTemplate(ctx, &ApplyTemplateRequest{
			TemplateID: tpl.ID, DealID: archived.ID,
		})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))
	})

	t.Run("refuses inactive template", func(t *testing.T) {
		require.NoError(t, svc.DeactivateTemplate(ctx, tpl.ID))
		_, err := svc.ApplyTemplate(ctx, &ApplyTemplateRequest{
			TemplateID: tpl.ID, DealID: deal.ID,
		})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))
	})
}

func TestListTemplates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTemplateHarness(t)

	a, err := svc.CreateTemplate(ctx, &CreateTemplateRequest{Name: "A", Items: standardItems()})
	require.NoError(t, err)
	_, err = svc.CreateTemplate(ctx, &CreateTemplateRequest{Name: "B", Items: standardItems()})
	require.NoError(t, err)
	require.NoError(t, svc.DeactivateTemplate(ctx, a.ID))

	active, err := svc.ListTemplates(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B", active[0].Name)

	all, err := svc.ListTemplates(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
