package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearstone-ma/be-diligence/internal/errors"
	"github.com/clearstone-ma/be-diligence/internal/repository"
)

func TestCreateDeal(t *testing.T) {
	ctx := context.Background()
	m := newMemStore()
	svc := NewDealService(m, testLogger())

	t.Run("creates active deal with normalized code", func(t *testing.T) {
		target := "Glacier Holdings AB"
		deal, err := svc.CreateDeal(ctx, &CreateDealRequest{
			Name:          "  Project Glacier ",
			Code:          "glc",
			TargetCompany: &target,
			CreatedBy:     "partner-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "Project Glacier", deal.Name)
		assert.Equal(t, "GLC", deal.Code)
		assert.Equal(t, repository.DealActive, deal.Status)
	})

	t.Run("rejects blank name and code", func(t *testing.T) {
		_, err := svc.CreateDeal(ctx, &CreateDealRequest{Name: " ", Code: "GLC"})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))

		_, err = svc.CreateDeal(ctx, &CreateDealRequest{Name: "Glacier", Code: ""})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
	})
}

func TestUpdateDealStatus(t *testing.T) {
	ctx := context.Background()
	m := newMemStore()
	svc := NewDealService(m, testLogger())

	deal, err := svc.CreateDeal(ctx, &CreateDealRequest{Name: "Glacier", Code: "GLC"})
	require.NoError(t, err)

	held, err := svc.UpdateDealStatus(ctx, deal.ID, "on_hold")
	require.NoError(t, err)
	assert.Equal(t, repository.DealOnHold, held.Status)

	_, err = svc.UpdateDealStatus(ctx, deal.ID, "shipped")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))

	_, err = svc.UpdateDealStatus(ctx, deal.ID, "archived")
	require.NoError(t, err)

	// Archived is terminal.
	_, err = svc.UpdateDealStatus(ctx, deal.ID, "active")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))
}

func TestDeleteDeal(t *testing.T) {
	ctx := context.Background()
	m := newMemStore()
	svc := NewDealService(m, testLogger())

	deal, err := svc.CreateDeal(ctx, &CreateDealRequest{Name: "Glacier", Code: "GLC"})
	require.NoError(t, err)

	require.NoError(t, requestStore{m}.Create(ctx, &repository.Request{DealID: deal.ID, Title: "x"}))

	err = svc.DeleteDeal(ctx, deal.ID)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))

	empty, err := svc.CreateDeal(ctx, &CreateDealRequest{Name: "Summit", Code: "SMT"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteDeal(ctx, empty.ID))

	_, err = svc.GetDeal(ctx, empty.ID)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestListDeals(t *testing.T) {
	ctx := context.Background()
	m := newMemStore()
	svc := NewDealService(m, testLogger())

	for _, code := range []string{"AAA", "BBB"} {
		_, err := svc.CreateDeal(ctx, &CreateDealRequest{Name: "Deal " + code, Code: code})
		require.NoError(t, err)
	}
	closed, err := svc.CreateDeal(ctx, &CreateDealRequest{Name: "Done", Code: "CCC"})
	require.NoError(t, err)
	_, err = svc.UpdateDealStatus(ctx, closed.ID, "closed")
	require.NoError(t, err)

	all, total, err := svc.ListDeals(ctx, nil, 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	status := "closed"
	filtered, total, err := svc.ListDeals(ctx, &status, 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, filtered, 1)
	assert.Equal(t, "CCC", filtered[0].Code)

	bad := "bogus"
	_, _, err = svc.ListDeals(ctx, &bad, 1, 50)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
}
