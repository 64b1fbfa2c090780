package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umrah-backoffice/internal/domain"
	clientrepo "umrah-backoffice/internal/repository/client"
)

type stubRooming struct {
	removed   []string
	refreshes int
	removeErr error
}

func (s *stubRooming) RemoveClientFromRoom(_ context.Context, clientID string, _ domain.City) error {
	s.removed = append(s.removed, clientID)
	return s.removeErr
}

func (s *stubRooming) Refresh(context.Context) error {
	s.refreshes++
	return nil
}

func TestCreate_SynthesizesEmail(t *testing.T) {
	rooming := &stubRooming{}
	svc := New(clientrepo.NewMemory(), rooming, nil)

	c, err := svc.Create(context.Background(), domain.Client{Name: "  Ahmed Ali "})
	require.NoError(t, err)
	assert.Equal(t, "Ahmed Ali", c.Name)
	assert.Equal(t, "ahmed.ali@example.com", c.Email)
	assert.Equal(t, 1, rooming.refreshes)

	kept, err := svc.Create(context.Background(), domain.Client{Name: "Omar Said", Email: "omar@mail.ma"})
	require.NoError(t, err)
	assert.Equal(t, "omar@mail.ma", kept.Email)
}

func TestCreate_Validation(t *testing.T) {
	svc := New(clientrepo.NewMemory(), nil, nil)
	_, err := svc.Create(context.Background(), domain.Client{Name: " "})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Create(context.Background(), domain.Client{Name: "Ahmed Ali", Gender: "Other"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBulkCreate_AllOrNothing(t *testing.T) {
	repo := clientrepo.NewMemory()
	svc := New(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.BulkCreate(ctx, []domain.Client{{Name: "Ahmed Ali"}, {Name: ""}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	repo.FailNext = errors.New("write failed")
	_, err = svc.BulkCreate(ctx, []domain.Client{{Name: "Ahmed Ali"}})
	assert.Error(t, err)

	created, err := svc.BulkCreate(ctx, []domain.Client{{Name: "Ahmed Ali"}, {Name: "Fatima Zahra"}})
	require.NoError(t, err)
	assert.Len(t, created, 2)
}

func TestList_Query(t *testing.T) {
	svc := New(clientrepo.NewMemory(), nil, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, domain.Client{Name: "Ahmed Ali", PassportNumber: "AB1234"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.Client{Name: "Fatima Zahra", Phone: "+212600000000"})
	require.NoError(t, err)

	got, err := svc.List(ctx, "ab12")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ahmed Ali", got[0].Name)

	got, err = svc.List(ctx, "+2126")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestUpdate(t *testing.T) {
	svc := New(clientrepo.NewMemory(), nil, nil)
	ctx := context.Background()
	c, err := svc.Create(ctx, domain.Client{Name: "Ahmed Ali"})
	require.NoError(t, err)

	blank := "  "
	_, err = svc.Update(ctx, c.ID, domain.ClientPatch{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrValidation)

	phone := "0600"
	updated, err := svc.Update(ctx, c.ID, domain.ClientPatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "0600", updated.Phone)
	assert.Equal(t, "Ahmed Ali", updated.Name)

	same, err := svc.Update(ctx, c.ID, domain.ClientPatch{})
	require.NoError(t, err)
	assert.Equal(t, "0600", same.Phone)

	_, err = svc.Update(ctx, "missing", domain.ClientPatch{Phone: &phone})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_UnassignsFirst(t *testing.T) {
	rooming := &stubRooming{}
	repo := clientrepo.NewMemory()
	svc := New(repo, rooming, nil)
	ctx := context.Background()
	c, err := svc.Create(ctx, domain.Client{Name: "Ahmed Ali"})
	require.NoError(t, err)

	rooming.removeErr = errors.New("store down")
	assert.Error(t, svc.Delete(ctx, c.ID))
	_, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)

	rooming.removeErr = nil
	require.NoError(t, svc.Delete(ctx, c.ID))
	assert.Equal(t, []string{c.ID, c.ID}, rooming.removed)
	_, err = repo.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, c.ID), domain.ErrNotFound)
}
