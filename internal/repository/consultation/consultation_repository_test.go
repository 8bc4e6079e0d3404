// File: internal/repository/consultation/consultation_repository_test.go
package consultation

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lexserve/go-lexserve/internal/domain"
)

func newTestRepo(t *testing.T) ConsultationRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Consultation{}))
	return NewConsultationRepository(db)
}

func createActive(t *testing.T, repo ConsultationRepository, userID, advocateID uint) *domain.Consultation {
	t.Helper()
	c, err := repo.Create(context.Background(), &domain.Consultation{
		UserID:     userID,
		AdvocateID: advocateID,
		Type:       domain.ConsultationTypeChat,
		FeeAmount:  500,
		Status:     domain.ConsultationActive,
		StartedAt:  time.Now(),
	})
	require.NoError(t, err)
	return c
}

func TestCreateAndFind(t *testing.T) {
	repo := newTestRepo(t)
	created := createActive(t, repo, 10, 20)
	require.NotZero(t, created.ID)

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, uint(10), found.UserID)
	require.Equal(t, uint(20), found.AdvocateID)
	require.Equal(t, domain.ConsultationActive, found.Status)
	require.Equal(t, 500, found.FeeAmount)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, nil)
	require.Error(t, err)

	_, err = repo.Create(ctx, &domain.Consultation{AdvocateID: 20, Type: domain.ConsultationTypeChat})
	require.Error(t, err)

	_, err = repo.Create(ctx, &domain.Consultation{UserID: 10, AdvocateID: 20, Type: "telepathy"})
	require.Error(t, err)
}

func TestFindByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.FindByID(context.Background(), 999)
	require.ErrorIs(t, err, ErrConsultationNotFound)
}

func TestFindByParticipant(t *testing.T) {
	repo := newTestRepo(t)
	createActive(t, repo, 10, 20)
	createActive(t, repo, 10, 21)
	createActive(t, repo, 11, 20)

	list, total, err := repo.FindByParticipant(context.Background(), domain.Identity{ID: 10, Role: domain.RoleClient}, 50, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, list, 2)

	list, total, err = repo.FindByParticipant(context.Background(), domain.Identity{ID: 20, Role: domain.RoleAdvocate}, 50, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, list, 2)
}

func TestHasActiveByPair(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c := createActive(t, repo, 10, 20)

	active, err := repo.HasActiveByPair(ctx, 10, 20)
	require.NoError(t, err)
	require.True(t, active)

	active, err = repo.HasActiveByPair(ctx, 10, 21)
	require.NoError(t, err)
	require.False(t, active)

	_, err = repo.Terminate(ctx, c.ID, domain.ConsultationCompleted, time.Now())
	require.NoError(t, err)

	active, err = repo.HasActiveByPair(ctx, 10, 20)
	require.NoError(t, err)
	require.False(t, active)
}

func TestTerminateIsSingleShot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c := createActive(t, repo, 10, 20)

	endedAt := time.Now()
	terminated, err := repo.Terminate(ctx, c.ID, domain.ConsultationCompleted, endedAt)
	require.NoError(t, err)
	require.Equal(t, domain.ConsultationCompleted, terminated.Status)
	require.NotNil(t, terminated.EndedAt)

	// Second termination finds no active row.
	_, err = repo.Terminate(ctx, c.ID, domain.ConsultationCancelled, time.Now())
	require.ErrorIs(t, err, ErrConsultationNotActive)

	// Status did not move again.
	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ConsultationCompleted, found.Status)
}

func TestTerminateUnknownConsultation(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Terminate(context.Background(), 999, domain.ConsultationCompleted, time.Now())
	require.ErrorIs(t, err, ErrConsultationNotActive)
}

func TestTerminateRejectsNonTerminalStatus(t *testing.T) {
	repo := newTestRepo(t)
	c := createActive(t, repo, 10, 20)

	_, err := repo.Terminate(context.Background(), c.ID, domain.ConsultationActive, time.Now())
	require.Error(t, err)
}

func TestUpdateLastMessage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c := createActive(t, repo, 10, 20)

	at := time.Now()
	require.NoError(t, repo.UpdateLastMessage(ctx, c.ID, "see you tomorrow", at))

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "see you tomorrow", found.LastMessage)
	require.NotNil(t, found.LastMessageAt)

	require.ErrorIs(t, repo.UpdateLastMessage(ctx, 999, "x", at), ErrConsultationNotFound)
}
