// File: internal/domain/domain_test.go
package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIdentityRoomKey(t *testing.T) {
	require.Equal(t, "client-10", Identity{ID: 10, Role: RoleClient}.RoomKey())
	require.Equal(t, "advocate-20", Identity{ID: 20, Role: RoleAdvocate}.RoomKey())
}

func TestIdentityIsValid(t *testing.T) {
	require.True(t, Identity{ID: 1, Role: RoleClient}.IsValid())
	require.True(t, Identity{ID: 1, Role: RoleAdvocate}.IsValid())
	require.False(t, Identity{ID: 0, Role: RoleClient}.IsValid())
	require.False(t, Identity{ID: 1, Role: "admin"}.IsValid())
}

func TestConsultationRoomKey(t *testing.T) {
	require.Equal(t, "consultation-7", ConsultationRoomKey(7))
}

func TestConsultationParticipants(t *testing.T) {
	c := &Consultation{UserID: 10, AdvocateID: 20, Status: ConsultationActive}

	require.True(t, c.IsParticipant(Identity{ID: 10, Role: RoleClient}))
	require.True(t, c.IsParticipant(Identity{ID: 20, Role: RoleAdvocate}))

	// Same id under the wrong role is not a participant.
	require.False(t, c.IsParticipant(Identity{ID: 10, Role: RoleAdvocate}))
	require.False(t, c.IsParticipant(Identity{ID: 20, Role: RoleClient}))
	require.False(t, c.IsParticipant(Identity{ID: 3, Role: RoleClient}))
}

func TestConsultationCounterpart(t *testing.T) {
	c := &Consultation{UserID: 10, AdvocateID: 20}

	require.Equal(t, Identity{ID: 20, Role: RoleAdvocate}, c.Counterpart(Identity{ID: 10, Role: RoleClient}))
	require.Equal(t, Identity{ID: 10, Role: RoleClient}, c.Counterpart(Identity{ID: 20, Role: RoleAdvocate}))
}

func TestConsultationIsActive(t *testing.T) {
	require.True(t, (&Consultation{Status: ConsultationActive}).IsActive())
	require.False(t, (&Consultation{Status: ConsultationCompleted}).IsActive())
	require.False(t, (&Consultation{Status: ConsultationCancelled}).IsActive())
}

func TestChatHistorySnapshotRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	messages := []Message{
		{ID: 1, ConsultationID: 7, SenderID: 10, SenderRole: RoleClient, Body: "Hello", Kind: MessageKindText, CreatedAt: now},
		{ID: 2, ConsultationID: 7, SenderID: 20, SenderRole: RoleAdvocate, Body: "Hi, how can I help?", Kind: MessageKindText, CreatedAt: now.Add(time.Second)},
	}

	h := &ChatHistory{UserID: 10, ConsultationID: 7}
	require.NoError(t, h.SetMessages(messages))
	require.Equal(t, 2, h.MessageCount)
	require.Equal(t, "Hi, how can I help?", h.LastMessage)

	decoded, err := h.DecodeMessages()
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.Equal(t, "Hello", decoded[0].Body)
}

func TestChatHistoryDecodeEmpty(t *testing.T) {
	h := &ChatHistory{}
	decoded, err := h.DecodeMessages()
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestAdvocatePasswordHashing(t *testing.T) {
	a := &Advocate{}
	require.Error(t, a.HashPassword("short"))

	require.NoError(t, a.HashPassword("correct horse battery"))
	require.NotEqual(t, "correct horse battery", a.Password)
	require.NoError(t, a.ValidatePassword("correct horse battery"))
	require.Error(t, a.ValidatePassword("wrong password"))
}

func TestUserValidation(t *testing.T) {
	u := &User{Name: "Ravi Kumar", Email: "ravi@example.com"}
	require.NoError(t, u.IsValid())
	require.NoError(t, u.HashPassword("a long enough secret"))
	require.NoError(t, u.ValidatePassword("a long enough secret"))
	require.Error(t, u.ValidatePassword("nope"))

	require.Error(t, (&User{Name: "R", Email: "ravi@example.com"}).IsValid())
	require.Error(t, (&User{Name: "Ravi Kumar", Email: "nope"}).IsValid())
}

func TestValidators(t *testing.T) {
	require.True(t, IsValidConsultationType(ConsultationTypeChat))
	require.True(t, IsValidConsultationType(ConsultationTypeVoice))
	require.False(t, IsValidConsultationType("telepathy"))

	require.True(t, IsValidMessageKind(MessageKindText))
	require.True(t, IsValidMessageKind(MessageKindFile))
	require.False(t, IsValidMessageKind("hologram"))
}
