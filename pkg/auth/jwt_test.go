package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medoffice/scheduler-api/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	doctorID := uuid.New()
	actor := model.Actor{
		UserID:   uuid.New(),
		Role:     model.ActorRoleDoctor,
		OfficeID: uuid.New(),
		DoctorID: &doctorID,
	}

	token, err := svc.GenerateToken(actor)
	require.NoError(t, err)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
	assert.True(t, got.IsDoctor())
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).GenerateToken(model.Actor{UserID: uuid.New(), Role: model.ActorRoleStaff})
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 1).ValidateToken(token)
	assert.Error(t, err)

	_, err = NewJWTService("secret-a", 1).ValidateToken("not.a.token")
	assert.Error(t, err)
}
