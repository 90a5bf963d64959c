package models_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"encrypted-quest-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModels(t *testing.T) {
	require.NoError(t, models.ValidateTasks(models.DefaultTasks))
	assert.Equal(t, 5, models.TaskCount)
	assert.Equal(t, uint64(100_000000), models.DefaultTasks[0].Reward)
	assert.Equal(t, uint64(150_000000), models.DefaultTasks[1].Reward)
	assert.Equal(t, uint64(0b10000), models.DefaultTasks[4].Bit())

	id := models.GenerateTransactionID()
	assert.NotEmpty(t, id)
	assert.NotEqual(t, id, models.GenerateTransactionID())

	challenge, err := models.GenerateChallenge()
	require.NoError(t, err)
	assert.Len(t, challenge, 32)
}

func TestValidateTasksRejectsBadBoards(t *testing.T) {
	assert.Error(t, models.ValidateTasks(nil))
	assert.Error(t, models.ValidateTasks([]models.Task{{ID: 2, Name: "x"}}))
	assert.Error(t, models.ValidateTasks([]models.Task{{ID: 1}}))

	tooMany := make([]models.Task, models.MaxTasks+1)
	for i := range tooMany {
		tooMany[i] = models.Task{ID: i + 1, Name: "t"}
	}
	assert.Error(t, models.ValidateTasks(tooMany))
}

func TestValidateTaskID(t *testing.T) {
	for _, id := range []int{1, 3, 5} {
		assert.NoError(t, models.ValidateTaskID(id, 5))
	}
	for _, id := range []int{-1, 0, 6, 64} {
		err := models.ValidateTaskID(id, 5)
		assert.ErrorIs(t, err, models.ErrInvalidTaskID)
	}
}

func TestFormatCoin(t *testing.T) {
	assert.Equal(t, "100.000000", models.FormatCoin(100_000000))
	assert.Equal(t, "250.000000", models.FormatCoin(250_000000))
	assert.Equal(t, "0.000001", models.FormatCoin(1))
	assert.Equal(t, "0.000000", models.FormatCoin(0))

	v, err := models.ParseCoin("150.5")
	require.NoError(t, err)
	assert.Equal(t, uint64(150_500000), v)

	_, err = models.ParseCoin("1.0000001")
	assert.Error(t, err)
	_, err = models.ParseCoin("-1")
	assert.Error(t, err)
}

func TestHexTypesJSON(t *testing.T) {
	addr, err := models.ParseAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)

	var h models.Handle
	h[0], h[31] = 0x01, 0xff

	body, err := json.Marshal(models.HandleContractPair{Handle: h, Contract: addr})
	require.NoError(t, err)

	var decoded models.HandleContractPair
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, h, decoded.Handle)
	assert.Equal(t, addr, decoded.Contract)

	_, err = models.ParseAddress("0x1234")
	assert.Error(t, err)
	_, err = models.ParseHandle("zz")
	assert.Error(t, err)
	assert.True(t, models.ZeroHandle.IsZero())
}

func TestNewProgress(t *testing.T) {
	p := models.NewProgress(models.ZeroAddress, models.DefaultTasks, 0b101)
	require.Len(t, p.Tasks, 5)
	assert.Equal(t, models.TaskStatusCompleted, p.Tasks[0].Status)
	assert.Equal(t, models.TaskStatusPending, p.Tasks[1].Status)
	assert.Equal(t, models.TaskStatusCompleted, p.Tasks[2].Status)
}

func TestErrorCodesRoundTrip(t *testing.T) {
	for _, err := range []error{
		models.ErrAlreadyJoined,
		models.ErrNotJoined,
		models.ErrInvalidProof,
		models.ErrEncryptionServiceUnavailable,
		models.ErrNoEncryptedData,
		models.ErrAuthorizationExpired,
		models.ErrAuthorizationRejected,
	} {
		code, _ := models.ErrorCode(err)
		assert.ErrorIs(t, models.ErrorFromCode(code), err)
	}

	code, status := models.ErrorCode(errors.New("boom"))
	assert.Equal(t, models.CodeNetworkFailure, code)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.ErrorIs(t, models.ErrorFromCode("nope"), models.ErrNetworkOrTransaction)
}
