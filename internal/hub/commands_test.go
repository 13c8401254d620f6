package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Command
	}{
		{"associate", `{"type":"associate_token","data":{"token":"abc"}}`, AssociateToken{Token: "abc"}},
		{"admin auth", `{"type":"admin_auth","data":"s3cret"}`, AdminAuth{Secret: "s3cret"}},
		{"join", `{"type":"join_room","data":"admin"}`, JoinRoom{Room: "admin"}},
		{"leave", `{"type":"leave_room","data":"overlay"}`, LeaveRoom{Room: "overlay"}},
		{"ping without data", `{"type":"ping"}`, Ping{}},
		{"win", `{"type":"win","data":{"playerName":"amy","coneId":"c1"}}`, Win{PlayerName: "amy", ConeID: "c1"}},
		{"fail", `{"type":"fail","data":{"playerName":"bob","coneId":"c2"}}`, Fail{PlayerName: "bob", ConeID: "c2"}},
		{"duel", `{"type":"duel_win","data":{"winner":"a","loser":"b","duelId":"d"}}`, DuelWin{Winner: "a", Loser: "b", DuelID: "d"}},
		{
			"upside down",
			`{"type":"upside_down","data":{"playerName":"c","gameType":"duel","loserName":"d","coneId":"u"}}`,
			UpsideDown{PlayerName: "c", GameType: "duel", LoserName: "d", ConeID: "u"},
		},
		{
			"unbox finished",
			`{"type":"unboxfinished","data":"unbox_8a6e0804-2bd0-4672-b79d-d97027f9071a"}`,
			UnboxFinished{EffectID: "unbox_8a6e0804-2bd0-4672-b79d-d97027f9071a"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := ParseFrame([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, cmd)
		})
	}
}

func TestParseFrame_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		code apperrors.ErrorCode
	}{
		{"not json", `{{`, apperrors.ErrCodeValidation},
		{"unknown type", `{"type":"teleport","data":{}}`, apperrors.ErrCodeUnknownCommand},
		{"missing data", `{"type":"win"}`, apperrors.ErrCodeMissingRequired},
		{"wrong shape", `{"type":"win","data":"amy"}`, apperrors.ErrCodeValidation},
		{"string expected", `{"type":"admin_auth","data":{"secret":"x"}}`, apperrors.ErrCodeValidation},
		{"effect id without prefix", `{"type":"unboxfinished","data":"8a6e0804-2bd0-4672-b79d-d97027f9071a"}`, apperrors.ErrCodeInvalidInput},
		{"effect id not a uuid", `{"type":"unboxfinished","data":"unbox_whatever"}`, apperrors.ErrCodeInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFrame([]byte(tc.raw))
			require.Error(t, err)
			assert.Equal(t, tc.code, apperrors.GetCode(err))
		})
	}
}

func TestIdempotencyKey(t *testing.T) {
	assert.Equal(t, "cone:c1", Win{ConeID: "c1"}.IdempotencyKey())
	assert.Equal(t, Win{ConeID: "c1"}.IdempotencyKey(), Fail{ConeID: "c1"}.IdempotencyKey())
	assert.Equal(t, "duel_win:d1", DuelWin{DuelID: "d1"}.IdempotencyKey())
	assert.Equal(t, "upside_down:u1", UpsideDown{ConeID: "u1"}.IdempotencyKey())

	assert.Empty(t, Win{PlayerName: "amy"}.IdempotencyKey())
	assert.Empty(t, UnboxFinished{EffectID: "unbox_1"}.IdempotencyKey())
}

func TestGameplayValidate(t *testing.T) {
	tests := []struct {
		name string
		cmd  GameplayCommand
		ok   bool
	}{
		{"win", Win{PlayerName: "amy", ConeID: "c1"}, true},
		{"win without player", Win{PlayerName: "  ", ConeID: "c1"}, false},
		{"fail without player", Fail{ConeID: "c1"}, false},
		{"duel", DuelWin{Winner: "a", Loser: "b", DuelID: "d"}, true},
		{"duel without loser", DuelWin{Winner: "a", DuelID: "d"}, false},
		{"upside down without player", UpsideDown{ConeID: "u"}, false},
		{"effect id", UnboxFinished{EffectID: "unbox_8a6e0804-2bd0-4672-b79d-d97027f9071a"}, true},
		{"bare effect id", UnboxFinished{EffectID: "unbox_1"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cmd.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
		})
	}
}
