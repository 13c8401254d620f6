package hub

import (
	"encoding/json"
	"fmt"

	"github.com/coneflip/overlay-server-go/internal/dedup"
	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/model"
	"github.com/coneflip/overlay-server-go/internal/util"
)

// coneKind namespaces win and fail keys together: a cone flip has one
// outcome, so a second report for the same cone is a duplicate whatever its
// result.
const coneKind = "cone"

// Frame is the wire envelope in both directions.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is an outbound frame before encoding.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Command is the closed set of inbound operations. Every implementation is
// declared in this file and handled by Hub.Dispatch.
type Command interface {
	Name() string
}

// GameplayCommand requires a bound credential. IdempotencyKey is empty for
// commands that are not deduplicated. Validate runs before the key is
// claimed, so a malformed event never uses up its id.
type GameplayCommand interface {
	Command
	IdempotencyKey() string
	Validate() error
}

type AssociateToken struct {
	Token string `json:"token"`
}

type AdminAuth struct {
	Secret string
}

type JoinRoom struct {
	Room string
}

type LeaveRoom struct {
	Room string
}

type Ping struct{}

type Win struct {
	PlayerName string `json:"playerName"`
	ConeID     string `json:"coneId,omitempty"`
}

type Fail struct {
	PlayerName string `json:"playerName"`
	ConeID     string `json:"coneId,omitempty"`
}

type DuelWin struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
	DuelID string `json:"duelId"`
}

type UpsideDown struct {
	PlayerName string `json:"playerName"`
	GameType   string `json:"gameType"`
	LoserName  string `json:"loserName,omitempty"`
	ConeID     string `json:"coneId"`
}

type UnboxFinished struct {
	EffectID string
}

func (AssociateToken) Name() string { return "associate_token" }
func (AdminAuth) Name() string      { return "admin_auth" }
func (JoinRoom) Name() string       { return "join_room" }
func (LeaveRoom) Name() string      { return "leave_room" }
func (Ping) Name() string           { return "ping" }
func (Win) Name() string            { return "win" }
func (Fail) Name() string           { return "fail" }
func (DuelWin) Name() string        { return "duel_win" }
func (UpsideDown) Name() string     { return "upside_down" }
func (UnboxFinished) Name() string  { return "unboxfinished" }

func (c Win) IdempotencyKey() string        { return dedup.Key(coneKind, c.ConeID) }
func (c Fail) IdempotencyKey() string       { return dedup.Key(coneKind, c.ConeID) }
func (c DuelWin) IdempotencyKey() string    { return dedup.Key(c.Name(), c.DuelID) }
func (c UpsideDown) IdempotencyKey() string { return dedup.Key(c.Name(), c.ConeID) }
func (UnboxFinished) IdempotencyKey() string {
	return ""
}

func (c Win) Validate() error  { return validPlayer("playerName", c.PlayerName) }
func (c Fail) Validate() error { return validPlayer("playerName", c.PlayerName) }

func (c DuelWin) Validate() error {
	if err := validPlayer("winner", c.Winner); err != nil {
		return err
	}
	return validPlayer("loser", c.Loser)
}

func (c UpsideDown) Validate() error { return validPlayer("playerName", c.PlayerName) }

func (c UnboxFinished) Validate() error {
	if !util.HasIDPrefix(c.EffectID, model.EffectIDPrefix) {
		return apperrors.InvalidInput("effectId", "unrecognized format")
	}
	return nil
}

func validPlayer(field, name string) error {
	if _, ok := util.NormalizePlayerName(name); !ok {
		return apperrors.InvalidInput(field, "empty or too long")
	}
	return nil
}

// ParseFrame decodes one inbound frame into a Command.
func ParseFrame(raw []byte) (Command, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, apperrors.ValidationError("malformed frame")
	}

	switch f.Type {
	case "associate_token":
		var c AssociateToken
		err := decodeObject(f, &c)
		return c, err
	case "admin_auth":
		s, err := decodeString(f)
		return AdminAuth{Secret: s}, err
	case "join_room":
		s, err := decodeString(f)
		return JoinRoom{Room: s}, err
	case "leave_room":
		s, err := decodeString(f)
		return LeaveRoom{Room: s}, err
	case "ping":
		return Ping{}, nil
	case "win":
		var c Win
		err := decodeObject(f, &c)
		return c, err
	case "fail":
		var c Fail
		err := decodeObject(f, &c)
		return c, err
	case "duel_win":
		var c DuelWin
		err := decodeObject(f, &c)
		return c, err
	case "upside_down":
		var c UpsideDown
		err := decodeObject(f, &c)
		return c, err
	case "unboxfinished":
		s, err := decodeString(f)
		if err != nil {
			return nil, err
		}
		c := UnboxFinished{EffectID: s}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, apperrors.UnknownCommand(f.Type)
	}
}

func decodeObject(f Frame, dst any) error {
	if len(f.Data) == 0 {
		return apperrors.MissingRequired("data")
	}
	if err := json.Unmarshal(f.Data, dst); err != nil {
		return apperrors.ValidationError(fmt.Sprintf("invalid %s payload", f.Type))
	}
	return nil
}

func decodeString(f Frame) (string, error) {
	var s string
	if err := decodeObject(f, &s); err != nil {
		return "", err
	}
	return s, nil
}
