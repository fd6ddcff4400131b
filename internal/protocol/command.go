package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lawnchairsociety/tradeguard/server/internal/geometry"
)

// CommandKind identifies a parsed client command.
type CommandKind int

const (
	CmdJoin CommandKind = iota
	CmdReady
	CmdMove
	CmdAttack
	CmdPlayerAnim
	CmdUseItem
	CmdChat
	CmdBuy
	CmdSell
	CmdMerchantMoveRequest
	CmdExit
)

// Parse failures. The session logs these and drops the offending line; a
// malformed command never terminates the connection.
var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Command is one fully parsed client intent.
type Command struct {
	Kind CommandKind

	Username string // CmdJoin
	Trigger  string // CmdPlayerAnim
	Text     string // CmdChat
	Item     string // CmdUseItem, CmdBuy, CmdSell
	EnemyID  int    // CmdAttack

	Position geometry.Vector3 // CmdMove
	Rotation geometry.Vector3 // CmdMove
}

// ParseCommand parses one complete line (without its trailing newline) into a
// typed Command. Lines are COMMAND or COMMAND:PAYLOAD with ',' separated
// payload fields.
func ParseCommand(line string) (Command, error) {
	name, payload, _ := strings.Cut(line, ":")

	switch name {
	case "JOIN":
		username := sanitizeName(payload)
		if username == "" {
			return Command{}, fmt.Errorf("%w: JOIN requires a username", ErrMalformedPayload)
		}
		return Command{Kind: CmdJoin, Username: username}, nil

	case "READY":
		return Command{Kind: CmdReady}, nil

	case "MOVE":
		fields := strings.Split(payload, ",")
		if len(fields) != 6 {
			return Command{}, fmt.Errorf("%w: MOVE wants 6 fields, got %d", ErrMalformedPayload, len(fields))
		}
		values := make([]float64, 6)
		for i, field := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return Command{}, fmt.Errorf("%w: MOVE field %d: %v", ErrMalformedPayload, i, err)
			}
			values[i] = v
		}
		return Command{
			Kind:     CmdMove,
			Position: geometry.Vector3{X: values[0], Y: values[1], Z: values[2]},
			Rotation: geometry.Vector3{X: values[3], Y: values[4], Z: values[5]},
		}, nil

	case "ATTACK":
		id, err := strconv.Atoi(strings.TrimSpace(payload))
		if err != nil {
			return Command{}, fmt.Errorf("%w: ATTACK enemy id: %v", ErrMalformedPayload, err)
		}
		return Command{Kind: CmdAttack, EnemyID: id}, nil

	case "PLAYER_ANIM":
		if payload == "" {
			return Command{}, fmt.Errorf("%w: PLAYER_ANIM requires a trigger", ErrMalformedPayload)
		}
		return Command{Kind: CmdPlayerAnim, Trigger: payload}, nil

	case "USE_ITEM":
		if payload == "" {
			return Command{}, fmt.Errorf("%w: USE_ITEM requires an item type", ErrMalformedPayload)
		}
		return Command{Kind: CmdUseItem, Item: payload}, nil

	case "CHAT":
		return Command{Kind: CmdChat, Text: payload}, nil

	case "BUY":
		if payload == "" {
			return Command{}, fmt.Errorf("%w: BUY requires an item type", ErrMalformedPayload)
		}
		return Command{Kind: CmdBuy, Item: payload}, nil

	case "SELL":
		if payload == "" {
			return Command{}, fmt.Errorf("%w: SELL requires an item type", ErrMalformedPayload)
		}
		return Command{Kind: CmdSell, Item: payload}, nil

	case "MERCHANT_MOVE_REQUEST":
		return Command{Kind: CmdMerchantMoveRequest}, nil

	case "EXIT":
		return Command{Kind: CmdExit}, nil

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

// sanitizeName strips protocol delimiters and surrounding whitespace from a
// client-supplied display name so it can't break message framing.
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', ',', '\r', '\n':
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}
