package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const maxPlayerNameLength = 32

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// command is the closed set of inbound client messages.
type command interface {
	name() string
}

type createSessionCommand struct {
	BankID string `json:"bankId"`
}

type joinSessionCommand struct {
	SessionID  string `json:"sessionId"`
	PlayerName string `json:"playerName"`
}

type startQuizCommand struct{}

type submitAnswerCommand struct {
	AnswerIndex *int `json:"answerIndex"`
}

type endQuizCommand struct{}

func (createSessionCommand) name() string { return "createSession" }
func (joinSessionCommand) name() string   { return "joinSession" }
func (startQuizCommand) name() string     { return "startQuiz" }
func (submitAnswerCommand) name() string  { return "submitAnswer" }
func (endQuizCommand) name() string       { return "endQuiz" }

var (
	errMalformedMessage = errors.New("invalid message")
	errUnsupportedType  = errors.New("unsupported message type")
)

// decodeMessage parses a raw frame into a typed command.
func decodeMessage(data []byte) (command, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errMalformedMessage
	}
	return decodeCommand(msg)
}

// decodeCommand validates an inbound envelope and returns its typed command.
func decodeCommand(msg inboundMessage) (command, error) {
	switch msg.Type {
	case "createSession":
		var cmd createSessionCommand
		if err := unmarshalOptional(msg.Payload, &cmd); err != nil {
			return nil, invalidPayload(msg.Type)
		}
		cmd.BankID = strings.TrimSpace(cmd.BankID)
		return cmd, nil
	case "joinSession":
		var cmd joinSessionCommand
		if err := unmarshalOptional(msg.Payload, &cmd); err != nil {
			return nil, invalidPayload(msg.Type)
		}
		cmd.SessionID = strings.ToUpper(strings.TrimSpace(cmd.SessionID))
		cmd.PlayerName = strings.TrimSpace(cmd.PlayerName)
		if cmd.SessionID == "" || cmd.PlayerName == "" || len([]rune(cmd.PlayerName)) > maxPlayerNameLength {
			return nil, invalidPayload(msg.Type)
		}
		return cmd, nil
	case "startQuiz":
		return startQuizCommand{}, nil
	case "submitAnswer":
		var cmd submitAnswerCommand
		if err := unmarshalOptional(msg.Payload, &cmd); err != nil || cmd.AnswerIndex == nil {
			return nil, invalidPayload(msg.Type)
		}
		return cmd, nil
	case "endQuiz":
		return endQuizCommand{}, nil
	default:
		return nil, errUnsupportedType
	}
}

func unmarshalOptional(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func invalidPayload(typ string) error {
	return fmt.Errorf("invalid %s payload", typ)
}
