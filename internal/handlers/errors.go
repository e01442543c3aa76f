package handlers

import (
	"fmt"
	"strings"

	"github.com/ChromeUniverse/luccachat/internal/protocol"
)

// ValidationError rejects a command because of user input. It is reported
// back to the actor; Fields is keyed by wire field name.
type ValidationError struct {
	Msg    string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Msg
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return e.Msg + " (" + strings.Join(parts, ", ") + ")"
}

func invalid(fields map[string]string) error {
	return &ValidationError{Msg: "invalid fields", Fields: fields}
}

func rejected(msg string) error {
	return &ValidationError{Msg: msg}
}

// AuthorizationError is a protocol violation: the actor tried something the
// membership or ownership rules forbid. Nothing is applied or replied.
type AuthorizationError struct {
	Actor  string
	Kind   protocol.Kind
	Entity string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s by %s on %s: %s", e.Kind, e.Actor, e.Entity, e.Reason)
}

func deny(actor string, kind protocol.Kind, entity, reason string) error {
	return &AuthorizationError{Actor: actor, Kind: kind, Entity: entity, Reason: reason}
}
