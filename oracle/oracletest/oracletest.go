// Package oracletest provides oracle doubles for tests.
package oracletest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/oracle"
)

type (
	// Scripted answers each task kind with a fixed raw JSON response. Kinds
	// without a response are unavailable; a response that does not decode
	// into out is malformed, the way a model's broken JSON would be.
	Scripted struct {
		mu        sync.Mutex
		responses map[oracle.TaskKind]string
		calls     map[oracle.TaskKind]int
		payloads  map[oracle.TaskKind][]any
	}

	// Func adapts a function to oracle.Oracle.
	Func func(ctx context.Context, kind oracle.TaskKind, payload any, out any) error
)

var (
	_ oracle.Oracle = (*Scripted)(nil)
	_ oracle.Oracle = Func(nil)
)

func NewScripted(responses map[oracle.TaskKind]string) *Scripted {
	if responses == nil {
		responses = map[oracle.TaskKind]string{}
	}
	return &Scripted{
		responses: responses,
		calls:     make(map[oracle.TaskKind]int),
		payloads:  make(map[oracle.TaskKind][]any),
	}
}

func (s *Scripted) Set(kind oracle.TaskKind, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[kind] = raw
}

func (s *Scripted) Invoke(ctx context.Context, kind oracle.TaskKind, payload any, out any) error {
	s.mu.Lock()
	s.calls[kind]++
	s.payloads[kind] = append(s.payloads[kind], payload)
	raw, ok := s.responses[kind]
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.Mark(err, errors.ErrOracleUnavailable)
	}
	if !ok {
		return errors.Wrapf(errors.ErrOracleUnavailable, "no scripted response for %s", kind)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrOracleMalformed), "scripted %s response", kind)
	}
	return nil
}

func (s *Scripted) Calls(kind oracle.TaskKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

// Payloads returns what each call of kind was invoked with, oldest first.
func (s *Scripted) Payloads(kind oracle.TaskKind) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.payloads[kind]...)
}

func (f Func) Invoke(ctx context.Context, kind oracle.TaskKind, payload any, out any) error {
	return f(ctx, kind, payload, out)
}

// Unavailable is an oracle that never answers.
func Unavailable() oracle.Oracle {
	return Func(func(context.Context, oracle.TaskKind, any, any) error {
		return errors.Wrapf(errors.ErrOracleUnavailable, "oracle is offline")
	})
}

// Malformed is an oracle whose every answer fails to decode.
func Malformed() oracle.Oracle {
	return Func(func(context.Context, oracle.TaskKind, any, any) error {
		return errors.Wrapf(errors.ErrOracleMalformed, "unexpected end of JSON input")
	})
}
