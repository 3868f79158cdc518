package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidIdentifier = errors.New("invalid task identifier (expected uuid or positive id)")
	ErrUnaddressable     = errors.New("task has no uuid and its id is not usable in its current state")
)

type IdentifierKind int

const (
	IdentifierNone IdentifierKind = iota
	IdentifierNumeric
	IdentifierStable
)

// Identifier addresses a task either by its transient working-set id or by its
// stable uuid.
type Identifier struct {
	kind IdentifierKind
	n    int
	uuid string
}

func Numeric(n int) Identifier { return Identifier{kind: IdentifierNumeric, n: n} }

func Stable(u string) Identifier {
	return Identifier{kind: IdentifierStable, uuid: strings.ToLower(strings.TrimSpace(u))}
}

func (i Identifier) Kind() IdentifierKind { return i.kind }
func (i Identifier) IsZero() bool         { return i.kind == IdentifierNone }

func (i Identifier) Number() (int, bool) {
	return i.n, i.kind == IdentifierNumeric
}

func (i Identifier) UUID() (string, bool) {
	return i.uuid, i.kind == IdentifierStable
}

// Arg renders the identifier as a Taskwarrior filter argument.
func (i Identifier) Arg() string {
	switch i.kind {
	case IdentifierNumeric:
		return strconv.Itoa(i.n)
	case IdentifierStable:
		return "uuid:" + i.uuid
	default:
		return ""
	}
}

func (i Identifier) String() string {
	switch i.kind {
	case IdentifierNumeric:
		return strconv.Itoa(i.n)
	case IdentifierStable:
		return i.uuid
	default:
		return ""
	}
}

func (i Identifier) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// Matches reports whether t is the task addressed by i.
func (i Identifier) Matches(t Task) bool {
	switch i.kind {
	case IdentifierNumeric:
		return i.n > 0 && t.ID == i.n
	case IdentifierStable:
		return strings.EqualFold(strings.TrimSpace(t.UUID), i.uuid)
	default:
		return false
	}
}

// ParseIdentifier accepts a uuid (optionally prefixed with "uuid:") or a positive
// integer id.
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "uuid:")
	if s == "" {
		return Identifier{}, ErrInvalidIdentifier
	}
	if u, err := uuid.Parse(s); err == nil {
		return Stable(u.String()), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return Identifier{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return Numeric(n), nil
}

// ResolveIdentifier picks the identifier mutations should use for t. The uuid wins
// whenever it is known; the numeric id is only trusted for a pending task, since
// completed and blocked tasks may have lost or changed their working-set id.
func ResolveIdentifier(t Task, state ViewState) (Identifier, error) {
	if u := strings.TrimSpace(t.UUID); u != "" {
		return Stable(u), nil
	}
	if state == ViewPending && t.ID > 0 {
		return Numeric(t.ID), nil
	}
	return Identifier{}, ErrUnaddressable
}
