package xref

import (
	stderrors "errors"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
)

// Sentinel errors; resolution failures wrap them so callers can use errors.Is.
var (
	ErrXrefNotFound      = stderrors.New("xref not found")
	ErrCircularReference = stderrors.New("circular reference")
	ErrUIDConflict       = stderrors.New("uid conflict")
)

func notFoundError(uid string) error {
	return errors.XrefError(fmt.Sprintf("uid %q not found", uid)).
		WithCause(fmt.Errorf("%w: %s", ErrXrefNotFound, uid)).
		ForUID(uid).
		Build()
}

func circularError(chain []Frame) error {
	parts := make([]string, 0, len(chain))
	for _, f := range chain {
		parts = append(parts, f.String())
	}
	msg := strings.Join(parts, " -> ")
	return errors.XrefError("circular reference: "+msg).
		WithCause(ErrCircularReference).
		WithContext("chain", parts).
		Build()
}
