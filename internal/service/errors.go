package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "job")
}

type ErrJobAlreadyFinished struct {
	error
}

func NewErrJobAlreadyFinished(id uuid.UUID) *ErrJobAlreadyFinished {
	return &ErrJobAlreadyFinished{fmt.Errorf("job %s already finished", id)}
}

type ErrInvalidJobKind struct {
	error
}

func NewErrInvalidJobKind(kind string) *ErrInvalidJobKind {
	return &ErrInvalidJobKind{fmt.Errorf("unknown job kind %q", kind)}
}
