package engine

import "errors"

var (
	// ErrStoryNotFound indicates the story id is not in the session registry.
	ErrStoryNotFound = errors.New("story not found")

	// ErrUnknownChoicePoint indicates a choice point id absent from the
	// story's graph. Always a caller bug (stale client state), never
	// transient; not retried.
	ErrUnknownChoicePoint = errors.New("unknown choice point")

	// ErrUnknownOption indicates an option id absent from the addressed
	// choice point. Same caller-bug character as ErrUnknownChoicePoint.
	ErrUnknownOption = errors.New("unknown option")
)
