// Package vcserr defines the error taxonomy shared by the repository core.
// Callers classify failures by Kind rather than matching message strings.
package vcserr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotInitialized     Kind = "NOT_INITIALIZED"
	KindAlreadyInitialized Kind = "ALREADY_INITIALIZED"
	KindFileNotFound       Kind = "FILE_NOT_FOUND"
	KindCommitNotFound     Kind = "COMMIT_NOT_FOUND"
	KindBranchNotFound     Kind = "BRANCH_NOT_FOUND"
	KindBranchExists       Kind = "BRANCH_EXISTS"
	KindEmptySnapshot      Kind = "EMPTY_SNAPSHOT"
	KindIntegrity          Kind = "INTEGRITY"
	KindLocked             Kind = "LOCKED"
	KindTargetExists       Kind = "TARGET_EXISTS"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func NotInitialized(root string) *Error {
	return &Error{
		Kind:    KindNotInitialized,
		Message: fmt.Sprintf("no repository found at %s, run init first", root),
	}
}

func AlreadyInitialized(root string) *Error {
	return &Error{
		Kind:    KindAlreadyInitialized,
		Message: fmt.Sprintf("repository already initialized at %s", root),
	}
}

func FileNotFound(path string) *Error {
	return &Error{
		Kind:    KindFileNotFound,
		Message: fmt.Sprintf("file not found: %s", path),
	}
}

func CommitNotFound(id string) *Error {
	return &Error{
		Kind:    KindCommitNotFound,
		Message: fmt.Sprintf("commit not found: %s", id),
	}
}

func BranchNotFound(name string) *Error {
	return &Error{
		Kind:    KindBranchNotFound,
		Message: fmt.Sprintf("branch not found: %s", name),
	}
}

func BranchExists(name string) *Error {
	return &Error{
		Kind:    KindBranchExists,
		Message: fmt.Sprintf("branch already exists: %s", name),
	}
}

func EmptySnapshot() *Error {
	return &Error{
		Kind:    KindEmptySnapshot,
		Message: "nothing to commit",
	}
}

func Integrity(message string, err error) *Error {
	return &Error{
		Kind:    KindIntegrity,
		Message: message,
		Err:     err,
	}
}

func Locked(path string) *Error {
	return &Error{
		Kind:    KindLocked,
		Message: fmt.Sprintf("repository is locked by another process (%s)", path),
	}
}

func TargetExists(path string) *Error {
	return &Error{
		Kind:    KindTargetExists,
		Message: fmt.Sprintf("target path already exists: %s", path),
	}
}
