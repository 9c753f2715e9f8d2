package types

import "fmt"

// StorageError reports an I/O, constraint, or connectivity failure from the
// storage engine. errors.Is(err, ErrStorage) holds for every StorageError.
type StorageError struct {
	Op  string // Operation that failed, e.g. "insert product".
	Err error  // Underlying engine error.
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes StorageError match the ErrStorage sentinel.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
