package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrSelfConversation  = fmt.Errorf("a conversation needs two distinct participants")
	ErrEmptyParticipant  = fmt.Errorf("participant identifier is empty")
	ErrEmptyMessage      = fmt.Errorf("message text is empty")
	ErrUnknownSender     = fmt.Errorf("sender is not a participant of this conversation")
	ErrNotFound          = fmt.Errorf("document not found")
	ErrIndexRequired     = fmt.Errorf("ordered query requires a declared index")
	ErrStoreClosed       = fmt.Errorf("document store is closed")
	ErrInvalidCoordinate = fmt.Errorf("coordinate out of range")
)
