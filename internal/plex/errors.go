package plex

import "fmt"

// Error taxonomy for remote calls. The coordinator classifies these into
// transient (retried with backoff) and permanent (reported, not retried);
// the sync engine uses them to decide whether a failure aborts the run or
// only the current branch.

// AuthError means the bearer credential is invalid or expired. Permanent;
// surfaced as "reconnect your account".
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("plex: authentication failed (status %d)", e.Status)
}

// NetworkError wraps a connection failure or timeout. Transient.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("plex: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError means the remote key no longer exists. Permanent for that
// sub-tree only.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plex: remote key %q not found", e.Key)
}

// ProtocolError means the response body was unparseable or had an
// unexpected shape. Permanent for the current item or page.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("plex: %s: malformed response: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ConnectionError means no candidate URL for a server was reachable. The
// caller marks the server unreachable and aborts syncs against it; other
// servers are unaffected.
type ConnectionError struct {
	ServerName string
	LastErr    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("plex: no reachable connection for server %q: %v", e.ServerName, e.LastErr)
}

func (e *ConnectionError) Unwrap() error { return e.LastErr }
