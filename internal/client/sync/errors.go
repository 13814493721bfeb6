package sync

import "errors"

var (
	// ErrPolicyRequired indicates that the engine was built without a conflict policy
	ErrPolicyRequired = errors.New("conflict policy must be set explicitly")

	// ErrSyncInProgress indicates that the request was folded into the running pass
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrTransientSyncFailure classifies network, timeout and server-side failures.
	// The mutation stays pending and is retried on the next pass.
	ErrTransientSyncFailure = errors.New("transient sync failure")

	// ErrSyncConflict classifies mutations whose preconditions no longer hold on the server
	ErrSyncConflict = errors.New("sync conflict")

	// ErrRemoteRejected classifies mutations the server refused permanently
	ErrRemoteRejected = errors.New("remote rejected mutation")
)
