// Package jobs tracks asynchronous jobs and batches per tenant.
//
// # State Machine
//
//	pending    -> processing -> completed | failed
//	pending    -> deleting   -> completed | failed
//
// completed and failed are terminal. Any update to a terminal job returns
// ErrTerminalState and leaves the stored record untouched. An update that
// keeps an active status (processing -> processing) is allowed and only
// refreshes the record.
//
// # Subject Guard
//
// A job with a SubjectID holds a claim on (tenant, subject) while it is
// active. Creating a second active job for the same subject returns a
// *DuplicateOperationError naming the job that holds the claim. The claim is
// released when the job reaches a terminal state or is deleted, and a claim
// whose holder is gone or terminal is treated as stale and taken over.
//
// # Expiry
//
// Backends that support expiry keep active jobs for TTL.Active and terminal
// jobs for TTL.Terminal. Every write re-applies the TTL for the job's new
// status, so a job that finishes moves into the longer bucket.
//
// # Batches
//
// A batch stores only its ordered job ids. Progress is recomputed from the
// member jobs on every read and never cached.
//
// # Concurrency
//
// UpdateJob is a read-modify-write. Two writers updating the same job at
// once race, and the last write wins. Callers that need ordering must
// serialize updates to a job themselves, which a single worker per job does
// naturally.
package jobs
