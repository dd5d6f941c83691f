// Package queue persists podcast generation jobs in SQLite and owns every
// status transition they go through.
//
// The Store is the only writer of job status and claim fields. Workers obtain
// work through Claim, which uses an immediate transaction so exactly one
// worker wins a queued job. Complete verifies
// the ready row is readable back before reporting success, and Fail falls
// back to an upsert so a failure signal is never silently dropped.
//
// The Notifier hub carries the "new job available" wake-up signal between
// producers (CLI, HTTP API) and the worker pool without blocking either side.
package queue
