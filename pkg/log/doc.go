/*
Package log provides structured logging for the engine using zerolog.

A single package-level Logger is configured once via Init and shared by every
subsystem through component-scoped child loggers:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	reducerLog := log.WithComponent("reducer")
	reducerLog.Debug().Str("patch_sha", sha).Int("ops", len(ops)).Msg("folded patch")

Context loggers (WithGraph, WithWriter, WithPatchSha, WithRecordID) attach a
single structured field without forcing every call site to repeat it. Never
log HMAC keys, ed25519 private keys, or other secret material — only public
identifiers (writer ids, patch shas, record ids) belong in log fields.
*/
package log
