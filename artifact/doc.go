// Package artifact stores run artifacts, chiefly transcripts, per session.
//
// Store is the storage contract; InMemoryStore is the process-local backend.
// SaveTranscript and LoadTranscript encode runner transcripts as JSON so a
// session's audit trail survives independently of the conductor that
// produced it.
package artifact
