// Package repositories implements SQLite persistence for the recommendation archive.
//
// Every recommendation surfaced in a chat session is archived so past sessions
// can be reviewed and replayed from the command line.
//
// Key Implementations:
//   - [SessionRepository] : chat session records keyed by session ID
//   - [RecommendationRepository] : archived recommendation entries per session
//
// Schema creation is idempotent; [InitSchema] runs on every startup.
package repositories
