package command

// FeatureGate reports whether an optional pipeline step is on for a user.
// Backed by the rollout flags in config; handlers treat a nil gate as
// everything enabled, so tests and minimal deployments need no wiring.
type FeatureGate interface {
	// QuestsEnabled gates weekly quest generation and progress.
	QuestsEnabled(userID string) bool

	// CalendarAutocompleteEnabled gates session-driven event completion.
	CalendarAutocompleteEnabled(userID string) bool

	// PresenceTrackingEnabled gates the heartbeat write verbs.
	PresenceTrackingEnabled(userID string) bool
}
