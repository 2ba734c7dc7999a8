package domain

import "errors"

var (
	// ErrSuggestionNotFound reports an unknown suggestion ID.
	ErrSuggestionNotFound = errors.New("suggestion not found")

	// ErrInvalidTransition reports a state-machine transition attempted
	// from the wrong state.
	ErrInvalidTransition = errors.New("invalid suggestion transition")

	// ErrExplanationRequired reports an empty user explanation.
	ErrExplanationRequired = errors.New("explanation required")

	// ErrNoScript reports a confirm or refine without a generated script.
	ErrNoScript = errors.New("no script generated yet")

	// ErrScriptBlocked reports a script rejected by the security screen.
	ErrScriptBlocked = errors.New("script contains potentially dangerous operations")
)
