package ui

// Default component dimensions.
const (
	// DefaultWidth is the assumed terminal width before a resize message arrives.
	DefaultWidth = 80

	// DefaultProgressBarWidth is the default width for progress bars.
	DefaultProgressBarWidth = 40

	// RecentStepsShown is how many finished steps the progress view lists.
	RecentStepsShown = 5
)
