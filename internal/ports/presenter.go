package ports

// Presenter renders the user-visible side effects of tracking.
// Implementations must be safe for concurrent use.
type Presenter interface {
	// RenderIndicator shows or refreshes the persistent indicator.
	RenderIndicator(text string)

	// ClearIndicator removes the persistent indicator.
	ClearIndicator()

	// OpenSettings takes the user to where location access can be granted.
	OpenSettings()
}
