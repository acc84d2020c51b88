package handler

const (
	// BaseLayout is the default path for layout templates.
	BaseLayout = "layouts/base"

	// ErrorTemplate renders a failure that has no page of its own.
	ErrorTemplate = "error"

	// RouterRootPath is the root path of a route group.
	RouterRootPath = "/"

	// ErrNilACHFatalLogMsg is used if app, cfg or hub is nil.
	ErrNilACHFatalLogMsg = "app, cfg or hub is nil"
)
