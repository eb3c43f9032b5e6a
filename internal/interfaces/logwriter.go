package interfaces

// LogWriter is a category-tagged diagnostic sink. Implementations must not
// fail the caller.
type LogWriter interface {
	Write(category, message string)
}
