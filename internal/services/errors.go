package services

import "fmt"

// Error codes for the request-fatal conditions. Each maps to its own
// user-facing message; they are deliberately never collapsed into one
// generic denial.
const (
    CodeProjectUnresolvable = "project_unresolvable"
    CodeAccessDenied        = "access_denied"
    CodeProjectDisabled     = "project_disabled"
    CodeUpstreamFetchError  = "upstream_fetch_error"
)

const (
    msgProjectUnresolvable = "Unable to determine the project for this issue. Please try refreshing the page or contact your administrator if the problem persists."
    msgAccessDenied        = "This project is not authorized to use the Issue Change Log app. Please contact your Jira administrator to grant access for this project."
    msgProjectDisabled     = "The Issue Change Log app has been disabled for this project. Please contact your project administrator to enable it."
)

// FeedError is the typed failure of a feed request. Public entry points
// fold it into the response envelope instead of returning it to callers.
type FeedError struct {
    Code    string
    Message string
}

func (e *FeedError) Error() string {
    return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func feedError(code, message string) *FeedError {
    return &FeedError{Code: code, Message: message}
}
