package services

import "errors"

var (
	// ErrUserNotFound means the requested username does not exist on GitHub.
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientPermissions means the API answered without the expected
	// account object, which GitHub does when the token cannot see it.
	ErrInsufficientPermissions = errors.New("token lacks permission to read contributions")

	// ErrInvalidPeriod means the period string is not a year or a recognized
	// named range.
	ErrInvalidPeriod = errors.New("invalid period: use YYYY, 'pastyear', 'pastmonth', or 'pastweek'")
)

// ProgressFunc receives human-readable status updates during long
// aggregations. Advisory only; callers may pass nil.
type ProgressFunc func(message string)

func notify(progress ProgressFunc, message string) {
	if progress != nil {
		progress(message)
	}
}
