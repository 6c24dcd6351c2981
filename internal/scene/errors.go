package scene

import "errors"

var (
	// ErrCategoryExhausted means every mixture count is zero. Fatal at startup.
	ErrCategoryExhausted = errors.New("all scene category counts are zero")
	// ErrMissingAsset means a file or descriptor referenced by a scene is absent.
	ErrMissingAsset = errors.New("missing scene asset")
	// ErrCorruptTrajectory means pose, frame and mask streams disagree.
	ErrCorruptTrajectory = errors.New("corrupt trajectory")
	// ErrWindowTooShort means the trajectory is shorter than the sampling window.
	ErrWindowTooShort = errors.New("trajectory shorter than sampling window")
	// ErrInsufficientFrames means the window cannot supply the clip at the chosen stride.
	ErrInsufficientFrames = errors.New("window cannot supply requested frames")
)

// Skippable reports whether err is a per-sample failure after which the
// caller should draw a different scene instead of aborting.
func Skippable(err error) bool {
	return errors.Is(err, ErrMissingAsset) ||
		errors.Is(err, ErrCorruptTrajectory) ||
		errors.Is(err, ErrWindowTooShort) ||
		errors.Is(err, ErrInsufficientFrames)
}
