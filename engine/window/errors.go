package window

import "errors"

// ErrNotOpen is returned by Close when there is no native window.
var ErrNotOpen = errors.New("window is not open")
