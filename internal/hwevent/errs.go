package hwevent

import "errors"

// ErrUnknownEvent is returned by Resolve when name matches neither the
// symbolic table nor the raw:<hex> form.
var ErrUnknownEvent = errors.New("hwevent: unknown event name")
