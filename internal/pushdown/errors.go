package pushdown

import "errors"

// ErrInvalidArgument is returned by Optimize for a nil dialect, a nil
// target or a structurally invalid pipeline. Check with errors.Is.
var ErrInvalidArgument = errors.New("pushdown: invalid argument")

// ErrNoStrategies is returned by a Selector that has nothing to rank.
var ErrNoStrategies = errors.New("pushdown: no strategies registered")
