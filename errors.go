package lawreader

import "errors"

var (
	// ErrEmptyQuery is returned when ProcessQuery receives a blank query.
	ErrEmptyQuery = errors.New("lawreader: empty query")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("lawreader: invalid configuration")

	// ErrGraphUnavailable is returned when the graph file is missing or
	// corrupt and the configuration does not permit starting empty.
	ErrGraphUnavailable = errors.New("lawreader: knowledge graph unavailable")
)
