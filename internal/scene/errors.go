package scene

import "errors"

var (
	ErrUnknownPendulum   = errors.New("scene: unknown pendulum id")
	ErrDuplicatePendulum = errors.New("scene: duplicate pendulum id")
)
