package authorization

import (
	"context"
	"errors"

	"github.com/kiranalabs/kirana/internal/actor"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	Authorize(ctx context.Context, act actor.Actor, object string, action string) error
}
