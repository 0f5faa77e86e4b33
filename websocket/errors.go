package websocket

import (
	"errors"
	"fmt"
)

func errInvalidPayload(err error) error {
	return fmt.Errorf("invalid payload: %w", err)
}

func errMissing(msg string) error {
	return errors.New(msg)
}
