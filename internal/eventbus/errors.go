package eventbus

import "fmt"

// DeliveryError reports a failed publish or subscribe attach. It is
// non-fatal to the triggering request; callers log it and move on.
type DeliveryError struct {
	Topic string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("eventbus: deliver to %s: %v", e.Topic, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
