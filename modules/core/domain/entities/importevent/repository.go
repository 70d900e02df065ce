package importevent

import (
	"context"
)

type Repository interface {
	// Record inserts the event once per event id; a redelivery returns
	// false with no error.
	Record(ctx context.Context, e *ImportEvent) (bool, error)
	List(ctx context.Context, limit int) ([]*ImportEvent, error)
}
