package notify

import "github.com/example/ride-notify/internal/models"

// passengerCategories maps the status a ride moved into to what the
// passenger is told. Anything not listed is reported as CategorySystem.
var passengerCategories = map[models.RideStatus]models.Category{
	models.StatusMatched:              models.CategoryDriverMatched,
	models.StatusDriverEnRoute:        models.CategoryDriverEnRoute,
	models.StatusDriverArrived:        models.CategoryDriverArrived,
	models.StatusInProgress:           models.CategoryRideStarted,
	models.StatusCompleted:            models.CategoryRideCompleted,
	models.StatusCancelledByPassenger: models.CategoryRideCancelled,
	models.StatusCancelledByDriver:    models.CategoryRideCancelled,
}

// lifecycle lists the forward edges of the ride state machine. Cancellation is
// reachable from every non-terminal state and is handled separately.
var lifecycle = map[models.RideStatus]models.RideStatus{
	models.StatusRequested:     models.StatusMatched,
	models.StatusMatched:       models.StatusDriverEnRoute,
	models.StatusDriverEnRoute: models.StatusDriverArrived,
	models.StatusDriverArrived: models.StatusInProgress,
	models.StatusInProgress:    models.StatusCompleted,
}

// CategoryFor returns the passenger category for a status, falling back to
// CategorySystem for values this build does not know.
func CategoryFor(status models.RideStatus) models.Category {
	if c, ok := passengerCategories[status]; ok {
		return c
	}
	return models.CategorySystem
}

// Transition reports the category to notify for a status change. The second
// result is false when the status did not change, in which case nothing must
// be sent.
func Transition(before, after models.RideStatus) (models.Category, bool) {
	if before == after {
		return "", false
	}
	return CategoryFor(after), true
}

// ValidTransition reports whether from→to is an edge of the ride lifecycle.
// Unknown statuses are never valid, but callers only log them.
func ValidTransition(from, to models.RideStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == models.StatusCancelledByPassenger || to == models.StatusCancelledByDriver {
		_, known := lifecycle[from]
		return known
	}
	next, ok := lifecycle[from]
	return ok && next == to
}
