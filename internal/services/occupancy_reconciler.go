package services

import (
	"context"

	"github.com/casaflow/booking-service/internal/repositories"
	"github.com/casaflow/booking-service/internal/utils"
)

// OccupancyReconciler is the cron job that recomputes the cached
// occupied flags from the occupying bookings. The flags are normally
// written only inside booking transactions; this corrects any drift.
type OccupancyReconciler struct {
	bookings repositories.BookingRepository
}

func NewOccupancyReconciler(bookings repositories.BookingRepository) *OccupancyReconciler {
	return &OccupancyReconciler{bookings: bookings}
}

func (r *OccupancyReconciler) Run(ctx context.Context) error {
	n, err := r.bookings.ReconcileOccupancy(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		utils.Logger.WithField("corrected", n).Warn("occupancy flags drifted and were reconciled")
	}
	return nil
}
