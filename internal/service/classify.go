package service

import (
	"context"

	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// classifyEmployee resolves an employee's employment profile through the
// directory and placement services. Lookup failures degrade to the
// weekly/unknown default so callers are never blocked by an upstream outage.
func classifyEmployee(ctx context.Context, directory domain.DirectoryClient, placements domain.PlacementClient, employeeID string) domain.Classification {
	email, err := directory.GetEmployeeEmail(ctx, employeeID)
	if err != nil || email == "" {
		log.Warn().Err(err).Str("employee_id", employeeID).
			Msg("could not resolve employee email, using default classification")
		return domain.DefaultClassification()
	}
	list, err := placements.GetPlacementsByEmail(ctx, email)
	if err != nil {
		log.Warn().Err(err).Str("employee_id", employeeID).
			Msg("placement lookup failed, using default classification")
		return domain.DefaultClassification()
	}
	return domain.ClassificationFromPlacements(list)
}
