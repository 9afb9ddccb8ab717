package repository

import (
	"context"
	"errors"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement"
)

var (
	ErrNotFound = errors.New("engagement not found")
)

// Repository persists engagements.
type Repository interface {
	Create(ctx context.Context, e *engagement.Engagement) error
	Get(ctx context.Context, id string) (*engagement.Engagement, error)
	Update(ctx context.Context, e *engagement.Engagement) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f engagement.Filter) ([]*engagement.Engagement, error)
	Count(ctx context.Context, f engagement.Filter) (int64, error)
	// CountByStatus groups the engagements matching f by status.
	CountByStatus(ctx context.Context, f engagement.Filter) (map[string]int64, error)
	// AverageHoursPerWeek averages contract hours over engagements that set them.
	AverageHoursPerWeek(ctx context.Context) (float64, error)
}
