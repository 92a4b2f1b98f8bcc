package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/google/uuid"
	"github.com/user/runlog-engine/internal/domain"
)

// timestampPattern accepts ISO 8601 timestamps of the form
// YYYY-MM-DDTHH:MM:SS with an optional fraction and optional Z suffix.
var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z?$`)

// QueryUseCase validates query inputs, builds scoped LogsQL
// expressions and executes them against the log store. All validation
// happens before any network call.
type QueryUseCase struct {
	store  domain.LogStore
	logger *slog.Logger
}

// NewQueryUseCase creates a new QueryUseCase.
func NewQueryUseCase(store domain.LogStore, logger *slog.Logger) *QueryUseCase {
	return &QueryUseCase{
		store:  store,
		logger: logger.With("component", "query_usecase"),
	}
}

// QueryByStream returns log records from one stream of a run,
// optionally bounded by a time range and a result limit.
func (uc *QueryUseCase) QueryByStream(ctx context.Context, runID, stream, start, end string, limit int) ([]domain.LogRecord, error) {
	s, err := domain.ParseStream(stream)
	if err != nil {
		return nil, err
	}
	if err := validateRunID(runID); err != nil {
		return nil, err
	}
	if err := validateTimeRange(start, end); err != nil {
		return nil, err
	}

	return uc.execute(ctx, domain.Query{
		Stream: s,
		RunID:  runID,
		Start:  start,
		End:    end,
		Limit:  limit,
	})
}

// QueryActions returns action log records for a run, optionally
// bounded by a time range.
func (uc *QueryUseCase) QueryActions(ctx context.Context, runID, start, end string) ([]domain.LogRecord, error) {
	if err := validateRunID(runID); err != nil {
		return nil, err
	}
	if err := validateTimeRange(start, end); err != nil {
		return nil, err
	}

	return uc.execute(ctx, domain.Query{
		Stream: domain.StreamAction,
		RunID:  runID,
		Start:  start,
		End:    end,
	})
}

// QueryEvent looks up a single raw event by id. It returns nil when no
// record matches; a miss is not an error.
func (uc *QueryUseCase) QueryEvent(ctx context.Context, runID, eventID, start, end string) (domain.LogRecord, error) {
	if err := validateRunID(runID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, fmt.Errorf("%w: invalid event_id %q: %v", domain.ErrValidation, eventID, err)
	}
	if err := validateTimeRange(start, end); err != nil {
		return nil, err
	}

	results, err := uc.execute(ctx, domain.Query{
		Stream:  domain.StreamEvents,
		RunID:   runID,
		EventID: eventID,
		Start:   start,
		End:     end,
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (uc *QueryUseCase) execute(ctx context.Context, q domain.Query) ([]domain.LogRecord, error) {
	expression := q.Expression()
	uc.logger.Debug("executing query", "expression", expression)
	return uc.store.Query(ctx, expression)
}

func validateRunID(runID string) error {
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("%w: invalid run_id %q: %v", domain.ErrValidation, runID, err)
	}
	return nil
}

func validateTimeRange(start, end string) error {
	if start != "" && !timestampPattern.MatchString(start) {
		return fmt.Errorf("%w: invalid start timestamp %q", domain.ErrValidation, start)
	}
	if end != "" && !timestampPattern.MatchString(end) {
		return fmt.Errorf("%w: invalid end timestamp %q", domain.ErrValidation, end)
	}
	return nil
}
