package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// TimetableSettings are the engine defaults shared by the recommendation and planner services.
type TimetableSettings struct {
	Schedule timetable.BellSchedule
	MaxNodes int
	TopN     int
	Parallel bool
	Weights  timetable.Weights
}

// DefaultTimetableSettings mirrors the configuration defaults.
func DefaultTimetableSettings() TimetableSettings {
	return TimetableSettings{
		Schedule: timetable.DefaultBellSchedule(),
		MaxNodes: timetable.DefaultMaxNodes,
		TopN:     10,
		Weights:  timetable.DefaultWeights(),
	}
}

// NewTimetableSettings validates the engine configuration.
func NewTimetableSettings(cfg config.TimetableConfig) (TimetableSettings, error) {
	settings := DefaultTimetableSettings()
	if cfg.MaxNodes > 0 {
		settings.MaxNodes = cfg.MaxNodes
	}
	if cfg.TopN > 0 {
		settings.TopN = cfg.TopN
	}
	settings.Parallel = cfg.ParallelSearch

	weights := timetable.Weights{PassRate: cfg.PassRateWeight, Evaluation: cfg.EvaluationWeight}
	if err := weights.Validate(); err != nil {
		return TimetableSettings{}, fmt.Errorf("timetable weights: %w", err)
	}
	settings.Weights = weights

	if raw := strings.TrimSpace(cfg.BellSchedule); raw != "" || cfg.HoursPerBlock > 0 {
		schedule, err := bellScheduleFrom(raw, cfg.HoursPerBlock)
		if err != nil {
			return TimetableSettings{}, fmt.Errorf("timetable bell schedule: %w", err)
		}
		settings.Schedule = schedule
	}
	return settings, nil
}

func bellScheduleFrom(raw string, hoursPerBlock int) (timetable.BellSchedule, error) {
	if raw == "" {
		return timetable.NewBellSchedule(timetable.DefaultBellSchedule().Slots(), hoursPerBlock)
	}
	return timetable.ParseBellSchedule(raw, hoursPerBlock)
}

// mapTimetableError converts engine errors into typed API errors.
func mapTimetableError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	var conflictErr *timetable.ConflictError
	switch {
	case errors.As(err, &conflictErr):
		details := lo.Map(conflictErr.Conflicts, func(c timetable.OwnedConflict, _ int) string { return c.String() })
		wrapped := appErrors.Wrap(err, appErrors.ErrConsistencyViolation.Code, appErrors.ErrConsistencyViolation.Status, appErrors.ErrConsistencyViolation.Message)
		return appErrors.WithDetails(wrapped, map[string]any{"conflicts": details})
	case errors.Is(err, timetable.ErrInvalidTimeBlock):
		return appErrors.Wrap(err, appErrors.ErrInvalidTimeBlock.Code, appErrors.ErrInvalidTimeBlock.Status, err.Error())
	case errors.Is(err, timetable.ErrFractionalHours):
		return appErrors.Wrap(err, appErrors.ErrFractionalHours.Code, appErrors.ErrFractionalHours.Status, err.Error())
	case errors.Is(err, timetable.ErrInvalidWeights):
		return appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, err.Error())
	case errors.Is(err, timetable.ErrUnavailableBlock):
		return appErrors.Wrap(err, appErrors.ErrUnavailableBlock.Code, appErrors.ErrUnavailableBlock.Status, appErrors.ErrUnavailableBlock.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable computation failed")
	}
}
