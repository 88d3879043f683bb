package automation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-automation/internal/schedule"
	"github.com/nerrad567/gray-logic-automation/internal/workflow"
)

// scenePrefix starts every generated scene ID.
const scenePrefix = "scene-"

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateAction checks the action's fields and node structure.
// It does not check that referenced devices or actions exist.
func ValidateAction(a *Action) error {
	if a == nil {
		return ErrInvalidAction
	}
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAction, describe(err))
	}
	return nil
}

// ValidateScene checks the scene's persisted fields.
func ValidateScene(s *Scene) error {
	if s == nil {
		return ErrInvalidScene
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidScene, describe(err))
	}
	return nil
}

// CheckAction returns every problem an editor should warn about. The
// registry accepts actions with these problems; wiring or walking them
// logs and skips the broken part.
func CheckAction(a *Action) []error {
	if err := ValidateAction(a); err != nil {
		return []error{err}
	}

	errs := a.Workflow.Check()
	switch a.TriggerType {
	case workflow.TriggerDevice:
		dt, ok := a.Workflow.DeviceTrigger()
		switch {
		case !ok:
			errs = append(errs, errors.New("device trigger: trigger node has no device config"))
		case dt.DeviceID == "" || dt.Event == "":
			errs = append(errs, errors.New("device trigger: device id and event are required"))
		}
	case workflow.TriggerTime:
		tt, ok := a.Workflow.TimeTrigger()
		if !ok {
			errs = append(errs, errors.New("time trigger: trigger node has no time config"))
			break
		}
		if _, err := schedule.Parse(tt.Frequency, tt.Time, tt.Weekdays); err != nil {
			errs = append(errs, fmt.Errorf("time trigger: %w", err))
		}
	}
	return errs
}

// describe flattens validator errors into "field: tag" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// GenerateID creates a new UUID for an action.
func GenerateID() string {
	return uuid.New().String()
}

// GenerateSceneID creates a new scene ID.
func GenerateSceneID() string {
	return scenePrefix + uuid.New().String()
}
