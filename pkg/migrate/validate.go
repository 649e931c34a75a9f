package migrate

import (
	"fmt"
	"regexp"

	"go.uber.org/multierr"
)

var stepNameRe = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// Validate checks that the steps form a single chain: versions start at 1,
// increase by one, each step depends on the one before it, and names are
// unique snake_case identifiers.
func Validate(steps []Step) error {
	if len(steps) == 0 {
		return fmt.Errorf("no migration steps registered")
	}

	var errs error
	names := map[string]int64{}
	var prev int64

	for _, step := range steps {
		label := fmt.Sprintf("%05d_%s", step.Version, step.Name)
		if step.Version != prev+1 {
			errs = multierr.Append(errs, fmt.Errorf("%s: expected version %d", label, prev+1))
		}
		if step.DependsOn != prev {
			errs = multierr.Append(errs, fmt.Errorf("%s: depends on %d, expected %d", label, step.DependsOn, prev))
		}
		if !stepNameRe.MatchString(step.Name) {
			errs = multierr.Append(errs, fmt.Errorf("%s: invalid name %q (expected snake_case)", label, step.Name))
		}
		if other, ok := names[step.Name]; ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: name already used by version %d", label, other))
		}
		if step.Up == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: missing up function", label))
		}
		names[step.Name] = step.Version
		prev = step.Version
	}
	return errs
}
