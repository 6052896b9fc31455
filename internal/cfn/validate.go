package cfn

import (
	"errors"
	"fmt"
	"sort"
)

// Validate checks the template for the mistakes CloudFormation would only
// report at deploy time, such as references to undeclared logical IDs or
// unknown DependsOn targets. Body size is not checked; see NeedsStaging.
func (t *Template) Validate() error {
	var errs []error

	if t.AWSTemplateFormatVersion != FormatVersion {
		errs = append(errs, fmt.Errorf("unsupported format version %q", t.AWSTemplateFormatVersion))
	}
	if len(t.Resources) == 0 {
		errs = append(errs, errors.New("template declares no resources"))
	}

	declared := func(id string) bool {
		if _, ok := t.Resources[id]; ok {
			return true
		}
		_, ok := t.Parameters[id]
		return ok
	}

	for _, id := range sortedKeys(t.Resources) {
		r := t.Resources[id]
		if r == nil {
			errs = append(errs, fmt.Errorf("resource %s is nil", id))
			continue
		}
		if r.Type == "" {
			errs = append(errs, fmt.Errorf("resource %s has no type", id))
		}
		for _, ref := range References(r.Properties) {
			if !declared(ref) {
				errs = append(errs, fmt.Errorf("resource %s references undeclared %s", id, ref))
			}
		}
		for _, dep := range r.DependsOn {
			if _, ok := t.Resources[dep]; !ok {
				errs = append(errs, fmt.Errorf("resource %s depends on undeclared %s", id, dep))
			}
		}
	}

	for _, name := range sortedKeys(t.Outputs) {
		for _, ref := range References(t.Outputs[name].Value) {
			if !declared(ref) {
				errs = append(errs, fmt.Errorf("output %s references undeclared %s", name, ref))
			}
		}
	}

	if len(errs) == 0 {
		if _, err := t.JSON(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cfn: invalid template: %w", errors.Join(errs...))
	}
	return nil
}

// NeedsStaging reports whether body is too large to send inline.
func NeedsStaging(body []byte) bool {
	return len(body) > MaxBodySize
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
