package task

import "regexp"

// CompileNameFilter turns a types.NameFilter's include/exclude regex
// pair into a NameFilterFunc: a name passes when it is empty-include-or-
// matches Include, and does not match Exclude. An invalid regex in
// either field is returned as an error and no filter is built, so a
// backup or restore run never silently includes everything.
func CompileNameFilter(include, exclude string) (NameFilterFunc, error) {
	var includeRe, excludeRe *regexp.Regexp
	var err error

	if include != "" {
		includeRe, err = regexp.Compile(include)
		if err != nil {
			return nil, err
		}
	}
	if exclude != "" {
		excludeRe, err = regexp.Compile(exclude)
		if err != nil {
			return nil, err
		}
	}

	return func(name string) bool {
		if includeRe != nil && !includeRe.MatchString(name) {
			return false
		}
		if excludeRe != nil && excludeRe.MatchString(name) {
			return false
		}
		return true
	}, nil
}
