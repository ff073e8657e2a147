package codegen

import (
	"sort"

	"github.com/arolang/aro/internal/aroerr"
	"github.com/arolang/aro/internal/ast"
)

// Generate lowers an analyzed program to a single Module: one function
// per feature set plus a synthesized main that boots the runtime,
// registers handlers and observers, and runs every Application-Start
// feature set in program order. Errors from individual feature sets are
// collected and returned alongside whatever module could still be
// built — callers decide whether any are fatal enough to stop on.
func Generate(program ast.Program) (*Module, []*aroerr.Error) {
	pool := NewStringPool()
	collectProgramStrings(program, pool)
	mod := &Module{Name: "aro_program", Strings: pool}
	var errs []*aroerr.Error

	for _, fs := range program.FeatureSets {
		fn, fsErrs := lowerFeatureSet(fs, pool)
		errs = append(errs, fsErrs...)
		mod.Functions = append(mod.Functions, fn)
	}

	mainFn, mainErrs := buildMain(program, pool)
	errs = append(errs, mainErrs...)
	mod.Functions = append(mod.Functions, mainFn)

	return mod, errs
}

// registrations groups the feature sets a generated main needs to wire
// up: entry points, event handlers, and repository observers. Excluded
// lifecycle hooks are left out.
type registrations struct {
	handlers  []ast.FeatureSet
	observers []ast.FeatureSet
	entries   []ast.FeatureSet
}

func collectRegistrations(program ast.Program) registrations {
	var r registrations
	for _, fs := range program.FeatureSets {
		switch {
		case fs.IsEntryPoint():
			r.entries = append(r.entries, fs)
		case excludedFromRegistration(fs.BusinessActivity):
			// Socket/File/Application-End hooks are invoked directly by
			// the runtime's lifecycle, never through the event bus.
		case fs.IsHandler():
			r.handlers = append(r.handlers, fs)
		case fs.IsObserver():
			r.observers = append(r.observers, fs)
		}
	}
	sort.SliceStable(r.handlers, func(i, j int) bool {
		return r.handlers[i].HandlerEventType() < r.handlers[j].HandlerEventType()
	})
	sort.SliceStable(r.observers, func(i, j int) bool {
		return r.observers[i].ObserverRepository() < r.observers[j].ObserverRepository()
	})
	return r
}
