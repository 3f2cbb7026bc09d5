package behaviortree

import (
	"regexp"
	"sort"

	"github.com/rs/zerolog"
)

// ActionBuilder constructs a fresh Action instance for a matched action
// element. Builders are invoked once per node instantiated from the XML,
// so stateful actions get their own instance per tree position.
type ActionBuilder func() Action

type registeredAction struct {
	pattern *regexp.Regexp
	source  string
	build   ActionBuilder
}

// Factory owns the registries of composite, decorator, and action node
// kinds available to BuildTree, plus shared build-time logging.
type Factory struct {
	logger zerolog.Logger

	composites map[string]func() compositeImpl
	decorators map[string]func() decoratorImpl
	actions    []registeredAction
}

// FactoryOption configures a Factory at construction time.
type FactoryOption func(*Factory)

// WithLogger attaches a structured logger the Factory uses while building
// trees; the zero value falls back to a disabled logger.
func WithLogger(logger zerolog.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logger }
}

// NewFactory returns a Factory with every built-in composite, decorator,
// and the SetBlackboard action already registered.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		logger:     zerolog.Nop(),
		composites: make(map[string]func() compositeImpl),
		decorators: make(map[string]func() decoratorImpl),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.composites["Sequence"] = func() compositeImpl { return &sequenceImpl{} }
	f.composites["Fallback"] = func() compositeImpl { return &fallbackImpl{} }
	f.composites["Parallel"] = func() compositeImpl { return &parallelImpl{} }

	f.decorators["ForceSuccess"] = func() decoratorImpl { return forceSuccessImpl{} }
	f.decorators["ForceFailure"] = func() decoratorImpl { return forceFailureImpl{} }
	f.decorators["Inverter"] = func() decoratorImpl { return inverterImpl{} }
	f.decorators["Repeat"] = func() decoratorImpl { return &repeatImpl{} }
	f.decorators["RetryUntilSuccessful"] = func() decoratorImpl { return retryImpl{} }
	// SubTree is built via buildSubTree's own resolution path rather than
	// this map (it needs the ID attribute and the builder's tree-body
	// table, not just an inner node), but it is listed here so
	// DecoratorTypes reports the full built-in decorator set.
	f.decorators["SubTree"] = nil

	if err := f.RegisterActionType("SetBlackboard", func() Action { return setBlackboardAction{} }); err != nil {
		panic("behaviortree: built-in SetBlackboard pattern failed to compile: " + err.Error())
	}

	return f
}

// RegisterActionType makes elements whose name matches pattern (compiled
// as an anchored regular expression) buildable as leaf Action nodes via
// build. Patterns are tried in registration order; the first match wins,
// so register more specific patterns before broader ones.
func (f *Factory) RegisterActionType(pattern string, build ActionBuilder) error {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return wrapBuildError(ErrRegexCompile, err, "compiling action pattern %q", pattern)
	}
	f.actions = append(f.actions, registeredAction{pattern: re, source: pattern, build: build})
	return nil
}

// CompositeTypes returns the names of every registered composite kind, sorted.
func (f *Factory) CompositeTypes() []string { return sortedKeys(f.composites) }

// DecoratorTypes returns the names of every registered decorator kind, sorted.
func (f *Factory) DecoratorTypes() []string { return sortedKeys(f.decorators) }

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (f *Factory) lookupAction(name string) (ActionBuilder, bool) {
	for _, ra := range f.actions {
		if ra.pattern.MatchString(name) {
			return ra.build, true
		}
	}
	return nil, false
}
