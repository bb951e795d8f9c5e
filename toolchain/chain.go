// Package toolchain assembles and runs pipelines from named
// definitions. A definition wires a source factory to one or more sink
// factories through the component registry, optionally inserting a
// per-channel dispatcher, and the resulting chain drives one lazy
// traversal per Run.
package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/c360/arfstream/component"
	"github.com/c360/arfstream/datablock"
	"github.com/c360/arfstream/dispatch"
	"github.com/c360/arfstream/errors"
	"github.com/c360/arfstream/filters"
	"github.com/c360/arfstream/metric"
)

// DefaultStopTimeout bounds each stage's Stop during teardown.
const DefaultStopTimeout = 5 * time.Second

// Assembler builds runnable chains from definitions. Every stage is
// created through the component registry, so factory schemas, instance
// naming, and exclusive-resource conflicts are enforced in one place.
type Assembler struct {
	registry *component.Registry
	filters  *filters.Registry
	metrics  *metric.Registry
	logger   *slog.Logger
}

// AssemblerDeps holds construction arguments for an Assembler.
type AssemblerDeps struct {
	Registry *component.Registry // Factory and instance registry (required)
	Filters  *filters.Registry   // Named sink predicates; created when nil
	Metrics  *metric.Registry    // Runtime dependency
	Logger   *slog.Logger        // Runtime dependency
}

// NewAssembler creates an assembler over a component registry.
func NewAssembler(deps AssemblerDeps) (*Assembler, error) {
	if deps.Registry == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("component registry is required"),
			"toolchain", "NewAssembler", "dependency check")
	}
	filterRegistry := deps.Filters
	if filterRegistry == nil {
		filterRegistry = filters.NewRegistry()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		registry: deps.Registry,
		filters:  filterRegistry,
		metrics:  deps.Metrics,
		logger:   logger,
	}, nil
}

// stage pairs a created component with its registry instance name.
type stage struct {
	name      string
	lifecycle component.LifecycleComponent
}

// Assemble creates the components of one definition and returns a
// runnable chain. Instances register under "<name>.source" and the
// sink names, so assembling the same toolchain twice, or two sinks
// claiming the same output file, fails with a conflict. On any
// failure the instances created so far are unregistered.
func (a *Assembler) Assemble(name string, def Definition) (*Chain, error) {
	if err := component.ValidateComponentName(name); err != nil {
		return nil, errors.Wrap(err, "toolchain", "Assemble", "toolchain name validation")
	}
	if err := def.Validate(); err != nil {
		return nil, errors.Wrap(err, "toolchain", "Assemble", fmt.Sprintf("toolchain %q", name))
	}

	deps := component.Dependencies{
		Metrics: a.metrics,
		Logger:  a.logger,
		Filters: a.filters,
	}

	var created []string
	fail := func(err error) (*Chain, error) {
		for _, instance := range created {
			a.registry.UnregisterInstance(instance)
		}
		return nil, err
	}

	if err := a.validateStageConfig(def.Source.Type, def.Source.Config); err != nil {
		return fail(err)
	}
	sourceJSON, err := configJSON(def.Source.Config)
	if err != nil {
		return fail(errors.WrapInvalid(err, "toolchain", "Assemble", "source config encoding"))
	}
	sourceName := name + ".source"
	sourceComp, err := a.registry.CreateComponent(sourceName, component.InstanceConfig{
		Type:    component.TypeSource,
		Name:    def.Source.Type,
		Enabled: true,
		Config:  sourceJSON,
	}, deps)
	if err != nil {
		return fail(errors.Wrap(err, "toolchain", "Assemble",
			fmt.Sprintf("create source %q", def.Source.Type)))
	}
	created = append(created, sourceName)

	source, ok := sourceComp.(component.Source)
	if !ok {
		return fail(errors.WrapInvalid(
			fmt.Errorf("factory %q does not produce a chunk stream", def.Source.Type),
			"toolchain", "Assemble", "source capability check"))
	}
	sourceLifecycle, ok := component.AsLifecycleComponent(sourceComp)
	if !ok {
		return fail(errors.WrapInvalid(
			fmt.Errorf("factory %q has no lifecycle", def.Source.Type),
			"toolchain", "Assemble", "source capability check"))
	}

	targetList := make([]component.Target, 0, len(def.Sinks))
	sinks := make([]stage, 0, len(def.Sinks))
	for i, sc := range def.Sinks {
		if err := a.validateStageConfig(sc.Type, sc.Config); err != nil {
			return fail(err)
		}
		sinkJSON, err := configJSON(sc.Config)
		if err != nil {
			return fail(errors.WrapInvalid(err, "toolchain", "Assemble",
				fmt.Sprintf("sink %d config encoding", i)))
		}
		instanceName := sc.Name
		if instanceName == "" {
			instanceName = fmt.Sprintf("%s.sink%d", name, i)
		}
		sinkComp, err := a.registry.CreateComponent(instanceName, component.InstanceConfig{
			Type:    component.TypeSink,
			Name:    sc.Type,
			Enabled: true,
			Config:  sinkJSON,
		}, deps)
		if err != nil {
			return fail(errors.Wrap(err, "toolchain", "Assemble",
				fmt.Sprintf("create sink %q", instanceName)))
		}
		created = append(created, instanceName)

		sink, ok := sinkComp.(component.Sink)
		if !ok {
			return fail(errors.WrapInvalid(
				fmt.Errorf("factory %q does not consume a chunk stream", sc.Type),
				"toolchain", "Assemble", "sink capability check"))
		}
		sinkLifecycle, ok := component.AsLifecycleComponent(sinkComp)
		if !ok {
			return fail(errors.WrapInvalid(
				fmt.Errorf("factory %q has no lifecycle", sc.Type),
				"toolchain", "Assemble", "sink capability check"))
		}

		predicate, err := a.sinkFilter(sc.Filter)
		if err != nil {
			return fail(err)
		}

		targetList = append(targetList, component.Target{
			Name:   instanceName,
			Sink:   sink,
			Filter: predicate,
		})
		sinks = append(sinks, stage{name: instanceName, lifecycle: sinkLifecycle})
	}

	return &Chain{
		name:        name,
		description: def.Description,
		policy:      def.Dispatch,
		registry:    a.registry,
		metrics:     a.metrics,
		logger:      a.logger.With("toolchain", name),
		source:      source,
		sourceStage: stage{name: sourceName, lifecycle: sourceLifecycle},
		sinks:       sinks,
		targets:     component.NewTargets(targetList...),
		stopTimeout: DefaultStopTimeout,
	}, nil
}

// validateStageConfig runs a supplied stage config through the
// factory's declared schema, so operators get field-level errors
// before the factory sees the payload. A stage with no config block
// relies on factory defaults and is not checked here.
func (a *Assembler) validateStageConfig(factoryType string, config map[string]any) error {
	if len(config) == 0 {
		return nil
	}
	schema, err := a.registry.GetComponentSchema(factoryType)
	if err != nil {
		return errors.Wrap(err, "toolchain", "Assemble",
			fmt.Sprintf("schema lookup for %q", factoryType))
	}
	violations := component.ValidateConfig(config, schema)
	if len(violations) == 0 {
		return nil
	}
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return errors.WrapInvalid(
		fmt.Errorf("config rejected by %q schema: %s", factoryType, strings.Join(parts, "; ")),
		"toolchain", "Assemble", "stage config validation")
}

// sinkFilter resolves a filter spec: registered predicate names win,
// anything else compiles as an expression.
func (a *Assembler) sinkFilter(spec string) (filters.Predicate, error) {
	if spec == "" {
		return nil, nil
	}
	if predicate, ok := a.filters.Lookup(spec); ok {
		return predicate, nil
	}
	predicate, err := filters.Expression(spec)
	if err != nil {
		return nil, errors.WrapInvalid(err, "toolchain", "Assemble",
			fmt.Sprintf("filter %q is neither a registered predicate nor an expression", spec))
	}
	return predicate, nil
}

// Chain is an assembled pipeline. Run drives one complete traversal
// and is repeatable; a chain is not safe for concurrent Runs.
type Chain struct {
	name        string
	description string
	policy      *DispatchPolicy
	registry    *component.Registry
	metrics     *metric.Registry
	logger      *slog.Logger

	source      component.Source
	sourceStage stage
	sinks       []stage
	targets     *component.Targets

	runMu       sync.Mutex
	stopTimeout time.Duration
}

// Name returns the toolchain name.
func (c *Chain) Name() string { return c.name }

// Description returns the definition's description.
func (c *Chain) Description() string { return c.description }

// Stages returns the registry instance names of the chain's stages in
// start order, sinks before the source.
func (c *Chain) Stages() []string {
	names := make([]string, 0, len(c.sinks)+1)
	for _, s := range c.sinks {
		names = append(names, s.name)
	}
	return append(names, c.sourceStage.name)
}

// Run initializes and starts every stage (sinks before the source so
// no chunk arrives at a stopped sink), drives the source's traversal
// into the fan-out, then tears everything down in reverse. A traversal
// failure is thrown to the sinks after dispatch queues drain, so
// terminal stages learn the stream is incomplete before they close.
// The first error wins; teardown always completes.
func (c *Chain) Run(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	order := append(append([]stage{}, c.sinks...), c.sourceStage)
	started := make([]stage, 0, len(order))
	for _, s := range order {
		if err := s.lifecycle.Initialize(); err != nil {
			c.stopStages(started)
			return errors.Wrap(err, c.name, "Run", fmt.Sprintf("initialize %s", s.name))
		}
		if err := s.lifecycle.Start(runCtx); err != nil {
			c.stopStages(started)
			return errors.Wrap(err, c.name, "Run", fmt.Sprintf("start %s", s.name))
		}
		started = append(started, s)
	}

	entry, err := c.buildEntry()
	if err != nil {
		c.stopStages(started)
		return err
	}

	c.logger.Info("toolchain running",
		"sinks", len(c.sinks),
		"dispatch", c.policy != nil)

	runErr := c.source.Iterate(runCtx, entry.Send)
	closeErr := entry.Close()
	if runErr != nil {
		c.targets.Throw(runErr)
	}
	targetsErr := c.targets.CloseAll()
	stopErr := c.stopStages(started)

	switch {
	case runErr != nil:
		return errors.Wrap(runErr, c.name, "Run", "stream traversal")
	case closeErr != nil:
		return errors.Wrap(closeErr, c.name, "Run", "dispatch close")
	case targetsErr != nil:
		return errors.Wrap(targetsErr, c.name, "Run", "sink close")
	default:
		return stopErr
	}
}

// Release unregisters the chain's component instances, freeing their
// names and exclusive resources. The chain is unusable afterwards.
func (c *Chain) Release() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.registry.UnregisterInstance(c.sourceStage.name)
	for _, s := range c.sinks {
		c.registry.UnregisterInstance(s.name)
	}
}

// stopStages stops stages in reverse start order, keeping the first
// error and logging the rest.
func (c *Chain) stopStages(started []stage) error {
	var firstErr error
	for i := len(started) - 1; i >= 0; i-- {
		s := started[i]
		if err := s.lifecycle.Stop(c.stopTimeout); err != nil {
			c.logger.Warn("stage stop failed", "stage", s.name, "error", err)
			if firstErr == nil {
				firstErr = errors.Wrap(err, c.name, "Run", fmt.Sprintf("stop %s", s.name))
			}
		}
	}
	return firstErr
}

// buildEntry returns the stage the traversal feeds: a per-channel
// dispatcher when the definition asks for one, the plain fan-out
// otherwise. Dispatchers are single-use, so each Run constructs its
// own from the stored policy.
func (c *Chain) buildEntry() (component.Sink, error) {
	if c.policy == nil {
		return fanout{targets: c.targets}, nil
	}

	deps := dispatch.Deps[string]{
		Name:    c.name + ".dispatch",
		Worker:  channelWorker,
		Targets: c.targets,
		Metrics: c.metrics,
		Logger:  c.logger.With("component", c.name+".dispatch"),
	}
	if c.policy.Async {
		deps.Key = func(chunk datablock.Chunk) string { return chunk.ID }
		d, err := dispatch.NewAsync(deps, c.policy.QueueSize)
		if err != nil {
			return nil, errors.Wrap(err, c.name, "Run", "dispatcher construction")
		}
		return d, nil
	}
	d, err := dispatch.ByID(deps)
	if err != nil {
		return nil, errors.Wrap(err, c.name, "Run", "dispatcher construction")
	}
	return d, nil
}

// fanout feeds the shared target list directly when no dispatch policy
// is configured. Closing the targets is the chain's job.
type fanout struct {
	targets *component.Targets
}

func (f fanout) Send(chunk datablock.Chunk) error { return f.targets.Dispatch(chunk) }

func (f fanout) Close() error { return nil }

// channelWorker is the per-key dispatch stage. It forwards its
// channel's chunks to the shared target list and does not implement
// Thrower, so a thrown error reaches each sink exactly once through
// the chain rather than once per worker.
func channelWorker(key string, targets *component.Targets) (component.Sink, error) {
	return channelForward{targets: targets}, nil
}

type channelForward struct {
	targets *component.Targets
}

func (w channelForward) Send(chunk datablock.Chunk) error { return w.targets.Dispatch(chunk) }

func (w channelForward) Close() error { return nil }
