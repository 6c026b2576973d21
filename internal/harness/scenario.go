package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/apopiak/how-not-to-build-a-pallet/internal/ir"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/pallet"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/runtime"
	"github.com/apopiak/how-not-to-build-a-pallet/internal/state"
)

// Scenario is one deterministic pallet run with expectations.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario shows.
	Description string `yaml:"description"`

	// Genesis seeds the cells before the first call. Cells not listed
	// start absent.
	Genesis map[string]uint32 `yaml:"genesis,omitempty"`

	// BlockWeightLimit overrides the runtime default when non-zero.
	BlockWeightLimit uint64 `yaml:"block_weight_limit,omitempty"`

	// Calls run in order, one block each.
	Calls []CallStep `yaml:"calls"`

	// Assertions are checked after the last call.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// CallStep is one call with its origin and expected outcome.
type CallStep struct {
	// Call is the call name, e.g. "store_value".
	Call string `yaml:"call"`

	// Args holds the call parameters. May be omitted for calls without any.
	Args map[string]any `yaml:"args,omitempty"`

	// Origin is signed (default), none or root.
	Origin string `yaml:"origin,omitempty"`

	// Caller is a development account name or 0x-hex account id for
	// signed origins. Default: alice.
	Caller string `yaml:"caller,omitempty"`

	// Expect is the expected outcome: OK or an error code. Empty skips
	// the check.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion checks the final cells or the emitted events.
type Assertion struct {
	// Type is one of final_state, event_contains, event_order, event_count.
	Type string `yaml:"type"`

	// Cells maps cell names to expected values; null means absent
	// (final_state).
	Cells map[string]*uint32 `yaml:"cells,omitempty"`

	// Kind is the event kind (event_contains, event_count).
	Kind string `yaml:"kind,omitempty"`

	// Payload is a subset of the expected event payload (event_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Kinds is the expected event order, gaps allowed (event_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the expected number of events of Kind (event_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion types.
const (
	AssertFinalState    = "final_state"
	AssertEventContains = "event_contains"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
)

// Origins accepted in CallStep.Origin.
const (
	OriginSigned = "signed"
	OriginNone   = "none"
	OriginRoot   = "root"
)

// DefaultCaller is the development account used when a signed step names
// no caller.
const DefaultCaller = "alice"

// knownOutcomes are the values CallStep.Expect may take.
var knownOutcomes = []string{
	ir.OutcomeOK,
	string(pallet.ErrCodeUnauthenticated),
	string(pallet.ErrCodeNoneValue),
	string(pallet.ErrCodeOverflow),
	string(pallet.ErrCodeUnrecoverable),
	runtime.OutcomeExhaustsResources,
}

var knownEventKinds = []string{ir.EventValueStored, ir.EventHashResult, ir.EventSumResult}

// LoadScenario reads, strictly parses and validates a scenario file.
// Unknown fields are errors, so typos do not silently disable a check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir whose base name
// matches filter (a glob; empty matches all), sorted by path.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(path), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Calls) == 0 {
		return fmt.Errorf("calls list is required and must be non-empty")
	}

	for name := range s.Genesis {
		if _, err := state.ParseCell(name); err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
	}

	for i, step := range s.Calls {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("calls[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks the call name, arguments, origin, caller and expected
// outcome of a step.
func (step CallStep) Validate() error {
	if step.Call == "" {
		return fmt.Errorf("call is required")
	}
	if _, err := ir.DecodeCall(step.Call, step.Args); err != nil {
		return err
	}
	switch step.Origin {
	case "", OriginSigned:
	case OriginNone, OriginRoot:
		if step.Caller != "" {
			return fmt.Errorf("caller is only valid for signed origins")
		}
	default:
		return fmt.Errorf("unknown origin %q (want signed, none or root)", step.Origin)
	}
	if step.Caller != "" {
		if _, err := ir.ResolveAccount(step.Caller); err != nil {
			return err
		}
	}
	if step.Expect != "" && !slices.Contains(knownOutcomes, step.Expect) {
		return fmt.Errorf("unknown expected outcome %q", step.Expect)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		if len(a.Cells) == 0 {
			return fmt.Errorf("cells is required for final_state")
		}
		for name := range a.Cells {
			if _, err := state.ParseCell(name); err != nil {
				return err
			}
		}
	case AssertEventContains:
		if !slices.Contains(knownEventKinds, a.Kind) {
			return fmt.Errorf("unknown event kind %q", a.Kind)
		}
	case AssertEventOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("kinds list is required for event_order")
		}
		for _, k := range a.Kinds {
			if !slices.Contains(knownEventKinds, k) {
				return fmt.Errorf("unknown event kind %q", k)
			}
		}
	case AssertEventCount:
		if !slices.Contains(knownEventKinds, a.Kind) {
			return fmt.Errorf("unknown event kind %q", a.Kind)
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// Resolve builds the origin and call of a step.
func (step CallStep) Resolve() (ir.Origin, ir.Call, error) {
	call, err := ir.DecodeCall(step.Call, step.Args)
	if err != nil {
		return ir.Origin{}, nil, err
	}
	switch step.Origin {
	case OriginNone:
		return ir.Unsigned(), call, nil
	case OriginRoot:
		return ir.Root(), call, nil
	}
	who, err := ir.ResolveAccount(step.callerName())
	if err != nil {
		return ir.Origin{}, nil, err
	}
	return ir.Signed(who), call, nil
}

func (step CallStep) callerName() string {
	if step.Caller == "" {
		return DefaultCaller
	}
	return step.Caller
}

// Label is how the step's origin appears in traces: the caller for signed
// steps, otherwise the origin name.
func (step CallStep) Label() string {
	switch step.Origin {
	case OriginNone, OriginRoot:
		return step.Origin
	default:
		return step.callerName()
	}
}
