package nn

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	ErrActivationExists   = errors.New("activation already registered")
	ErrActivationNotFound = errors.New("activation not found")
)

type ActivationFunc func(x float64) float64

// OutputDerivativeFunc returns the activation slope expressed through the
// activation's own output y = f(x), which is what online backpropagation has
// at hand after a forward pass.
type OutputDerivativeFunc func(y float64) float64

type Activation struct {
	Name  string
	Func  ActivationFunc
	Slope OutputDerivativeFunc
}

var activationRegistry = struct {
	mu sync.RWMutex
	m  map[string]Activation
}{
	m: make(map[string]Activation),
}

func init() {
	initializeBuiltInActivations()
}

func initializeBuiltInActivations() {
	MustRegisterActivation(Activation{
		Name:  "sigmoid",
		Func:  Sigmoid,
		Slope: func(y float64) float64 { return y * (1 - y) },
	})
	MustRegisterActivation(Activation{
		Name:  "tanh",
		Func:  math.Tanh,
		Slope: func(y float64) float64 { return 1 - y*y },
	})
	MustRegisterActivation(Activation{
		Name:  "identity",
		Func:  func(x float64) float64 { return x },
		Slope: func(float64) float64 { return 1 },
	})
}

func RegisterActivation(a Activation) error {
	if a.Name == "" {
		return errors.New("activation name is required")
	}
	if a.Func == nil {
		return errors.New("activation function is required")
	}
	if a.Slope == nil {
		return fmt.Errorf("activation %s: output derivative is required", a.Name)
	}

	activationRegistry.mu.Lock()
	defer activationRegistry.mu.Unlock()

	if _, exists := activationRegistry.m[a.Name]; exists {
		return fmt.Errorf("%w: %s", ErrActivationExists, a.Name)
	}
	activationRegistry.m[a.Name] = a
	return nil
}

func MustRegisterActivation(a Activation) {
	if err := RegisterActivation(a); err != nil {
		panic(err)
	}
}

func GetActivation(name string) (Activation, error) {
	activationRegistry.mu.RLock()
	entry, ok := activationRegistry.m[name]
	activationRegistry.mu.RUnlock()
	if !ok {
		return Activation{}, fmt.Errorf("%w: %s", ErrActivationNotFound, name)
	}
	return entry, nil
}

func ListActivations() []string {
	activationRegistry.mu.RLock()
	defer activationRegistry.mu.RUnlock()

	names := make([]string, 0, len(activationRegistry.m))
	for name := range activationRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetActivationRegistryForTests() {
	activationRegistry.mu.Lock()
	activationRegistry.m = make(map[string]Activation)
	activationRegistry.mu.Unlock()
	initializeBuiltInActivations()
}
