package gc

// Collection tuning. The zero Profile means "use defaults", so embedders can
// pass Profile{} and get sensible incremental behavior. Profiles can also be
// loaded from YAML, with byte quantities written either as plain integers or
// as human-readable strings ("4MB", "512KB").

import (
	"fmt"
	"io"
	"os"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v2"
)

const (
	defaultMarkStep  = 100
	defaultSweepStep = 100
	defaultThreshold = 1 << 20 // 1MB
)

// Size is a byte quantity that unmarshals from either a YAML integer or a
// human-readable string.
type Size uintptr

// String returns the size in human-readable form.
func (s Size) String() string {
	return bytesize.New(float64(s)).String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var n uint64
	if err := unmarshal(&n); err == nil {
		*s = Size(n)
		return nil
	}
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	b, err := bytesize.Parse(str)
	if err != nil {
		return fmt.Errorf("gc: invalid size %q: %w", str, err)
	}
	*s = Size(b)
	return nil
}

// Profile tunes the collector.
type Profile struct {
	// MarkStep is the number of gray objects traced per Step.
	MarkStep int `yaml:"mark-step"`

	// SweepStep is the number of objects swept per Step.
	SweepStep int `yaml:"sweep-step"`

	// Threshold is the minimum allocation volume before ShouldCollect
	// reports true. After each cycle the effective trigger is the larger of
	// this and twice the live set.
	Threshold Size `yaml:"threshold"`

	// HeapLimit caps total allocated bytes; 0 means unlimited. Allocations
	// beyond the limit fail with ErrOutOfMemory.
	HeapLimit Size `yaml:"heap-limit"`

	// Stress makes ShouldCollect report true whenever the heap is idle, so
	// every allocation checkpoint starts a cycle. For testing.
	Stress bool `yaml:"stress"`
}

// DefaultProfile returns the tuning used when no profile is given.
func DefaultProfile() Profile {
	return Profile{
		MarkStep:  defaultMarkStep,
		SweepStep: defaultSweepStep,
		Threshold: defaultThreshold,
	}
}

func (p Profile) withDefaults() Profile {
	if p.MarkStep == 0 {
		p.MarkStep = defaultMarkStep
	}
	if p.SweepStep == 0 {
		p.SweepStep = defaultSweepStep
	}
	if p.Threshold == 0 {
		p.Threshold = defaultThreshold
	}
	return p
}

func (p Profile) validate() error {
	if p.MarkStep < 0 {
		return fmt.Errorf("gc: mark-step must not be negative (got %d)", p.MarkStep)
	}
	if p.SweepStep < 0 {
		return fmt.Errorf("gc: sweep-step must not be negative (got %d)", p.SweepStep)
	}
	return nil
}

// LoadProfile reads a YAML tuning profile.
func LoadProfile(r io.Reader) (Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return Profile{}, fmt.Errorf("gc: parsing profile: %w", err)
	}
	if err := p.validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// LoadProfileFile reads a YAML tuning profile from a file.
func LoadProfileFile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, err
	}
	defer f.Close()
	return LoadProfile(f)
}
