// Package config loads the TOML configuration of the magicnum CLI and
// converts it into a verification plan and its target backends.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/solidifylabs/magicnum/chain"
	"github.com/solidifylabs/magicnum/chain/gethchain"
	"github.com/solidifylabs/magicnum/region"
	"github.com/solidifylabs/magicnum/runopts"
	"github.com/solidifylabs/magicnum/store"
	"github.com/solidifylabs/magicnum/verify"
)

// Backend names accepted in Config.Backends.
const (
	Simulated = "simulated"
	Geth      = "geth"
)

// MemoryStore is the Config.Store value selecting an in-memory store.
const MemoryStore = "memory"

// ErrInvalid is returned for well-formed TOML with unusable values.
var ErrInvalid = errors.New("invalid configuration")

// Config is the CLI configuration.
type Config struct {
	// Decimal, or hex with 0x prefix.
	Value     string          `toml:"value"`
	Signature string          `toml:"signature"`
	Regions   []region.Region `toml:"regions"`
	Backends  []string        `toml:"backends"`
	Calls     int             `toml:"calls"`
	// MemoryStore, or the path of a bbolt database for the simulated backend.
	Store    string `toml:"store"`
	Deployer string `toml:"deployer"`
	Limits   Limits `toml:"limits"`
}

// Limits bound every execution; zero values leave the defaults in place.
type Limits struct {
	MaxMemory uint64 `toml:"max_memory"`
	MaxSteps  uint64 `toml:"max_steps"`
	GasLimit  uint64 `toml:"gas_limit"`
}

// Default returns the configuration used in the absence of a file.
func Default() *Config {
	p := verify.DefaultPlan()
	return &Config{
		Value:     p.Value.Dec(),
		Signature: p.Signature,
		Regions:   p.Regions,
		Backends:  []string{Simulated, Geth},
		Calls:     p.Calls,
		Store:     MemoryStore,
		Deployer:  runopts.DefaultDeployer().Hex(),
	}
}

// Load reads the file at path, overriding Default() values with those that it
// sets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse is equivalent to Load() but reads the TOML from data. Unknown keys are
// an error.
func Parse(data string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(data, c)
	if err != nil {
		return nil, err
	}
	if un := md.Undecoded(); len(un) > 0 {
		keys := make([]string, len(un))
		for i, k := range un {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if _, err := c.value(); err != nil {
		return err
	}
	if _, err := c.deployer(); err != nil {
		return err
	}
	for _, b := range c.Backends {
		switch b {
		case Simulated, Geth:
		default:
			return fmt.Errorf("%w: unknown backend %q", ErrInvalid, b)
		}
	}
	if len(c.Backends) == 0 {
		return fmt.Errorf("%w: no backends", ErrInvalid)
	}
	return nil
}

func (c *Config) value() (*uint256.Int, error) {
	v, err := ParseValue(c.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return v, nil
}

// ParseValue parses s as an unsigned 256-bit integer, in decimal or, with a 0x
// or 0X prefix, in hex.
func ParseValue(s string) (*uint256.Int, error) {
	var (
		v   *uint256.Int
		err error
	)
	switch {
	case strings.HasPrefix(s, "0x"):
		v, err = uint256.FromHex(s)
	case strings.HasPrefix(s, "0X"):
		v, err = uint256.FromHex("0x" + s[2:])
	default:
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("value %q: %v", s, err)
	}
	return v, nil
}

func (c *Config) deployer() (common.Address, error) {
	if !common.IsHexAddress(c.Deployer) {
		return common.Address{}, fmt.Errorf("%w: deployer %q", ErrInvalid, c.Deployer)
	}
	return common.HexToAddress(c.Deployer), nil
}

// Plan returns the verify.Plan described by c.
func (c *Config) Plan() (verify.Plan, error) {
	v, err := c.value()
	if err != nil {
		return verify.Plan{}, err
	}
	return verify.Plan{
		Value:     *v,
		Signature: c.Signature,
		Regions:   c.Regions,
		Calls:     c.Calls,
	}, nil
}

// Options returns the runopts.Options described by c.
func (c *Config) Options() ([]runopts.Option, error) {
	d, err := c.deployer()
	if err != nil {
		return nil, err
	}
	opts := []runopts.Option{runopts.Deployer(d)}
	if n := c.Limits.MaxMemory; n > 0 {
		opts = append(opts, runopts.MaxMemory(n))
	}
	if n := c.Limits.MaxSteps; n > 0 {
		opts = append(opts, runopts.MaxSteps(n))
	}
	if n := c.Limits.GasLimit; n > 0 {
		opts = append(opts, runopts.GasLimit(n))
	}
	return opts, nil
}

// OpenStore opens the store.Store described by c.
func (c *Config) OpenStore() (store.Store, error) {
	if c.Store == "" || c.Store == MemoryStore {
		return store.NewMemory(), nil
	}
	return store.OpenBolt(store.DefaultBoltConfig(c.Store))
}

// Targets returns one verify.Target per configured backend, in order. The
// returned function MUST be called to release resources once the Targets are
// no longer needed.
func (c *Config) Targets() ([]verify.Target, func() error, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, nil, err
	}

	var (
		targets []verify.Target
		closers []func() error
	)
	release := func() error {
		var errs []error
		for _, fn := range closers {
			errs = append(errs, fn())
		}
		return errors.Join(errs...)
	}

	for _, name := range c.Backends {
		var b chain.Backend
		switch name {
		case Simulated:
			s, err := c.OpenStore()
			if err != nil {
				return nil, nil, errors.Join(err, release())
			}
			closers = append(closers, s.Close)
			b, err = chain.NewSimulated(s, opts...)
			if err != nil {
				return nil, nil, errors.Join(err, release())
			}
		case Geth:
			b, err = gethchain.New(opts...)
			if err != nil {
				return nil, nil, errors.Join(err, release())
			}
		default:
			return nil, nil, errors.Join(fmt.Errorf("%w: unknown backend %q", ErrInvalid, name), release())
		}
		targets = append(targets, verify.Target{Name: name, Backend: b})
	}
	return targets, release, nil
}
