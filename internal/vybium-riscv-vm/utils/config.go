package utils

import (
	"fmt"
)

// Config represents the configuration for VM execution and trace generation
type Config struct {
	// Trace parameters
	MaxLog2PaddedHeight int // Maximum log2 of the common padded trace height
	MaxCycles           int // Maximum number of execution cycles (0 = unlimited)

	// Hash function
	HashFunction string // "sha256" or "sha3"
}

// DefaultConfig returns a default configuration for RV32IM trace generation
func DefaultConfig() *Config {
	return &Config{
		MaxLog2PaddedHeight: 22,
		MaxCycles:           1 << 20,
		HashFunction:        "sha3",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MaxLog2PaddedHeight <= 0 {
		return fmt.Errorf("max log2 padded height must be positive")
	}

	// Heights are tracked as int, so the padded height must fit in one
	if c.MaxLog2PaddedHeight > 62 {
		return fmt.Errorf("max log2 padded height (%d) must be at most 62", c.MaxLog2PaddedHeight)
	}

	if c.MaxCycles < 0 {
		return fmt.Errorf("max cycles must be non-negative")
	}

	if c.HashFunction != "sha256" && c.HashFunction != "sha3" {
		return fmt.Errorf("hash function must be 'sha256' or 'sha3', got '%s'", c.HashFunction)
	}

	return nil
}

// WithMaxLog2PaddedHeight sets the maximum log2 padded height
func (c *Config) WithMaxLog2PaddedHeight(log2Height int) *Config {
	c.MaxLog2PaddedHeight = log2Height
	return c
}

// WithMaxCycles sets the maximum number of execution cycles
func (c *Config) WithMaxCycles(cycles int) *Config {
	c.MaxCycles = cycles
	return c
}

// WithHashFunction sets the hash function
func (c *Config) WithHashFunction(hashFunc string) *Config {
	c.HashFunction = hashFunc
	return c
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	return &Config{
		MaxLog2PaddedHeight: c.MaxLog2PaddedHeight,
		MaxCycles:           c.MaxCycles,
		HashFunction:        c.HashFunction,
	}
}
