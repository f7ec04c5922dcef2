package config

import (
	"time"

	"github.com/hako/durafmt"
)

// Duration is a wrapper for time.Duration to support yaml unmarshalling
type Duration time.Duration

// ToDuration converts Duration to time.Duration
func (c Duration) ToDuration() time.Duration {
	return time.Duration(c)
}

// IsAboveZero returns true if duration is strictly greater than zero
func (c Duration) IsAboveZero() bool {
	return c.ToDuration() > 0
}

// Seconds returns duration in seconds
func (c Duration) Seconds() float64 {
	return c.ToDuration().Seconds()
}

// SecondsU32 returns duration in seconds as uint32
func (c Duration) SecondsU32() uint32 {
	return uint32(c.Seconds())
}

// String implements `fmt.Stringer`
func (c Duration) String() string {
	return durafmt.Parse(c.ToDuration()).String()
}

// UnmarshalText implements `encoding.TextUnmarshaler`
func (c *Duration) UnmarshalText(data []byte) error {
	duration, err := time.ParseDuration(string(data))
	if err != nil {
		return err
	}

	*c = Duration(duration)

	return nil
}

// UnmarshalYAML implements `yaml.Unmarshaler`
func (c *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var input string
	if err := unmarshal(&input); err != nil {
		return err
	}

	return c.UnmarshalText([]byte(input))
}
