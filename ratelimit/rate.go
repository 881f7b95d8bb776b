/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rate describes the frequency of requests: Count per Duration.
// In configuration it is written in the "N/(s|m|h)" form,
// for example 10/s, 100/m, 1000/h.
type Rate struct {
	Count    int
	Duration time.Duration
}

// PerSecond returns the rate converted to tokens per second.
func (r Rate) PerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Count) / r.Duration.Seconds()
}

// String returns a string representation of the rate.
// Implements fmt.Stringer interface.
func (r Rate) String() string {
	if r.Duration == 0 && r.Count == 0 {
		return ""
	}
	var d string
	switch r.Duration {
	case time.Second:
		d = "s"
	case time.Minute:
		d = "m"
	case time.Hour:
		d = "h"
	default:
		d = r.Duration.String()
	}
	return fmt.Sprintf("%d/%s", r.Count, d)
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (r *Rate) UnmarshalText(text []byte) error {
	return r.unmarshal(string(text))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (r *Rate) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return r.unmarshal(text)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (r *Rate) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return r.unmarshal(text)
}

func (r *Rate) unmarshal(rate string) error {
	if rate == "" {
		*r = Rate{}
		return nil
	}
	incorrectFormatErr := fmt.Errorf(
		"incorrect format for rate %q, should be N/(s|m|h), for example 10/s, 100/m, 1000/h", rate)
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		return incorrectFormatErr
	}
	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return incorrectFormatErr
	}
	var dur time.Duration
	switch strings.ToLower(parts[1]) {
	case "s":
		dur = time.Second
	case "m":
		dur = time.Minute
	case "h":
		dur = time.Hour
	default:
		return incorrectFormatErr
	}
	*r = Rate{Count: count, Duration: dur}
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (r Rate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// MarshalJSON implements the json.Marshaler interface.
func (r Rate) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// MarshalYAML implements the yaml.Marshaler interface.
func (r Rate) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}
