package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// QueryConfig holds configuration for the query command, which replays a
// snapshot JSONL file and answers point or window queries offline.
type QueryConfig struct {
	Input    string
	Token    string
	At       string
	Start    string
	End      string
	Tick     int32
	Liq      string
	Capacity uint64
	LogLevel string
}

// LoadQuery merges config file, environment variables, and flags into
// QueryConfig.
func LoadQuery(cfgFile string, flags *pflag.FlagSet) (QueryConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return QueryConfig{}, err
	}

	v.SetDefault("in", "./data/snapshots.jsonl")
	v.SetDefault("capacity", uint64(64))
	v.SetDefault("liquidity", "1")
	v.SetDefault("log-level", "info")

	cfg := QueryConfig{
		Input:    v.GetString("in"),
		Token:    v.GetString("token"),
		At:       v.GetString("at"),
		Start:    v.GetString("start"),
		End:      v.GetString("end"),
		Tick:     v.GetInt32("tick"),
		Liq:      v.GetString("liquidity"),
		Capacity: v.GetUint64("capacity"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		return strconv.ParseUint(input, 10, 64)
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
