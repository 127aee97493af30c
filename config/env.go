package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Env is a snapshot of the process environment.
type Env map[string]string

func EnvFromOS() Env {
	env := Env{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	return env
}

// Get returns the trimmed value of key, "" when unset.
func (e Env) Get(key string) string {
	return strings.TrimSpace(e[key])
}

// ApplyEnv overlays environment settings on top of the file configuration.
// Unset or empty variables leave the file value alone.
func (c *Config) ApplyEnv(env Env) error {
	setString(&c.Parcel.APIKey, env.Get("PARCEL_API_KEY"))
	setString(&c.Parcel.BaseURL, env.Get("PARCEL_BASE_URL"))
	setString(&c.Sync.HistoryPath, env.Get("TRACKING_HISTORY_PATH"))
	setString(&c.Log.Level, env.Get("LOG_LEVEL"))
	setString(&c.Log.Format, env.Get("LOG_FORMAT"))
	setString(&c.Redis.Addr, env.Get("REDIS_ADDR"))

	if v := env.Get("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"EBAY_DAYS_BACK", &c.Sync.DaysBack},
		{"PARCEL_MAX_PER_RUN", &c.Sync.MaxPerRun},
		{"MAX_SHIPMENT_AGE_DAYS", &c.Sync.MaxAgeDays},
		{"PARCEL_DAILY_QUOTA", &c.Parcel.DailyQuota},
	}
	for _, it := range ints {
		v := env.Get(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s", it.key)
		}
		*it.dst = n
	}

	if v := env.Get("DRY_RUN"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return errors.Wrap(err, "DRY_RUN")
		}
		c.Sync.DryRun = b
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(v)
}
