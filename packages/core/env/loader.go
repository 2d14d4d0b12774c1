package env

import (
	"os"
	"strings"
)

// MergeVariables merges maps left to right, later sources winning
func MergeVariables(sources ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// StripPrefix returns the variables carrying prefix, keyed without it
func StripPrefix(vars map[string]string, prefix string) map[string]string {
	result := make(map[string]string)
	for key, value := range vars {
		if name, ok := strings.CutPrefix(key, prefix); ok && name != "" {
			result[name] = value
		}
	}
	return result
}

// LoadSystemEnv returns the process environment. With a prefix, only
// variables carrying it are returned, keyed without the prefix.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	for _, e := range os.Environ() {
		if key, value, found := strings.Cut(e, "="); found {
			result[key] = value
		}
	}
	if prefix == "" {
		return result
	}
	return StripPrefix(result, prefix)
}
