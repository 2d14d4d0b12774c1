package env

import (
	"os"
	"regexp"
	"strings"
	"sync"
)

var (
	bracePattern  = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.]*)\s*\}\}`)
	dollarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver expands {{name}} and ${NAME} placeholders. Names are looked up in
// the resolver's variables first and in the process environment second.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]string),
	}
}

// SetWarnFunc sets a function to be called for unresolved placeholders
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

func (r *Resolver) lookup(name string) (string, bool) {
	r.mu.RLock()
	v, ok := r.variables[name]
	r.mu.RUnlock()
	if ok {
		return v, true
	}
	return os.LookupEnv(name)
}

// Resolve replaces every known placeholder in input. Unknown placeholders
// are left as written and reported through the warn function.
func (r *Resolver) Resolve(input string) string {
	if !strings.Contains(input, "{{") && !strings.Contains(input, "${") {
		return input
	}

	replace := func(pattern *regexp.Regexp) func(string) string {
		return func(match string) string {
			name := pattern.FindStringSubmatch(match)[1]
			if v, ok := r.lookup(name); ok {
				return v
			}
			r.warn("unresolved variable %q", name)
			return match
		}
	}

	result := bracePattern.ReplaceAllStringFunc(input, replace(bracePattern))
	return dollarPattern.ReplaceAllStringFunc(result, replace(dollarPattern))
}

// ResolveMap resolves every value of m into a new map
func (r *Resolver) ResolveMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = r.Resolve(v)
	}
	return out
}
