package secrets

import (
	"context"
	"os"
	"sort"
	"strings"
)

// EnvProvider serves both stores from environment variables.  A variable
// named <secretPrefix><NAME> is a secret, <keyPrefix><NAME> is a key.  An
// entry with an empty value is reported as disabled.
type EnvProvider struct {
	secretPrefix string
	keyPrefix    string
}

// NewEnvProvider creates an environment-backed provider.  Empty prefixes fall
// back to DIAGRAM_SECRET_ and DIAGRAM_KEY_.
func NewEnvProvider(secretPrefix, keyPrefix string) *EnvProvider {
	if secretPrefix == "" {
		secretPrefix = "DIAGRAM_SECRET_"
	}
	if keyPrefix == "" {
		keyPrefix = "DIAGRAM_KEY_"
	}
	return &EnvProvider{secretPrefix: secretPrefix, keyPrefix: keyPrefix}
}

// ListSecrets returns every secret variable, sorted by name.
func (p *EnvProvider) ListSecrets(_ context.Context) ([]SecretProperties, error) {
	out := make([]SecretProperties, 0)
	for name, value := range scanEnv(p.secretPrefix) {
		out = append(out, SecretProperties{Name: name, Enabled: value != ""})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListKeys returns every key variable, sorted by name.
func (p *EnvProvider) ListKeys(_ context.Context) ([]KeyProperties, error) {
	out := make([]KeyProperties, 0)
	for name, value := range scanEnv(p.keyPrefix) {
		out = append(out, KeyProperties{Name: name, Enabled: value != ""})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Name returns the provider name
func (p *EnvProvider) Name() string {
	return string(ProviderTypeEnv)
}

// Close is a no-op for the environment provider
func (p *EnvProvider) Close() error {
	return nil
}

// scanEnv maps lower-cased names (prefix stripped) to values.
func scanEnv(prefix string) map[string]string {
	found := make(map[string]string)
	for _, env := range os.Environ() {
		k, v, _ := strings.Cut(env, "=")
		if !strings.HasPrefix(k, prefix) || k == prefix {
			continue
		}
		found[strings.ToLower(strings.TrimPrefix(k, prefix))] = v
	}
	return found
}
