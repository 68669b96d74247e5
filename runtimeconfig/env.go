package runtimeconfig

import "strings"

// envTransform maps an environment variable name to a koanf dot path, the
// same underscore-to-dot, lowercase transform cartographus's
// envTransformFunc applies (internal/config/koanf.go), minus its per-field
// mapping table: actorkit's knob names already match their koanf tags
// one-for-one, so ACTORKIT_SUPERVISOR_MAX_RESTARTS ->
// supervisor.max_restarts falls out of stripping EnvPrefix and replacing
// the first underscore-separated segment boundary with a dot. TrimPrefix
// is a no-op if the provider already stripped it.
func envTransform(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(key)
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[0] + "." + parts[1]
}
