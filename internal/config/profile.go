package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

var (
	// ErrProfileNotFound is returned when profiles.yml has no usable profile or target.
	ErrProfileNotFound = errors.New("dbt profile not found")
	// ErrNoAuthMethod is returned when neither a password nor a private key is configured.
	ErrNoAuthMethod = errors.New("no authentication method provided (expected password or private_key_path)")
	// ErrUnsupportedType is returned for dbt adapters this tool cannot read from.
	ErrUnsupportedType = errors.New("unsupported warehouse type")
)

// ProfilesFile is the dbt profile file name inside the profiles directory.
const ProfilesFile = "profiles.yml"

// SupportedTypes lists the dbt adapter types that can be mirrored.
var SupportedTypes = []string{TypeSnowflake, TypePostgres, TypeMySQL, TypeSQLServer}

// IsSupportedType reports whether t names a supported dbt adapter.
func IsSupportedType(t string) bool {
	for _, s := range SupportedTypes {
		if s == t {
			return true
		}
	}
	return false
}

// DefaultProfilesDir returns ~/.dbt, or DBT_PROFILES_DIR when set.
func DefaultProfilesDir() string {
	if dir := os.Getenv("DBT_PROFILES_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dbt"
	}
	return filepath.Join(home, ".dbt")
}

// envVarCall matches dbt's {{ env_var('NAME') }} and {{ env_var('NAME', 'default') }},
// optionally followed by an as_number/as_bool filter.
var envVarCall = regexp.MustCompile(`\{\{\s*env_var\(\s*['"]([^'"]+)['"]\s*(?:,\s*['"]([^'"]*)['"]\s*)?\)\s*(?:\|\s*as_\w+\s*)?\}\}`)

// expandDbtEnvVars substitutes dbt env_var() calls. A variable that is unset and has
// no default is an error, as it is for dbt itself.
func expandDbtEnvVars(s string) (string, error) {
	var missing []string
	out := envVarCall.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarCall.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(parts[1]); ok {
			return value
		}
		if strings.Contains(match, ",") {
			return parts[2]
		}
		missing = append(missing, parts[1])
		return match
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("env_var not set: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// LoadProfile resolves a warehouse connection from <dir>/profiles.yml.
//
// With no profile name, the first profile (in file order) that has an output of a
// supported type is used, together with that output unless target is given. The
// target otherwise defaults to the profile's own target, then "dev".
func LoadProfile(dir, profileName, target string) (*WarehouseConfig, error) {
	if dir == "" {
		dir = DefaultProfilesDir()
	}
	path := filepath.Join(dir, ProfilesFile)

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: dbt %s not found at %s", ErrProfileNotFound, ProfilesFile, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s is empty", ErrProfileNotFound, path)
	}
	profiles := root.Content[0]

	if profileName == "" {
		profileName, target = firstSupportedProfile(profiles, target)
		if profileName == "" {
			return nil, fmt.Errorf("%w: no warehouse profile found in %s", ErrProfileNotFound, path)
		}
	}

	profile := mappingValue(profiles, profileName)
	if profile == nil {
		return nil, fmt.Errorf("%w: profile %q not in %s", ErrProfileNotFound, profileName, path)
	}
	outputs := mappingValue(profile, "outputs")
	if outputs == nil {
		return nil, fmt.Errorf("%w: profile %q has no outputs section", ErrProfileNotFound, profileName)
	}

	if target == "" {
		if t := mappingValue(profile, "target"); t != nil && t.Value != "" {
			target = t.Value
		} else {
			target = "dev"
		}
	}
	output := mappingValue(outputs, target)
	if output == nil {
		return nil, fmt.Errorf("%w: target %q not found in profile %q", ErrProfileNotFound, target, profileName)
	}

	fields := map[string]any{}
	if err := output.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode target %q of profile %q: %w", target, profileName, err)
	}

	wc, err := warehouseFromProfile(fields)
	if err != nil {
		return nil, fmt.Errorf("profile %q target %q: %w", profileName, target, err)
	}
	wc.ProfileName = profileName
	wc.Target = target
	return wc, nil
}

// firstSupportedProfile walks profiles in file order and returns the first one
// with an output of a supported type. When target is set it must be that output.
func firstSupportedProfile(profiles *yaml.Node, target string) (string, string) {
	for i := 0; i+1 < len(profiles.Content); i += 2 {
		name, profile := profiles.Content[i].Value, profiles.Content[i+1]
		outputs := mappingValue(profile, "outputs")
		if outputs == nil || outputs.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(outputs.Content); j += 2 {
			outName, out := outputs.Content[j].Value, outputs.Content[j+1]
			if target != "" && outName != target {
				continue
			}
			if t := mappingValue(out, "type"); t != nil && IsSupportedType(t.Value) {
				if target == "" {
					target = outName
				}
				return name, target
			}
		}
	}
	return "", target
}

// mappingValue returns the value node for key in a YAML mapping node.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// warehouseFromProfile maps a dbt output block onto WarehouseConfig. dbt adapters
// disagree on key names (pass/password, dbname/database, server/host), so all
// spellings are accepted.
func warehouseFromProfile(fields map[string]any) (*WarehouseConfig, error) {
	get := func(keys ...string) (string, error) {
		for _, k := range keys {
			if v, ok := fields[k]; ok && v != nil {
				return expandDbtEnvVars(cast.ToString(v))
			}
		}
		return "", nil
	}

	var errs []error
	str := func(keys ...string) string {
		v, err := get(keys...)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	wc := &WarehouseConfig{
		Type:                 str("type"),
		Account:              str("account"),
		Host:                 str("host", "server"),
		User:                 str("user", "username"),
		Password:             str("password", "pass"),
		PrivateKeyPath:       str("private_key_path"),
		PrivateKeyPassphrase: str("private_key_passphrase"),
		Warehouse:            str("warehouse"),
		Role:                 str("role"),
		Database:             str("database", "dbname"),
		Schema:               str("schema"),
		QueryTag:             str("query_tag"),
	}
	if port := str("port"); port != "" {
		p, err := cast.ToIntE(port)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid port %q", port))
		}
		wc.Port = p
	}
	if keepAlive := str("client_session_keep_alive"); keepAlive != "" {
		wc.ClientSessionKeepAlive = cast.ToBool(keepAlive)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if !IsSupportedType(wc.Type) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, wc.Type)
	}
	if wc.AuthMethod() == "" {
		return nil, ErrNoAuthMethod
	}
	return wc, nil
}
