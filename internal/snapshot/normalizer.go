// Package snapshot converts raw adapter permission payloads into the
// canonical versioned snapshot schema. Normalization is a pure
// transformation: malformed input fails fast with a typed error, while
// known degraded input is recorded as a warning code in the snapshot's
// errors list.
package snapshot

import (
	"sort"
	"strings"
	"time"

	"dbfleet/internal/domain"
)

// engineNormalizer maps adapter-specific field names in the payload's data
// section into the canonical categories shape for one engine type.
type engineNormalizer func(data map[string]interface{}, warnings *[]string) (map[string]interface{}, error)

var engineNormalizers = map[string]engineNormalizer{
	domain.DBTypeMySQL:      normalizeMySQL,
	domain.DBTypePostgreSQL: normalizePostgreSQL,
	domain.DBTypeSQLServer:  normalizeSQLServer,
	domain.DBTypeOracle:     normalizeOracle,
}

// Normalize converts a raw adapter payload for one account into a canonical
// PermissionSnapshot. rawPayload must be a mapping; the payload's version
// must be exactly domain.SnapshotVersion. The returned snapshot carries no
// ID or AccountID; the ingestion layer assigns those before persisting.
func Normalize(rawPayload interface{}, dbType string) (*domain.PermissionSnapshot, error) {
	raw, ok := rawPayload.(map[string]interface{})
	if !ok {
		return nil, domain.ErrSchemaType("raw payload must be a mapping, got %T", rawPayload)
	}

	norm, ok := engineNormalizers[dbType]
	if !ok {
		return nil, domain.ErrValidation("no normalizer for engine type %q", dbType)
	}

	version, err := intField(raw, "version")
	if err != nil {
		return nil, err
	}
	if version != domain.SnapshotVersion {
		return nil, domain.ErrSchemaVersion("unsupported snapshot version %d (supported: %d)", version, domain.SnapshotVersion)
	}

	data, err := mapField(raw, "data")
	if err != nil {
		return nil, err
	}

	var warnings []string
	if w, present := raw["warnings"]; present {
		list, ok := w.([]interface{})
		if !ok {
			return nil, domain.ErrSchemaType("warnings must be a list, got %T", w)
		}
		for _, item := range list {
			code, ok := item.(string)
			if !ok {
				return nil, domain.ErrSchemaType("warning code must be a string, got %T", item)
			}
			warnings = append(warnings, code)
		}
	}

	categories, err := norm(data, &warnings)
	if err != nil {
		return nil, err
	}

	typeSpecific, err := NormalizeTypeSpecific(raw["type_specific"])
	if err != nil {
		return nil, err
	}

	var extra map[string]interface{}
	if e, present := raw["extra"]; present && e != nil {
		extra, ok = e.(map[string]interface{})
		if !ok {
			return nil, domain.ErrSchemaType("extra must be a mapping, got %T", e)
		}
	}

	meta, err := normalizeMeta(raw)
	if err != nil {
		return nil, err
	}

	return &domain.PermissionSnapshot{
		Version:      domain.SnapshotVersion,
		Categories:   categories,
		TypeSpecific: typeSpecific,
		Extra:        extra,
		Errors:       warnings,
		Meta:         meta,
	}, nil
}

// NormalizeTypeSpecific validates and version-stamps the engine-only
// attribute block. nil passes through as nil. A mapping without a version
// field is stamped with the current version; a mapping carrying any other
// integer version is rejected outright, so a future or past schema is never
// silently read as the current one.
func NormalizeTypeSpecific(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, domain.ErrSchemaType("type_specific must be a mapping or null, got %T", v)
	}

	out := make(map[string]interface{}, len(m)+1)
	for k, val := range m {
		out[k] = val
	}

	raw, present := out["version"]
	if !present {
		out["version"] = domain.TypeSpecificVersion
		return out, nil
	}

	version, ok := asInt(raw)
	if !ok {
		return nil, domain.ErrSchemaType("type_specific.version must be an integer, got %T", raw)
	}
	if version != domain.TypeSpecificVersion {
		return nil, domain.ErrSchemaVersion("unsupported type_specific version %d (supported: %d)", version, domain.TypeSpecificVersion)
	}
	out["version"] = version
	return out, nil
}

func normalizeMeta(raw map[string]interface{}) (domain.SnapshotMeta, error) {
	meta := domain.SnapshotMeta{CollectedAt: time.Now().UTC()}

	if a, present := raw["adapter"]; present && a != nil {
		m, ok := a.(map[string]interface{})
		if !ok {
			return meta, domain.ErrSchemaType("adapter must be a mapping, got %T", a)
		}
		if name, ok := m["name"].(string); ok {
			meta.AdapterName = name
		}
		if ver, ok := m["version"].(string); ok {
			meta.AdapterVersion = ver
		}
	}

	if c, present := raw["collected_at"]; present && c != nil {
		s, ok := c.(string)
		if !ok {
			return meta, domain.ErrSchemaType("collected_at must be an RFC3339 string, got %T", c)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return meta, domain.ErrValidation("collected_at: %v", err)
		}
		meta.CollectedAt = t.UTC()
	}

	return meta, nil
}

// privilegeList validates a category value that must be a sequence of
// privilege entries. Entries are either bare name strings or mappings with
// a "privilege" name and a "granted" flag; both forms are preserved as-is
// for the facts builder to flatten. An entry of any other shape is kept but
// flagged with a warning code so degraded adapter output is visible without
// blocking the snapshot.
func privilegeList(data map[string]interface{}, field string, warnings *[]string) ([]interface{}, error) {
	v, present := data[field]
	if !present || v == nil {
		return []interface{}{}, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, domain.ErrSchemaType("%s must be a sequence, got %T", field, v)
	}
	for _, entry := range list {
		switch e := entry.(type) {
		case string:
		case map[string]interface{}:
			if _, ok := e["privilege"].(string); !ok {
				*warnings = appendWarning(*warnings, domain.WarnUnknownPrivilegeForm)
			}
		default:
			*warnings = appendWarning(*warnings, domain.WarnUnknownPrivilegeForm)
		}
	}
	return list, nil
}

// databaseMap validates a category value that must be a mapping from
// database name to a privilege sequence.
func databaseMap(data map[string]interface{}, field string, warnings *[]string) (map[string]interface{}, error) {
	v, present := data[field]
	if !present || v == nil {
		return map[string]interface{}{}, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, domain.ErrSchemaType("%s must be a mapping of database to privileges, got %T", field, v)
	}
	out := make(map[string]interface{}, len(m))
	for dbName, entry := range m {
		list, ok := entry.([]interface{})
		if !ok {
			return nil, domain.ErrSchemaType("%s[%s] must be a sequence, got %T", field, dbName, entry)
		}
		for _, item := range list {
			switch item.(type) {
			case string, map[string]interface{}:
			default:
				*warnings = appendWarning(*warnings, domain.WarnUnknownPrivilegeForm)
			}
		}
		out[dbName] = list
	}
	return out, nil
}

// closedFieldSet rejects data fields the engine's sub-normalizer has no
// mapping for. Categories are a closed set: a section the normalizer does
// not understand fails the snapshot instead of vanishing from it.
func closedFieldSet(data map[string]interface{}, known ...string) error {
	var unknown []string
	for field := range data {
		recognized := false
		for _, k := range known {
			if field == k {
				recognized = true
				break
			}
		}
		if !recognized {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return domain.ErrSchemaType("unrecognized data fields: %s", strings.Join(unknown, ", "))
}

func appendWarning(warnings []string, code string) []string {
	for _, w := range warnings {
		if w == code {
			return warnings
		}
	}
	return append(warnings, code)
}

func mapField(raw map[string]interface{}, field string) (map[string]interface{}, error) {
	v, present := raw[field]
	if !present || v == nil {
		return map[string]interface{}{}, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, domain.ErrSchemaType("%s must be a mapping, got %T", field, v)
	}
	return m, nil
}

func intField(raw map[string]interface{}, field string) (int, error) {
	v, present := raw[field]
	if !present || v == nil {
		return 0, domain.ErrSchemaVersion("%s is required", field)
	}
	n, ok := asInt(v)
	if !ok {
		return 0, domain.ErrSchemaType("%s must be an integer, got %T", field, v)
	}
	return n, nil
}

// asInt accepts the integer encodings JSON decoding produces.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}
