package translator

import (
	"strconv"
	"strings"
)

// resolveSourcePath walks a dot-separated path ("data.officers.list")
// through a decoded JSON payload, returning (value, found). Array
// indices are not supported — sourcePath always names the array itself;
// iterating its elements is the caller's job.
func resolveSourcePath(payload rawPayload, path string) (any, bool) {
	if path == "" {
		return payload, true
	}
	segments := strings.Split(path, ".")
	var cur any = payload
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Translate runs the per-entity mapping stage (§4.3): each
// configured entity (officers/ships/docks) is located via its
// sourcePath, and every element is mapped field-by-field through
// fieldMap + transforms, defaulted, and given a refId built from
// idPrefix + the row's idField value. A row that isn't an object, or is
// missing idField, counts as errored and is skipped rather than
// aborting the whole run — §4.3's "partial success" contract.
func Translate(cfg *Config, payload rawPayload) (*TranslateResult, error) {
	result := &TranslateResult{Warnings: []string{}}
	data := &MappedImport{Version: cfg.Version, Source: cfg.SourceType}

	if v, ok := resolveSourcePath(payload, "exportDate"); ok {
		if s, ok := v.(string); ok {
			data.ExportDate = s
		}
	}

	entities := []struct {
		cfg  *EntityConfig
		dest *[]MappedEntity
		name string
	}{
		{cfg.Officers, &data.Officers, "officers"},
		{cfg.Ships, &data.Ships, "ships"},
		{cfg.Docks, &data.Docks, "docks"},
	}

	for _, e := range entities {
		if e.cfg == nil {
			continue
		}
		mapped, stats, warnings := translateEntity(e.cfg, payload, e.name)
		*e.dest = mapped
		result.Stats.Translated += stats.Translated
		result.Stats.Errored += stats.Errored
		result.Stats.Skipped += stats.Skipped
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Data = data
	result.Success = result.Stats.Translated > 0
	return result, nil
}

func translateEntity(cfg *EntityConfig, payload rawPayload, name string) ([]MappedEntity, Stats, []string) {
	var stats Stats
	var warnings []string

	raw, ok := resolveSourcePath(payload, cfg.SourcePath)
	if !ok {
		warnings = append(warnings, name+": sourcePath "+cfg.SourcePath+" not found")
		return nil, stats, warnings
	}
	items, ok := raw.([]any)
	if !ok {
		warnings = append(warnings, name+": sourcePath "+cfg.SourcePath+" is not an array")
		return nil, stats, warnings
	}

	out := make([]MappedEntity, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			stats.Errored++
			warnings = append(warnings, name+"["+strconv.Itoa(i)+"]: row is not an object")
			continue
		}

		idValue, ok := obj[cfg.IDField]
		if !ok || idValue == nil {
			stats.Errored++
			warnings = append(warnings, name+"["+strconv.Itoa(i)+"]: missing idField "+cfg.IDField)
			continue
		}

		fields := make(map[string]any, len(cfg.FieldMap)+len(cfg.Defaults))
		for destKey := range cfg.Defaults {
			fields[destKey] = cfg.Defaults[destKey]
		}
		for srcKey, destKey := range cfg.FieldMap {
			v, present := obj[srcKey]
			if !present {
				continue
			}
			if t, hasTransform := cfg.Transforms[destKey]; hasTransform {
				transformed, err := applyTransform(t, v, nil)
				if err != nil {
					stats.Errored++
					warnings = append(warnings, name+"["+strconv.Itoa(i)+"]: "+err.Error())
					continue
				}
				fields[destKey] = transformed
				continue
			}
			fields[destKey] = v
		}

		out = append(out, MappedEntity{
			RefID:  cfg.IDPrefix + toStringValue(idValue),
			Fields: fields,
		})
		stats.Translated++
	}

	return out, stats, warnings
}
