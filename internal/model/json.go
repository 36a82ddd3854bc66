package model

import "encoding/json"

// MarshalJSON flattens the known flag plus any preserved unknown flags
// into a single object, so storage.json round-trips keys this version
// of the bridge does not recognise.
func (f FeatureFlags) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.RawFlags)+1)
	for k, v := range f.RawFlags {
		out[k] = v
	}
	out["cover_do_not_invert_percentage"] = f.CoverDoNotInvertPercentage
	return json.Marshal(out)
}

// UnmarshalJSON extracts the known flag and stashes everything else in
// RawFlags so a later MarshalJSON round-trips it untouched.
func (f *FeatureFlags) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["cover_do_not_invert_percentage"].(bool); ok {
		f.CoverDoNotInvertPercentage = v
	}
	delete(raw, "cover_do_not_invert_percentage")
	if len(raw) > 0 {
		f.RawFlags = raw
	}
	return nil
}
