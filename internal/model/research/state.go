package research

import "fmt"

// Well-known keys of the aggregated state.
const (
	KeyAnalysts    = "analysts"
	KeyFinalReport = "final_report"
)

// State is the aggregated result of one run. Keys other than the well-known
// ones are passed through untouched.
type State map[string]any

// NewState returns an empty state.
func NewState() State {
	return make(State)
}

// Merge shallow-merges update into s; later values win. It returns the keys
// present in s before the merge that update did not carry.
func (s State) Merge(update map[string]any) []string {
	var omitted []string
	for key := range s {
		if _, ok := update[key]; !ok {
			omitted = append(omitted, key)
		}
	}
	for key, value := range update {
		s[key] = value
	}
	return omitted
}

// Clone returns a shallow copy.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// FinalReport returns the markdown report or "" when absent.
func (s State) FinalReport() string {
	report, _ := s[KeyFinalReport].(string)
	return report
}

// Analysts decodes the "analysts" sequence. Records that are not objects
// are skipped; missing fields decode as empty strings.
func (s State) Analysts() []Analyst {
	raw, ok := s[KeyAnalysts]
	if !ok || raw == nil {
		return nil
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []map[string]any:
		items = make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
	case []Analyst:
		return append([]Analyst(nil), v...)
	default:
		return nil
	}

	analysts := make([]Analyst, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		analysts = append(analysts, Analyst{
			Name:        stringField(record, "name"),
			Affiliation: stringField(record, "affiliation"),
			Role:        stringField(record, "role"),
			Description: stringField(record, "description"),
		})
	}
	return analysts
}

func stringField(record map[string]any, key string) string {
	switch v := record[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
