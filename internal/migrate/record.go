package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ahrav/go-adhere/internal/domain"
)

// legacyField is the schema key that held free-text frequency phrases.
const legacyField = "frequency"

// Change records what happened to one record.
type Change struct {
	ConfigID string  `json:"configId"`
	Migrated bool    `json:"migrated"`
	Result   *Result `json:"result,omitempty"`

	// Rewritten is the validated record with structured fields.
	Rewritten json.RawMessage `json:"-"`
}

// Record rewrites a legacy configuration record, replacing schema.frequency
// with structured fields, and validates the outcome. Records without a phrase
// are validated and passed through.
func Record(raw []byte) (*domain.AlgorithmConfig, Change, error) {
	var rec map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, Change{}, fmt.Errorf("decode record: %w", err)
	}
	id, _ := rec["configId"].(string)
	change := Change{ConfigID: id}

	schema, _ := rec["schema"].(map[string]any)
	phrase, ok := schema[legacyField].(string)
	if ok {
		res, err := Parse(phrase)
		if err != nil {
			return nil, change, fmt.Errorf("config %s: %w", id, err)
		}
		method := methodOf(rec)
		if err := apply(schema, method, res); err != nil {
			return nil, change, fmt.Errorf("config %s: %w", id, err)
		}
		delete(schema, legacyField)
		change.Migrated = true
		change.Result = &res
	}

	out, err := json.Marshal(rec)
	if err != nil {
		return nil, change, fmt.Errorf("encode record: %w", err)
	}
	cfg, err := domain.ParseConfig(out)
	if err != nil {
		return nil, change, err
	}
	change.Rewritten = out
	return cfg, change, nil
}

// Records migrates a JSON array of records. It stops at the first failure.
func Records(data []byte) ([]*domain.AlgorithmConfig, []Change, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, nil, fmt.Errorf("decode records: %w", err)
	}
	cfgs := make([]*domain.AlgorithmConfig, 0, len(raws))
	changes := make([]Change, 0, len(raws))
	for i, raw := range raws {
		cfg, change, err := Record(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i, err)
		}
		cfgs = append(cfgs, cfg)
		changes = append(changes, change)
	}
	return cfgs, changes, nil
}

func methodOf(rec map[string]any) domain.AlgorithmKind {
	for _, key := range []string{"scoringMethod", "method"} {
		if m, ok := rec[key].(string); ok && m != "" {
			return domain.AlgorithmKind(m)
		}
	}
	return ""
}

// apply writes the structured form of res into schema for method.
func apply(schema map[string]any, method domain.AlgorithmKind, res Result) error {
	switch res.Kind {
	case KindWeeklyLimit:
		switch method {
		case domain.KindWeeklyElimination:
			schema["mode"] = domain.ModeLimit
			schema["weeklyLimit"] = res.Limit
			schema["limitComparison"] = string(domain.OpLessEqual)
		case domain.KindConstrainedWeeklyAllowance:
			schema["weeklyAllowance"] = res.Limit
		default:
			return fmt.Errorf("weekly limit phrase %q does not apply to %s", res.Phrase, method)
		}
	case KindRequirement:
		req := res.Requirement
		switch method {
		case domain.KindMinimumFrequency, domain.KindZoneBased3Tier, domain.KindZoneBased5Tier,
			domain.KindCompositeWeighted, domain.KindCategoricalFilterThreshold:
			schema["requiredDays"] = req.RequiredDays
			schema["totalDays"] = req.TotalDays
			schema["frequencyMode"] = string(req.Mode)
			if err := requirementMode(schema, method); err != nil {
				return fmt.Errorf("phrase %q: %w", res.Phrase, err)
			}
		case domain.KindProportionalFrequencyHybrid:
			if req.Mode != domain.FrequencyCount {
				return fmt.Errorf("phrase %q does not apply to %s", res.Phrase, method)
			}
			schema["requiredQualifyingDays"] = req.RequiredDays
		case domain.KindWeeklyElimination:
			if req.Mode != domain.FrequencyAvoidance {
				return fmt.Errorf("phrase %q does not apply to %s", res.Phrase, method)
			}
			schema["mode"] = domain.ModeElimination
		default:
			return fmt.Errorf("frequency phrase %q does not apply to %s", res.Phrase, method)
		}
	}
	return nil
}

// requirementMode switches methods whose frequency evaluation is a mode of
// their own onto that mode, so the requirement is actually applied.
func requirementMode(schema map[string]any, method domain.AlgorithmKind) error {
	switch method {
	case domain.KindZoneBased3Tier, domain.KindZoneBased5Tier:
		if targets, _ := schema["targetZones"].([]any); len(targets) == 0 {
			return fmt.Errorf("%s needs targetZones to count qualifying days", method)
		}
		schema["mode"] = domain.ModeFrequency
	case domain.KindCompositeWeighted:
		schema["mode"] = domain.ModeFrequency
	case domain.KindCategoricalFilterThreshold:
		schema["mode"] = domain.ModeDaily
	}
	return nil
}
