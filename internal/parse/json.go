package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gyeh/perfstats/internal/model"
	"github.com/gyeh/perfstats/internal/normalize"
)

const rttsField = "rtts"

// jsonTagFields are read as categorical tags rather than metrics.
var jsonTagFields = map[string]bool{
	model.TagMessageSize: true,
	model.TagDataType:    true,
	model.TagTimestamp:   true,
}

func (p *Parser) parseJSON(path string, content []byte) ([]model.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fail(path, "", "decode json: %v", err)
	}
	if obj == nil {
		return nil, fail(path, "", "json document is not an object")
	}

	base := model.NewRecord(path)
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		rtts    []float64
		hasRTTs bool
	)
	for _, k := range keys {
		raw := obj[k]
		if k == rttsField {
			vals, err := parseRTTs(path, raw)
			if err != nil {
				return nil, err
			}
			rtts, hasRTTs = vals, true
			continue
		}
		if jsonTagFields[k] {
			v, ok := scalar(raw)
			if !ok {
				return nil, fail(path, k, "tag is not a scalar")
			}
			if k == model.TagDataType {
				v = model.String(normalize.Label(v.String()))
			}
			base.Tags[k] = v
			continue
		}
		name, v, err := jsonMetric(k, raw)
		if err != nil {
			p.diag.Warn(path, k, err.Error())
			continue
		}
		base.Metrics[name] = v
	}

	if !hasRTTs {
		return []model.Record{base}, nil
	}
	out := make([]model.Record, len(rtts))
	for i, rtt := range rtts {
		r := base.Clone()
		r.Metrics[model.MetricRTT] = model.Float(rtt)
		r.Tags[model.TagIsFirst] = model.Bool(i == 0)
		r.Tags[model.TagSample] = model.Int(int64(i))
		out[i] = r
	}
	return out, nil
}

// parseRTTs converts the per-attempt sequence into canonical durations.
func parseRTTs(path string, raw any) ([]float64, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, fail(path, rttsField, "not an array")
	}
	if len(arr) == 0 {
		return nil, fail(path, rttsField, "empty sample sequence")
	}
	out := make([]float64, len(arr))
	for i, item := range arr {
		var s string
		switch x := item.(type) {
		case string:
			s = x
		case json.Number:
			s = x.String()
		default:
			return nil, fail(path, rttsField, "sample %d is not a duration", i)
		}
		d, err := model.ParseDuration(s)
		if err != nil {
			return nil, fail(path, rttsField, "sample %d: %v", i, err)
		}
		out[i] = d.Canonical()
	}
	return out, nil
}

// jsonMetric converts one field to a metric. Names ending in a unit suffix
// ("marshal_time_ns") are converted to the canonical unit under the base
// name; unit-suffixed strings ("12.3ms") are parsed as durations.
func jsonMetric(name string, raw any) (string, model.Value, error) {
	switch x := raw.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return "", model.Value{}, fmt.Errorf("invalid number %q", x.String())
		}
		if base, unit, ok := model.UnitBySuffix(name); ok {
			return base, model.Float(model.Duration{Value: f, Unit: unit}.Canonical()), nil
		}
		return name, number(x, f), nil
	case string:
		if model.HasUnitSuffix(x) {
			if d, err := model.ParseDuration(x); err == nil {
				return name, model.Float(d.Canonical()), nil
			}
		}
		return name, model.String(x), nil
	case bool:
		return name, model.Bool(x), nil
	case nil:
		return name, model.NA(), nil
	}
	return "", model.Value{}, fmt.Errorf("unsupported %T value", raw)
}

// scalar converts a JSON scalar into a tag value.
func scalar(raw any) (model.Value, bool) {
	switch x := raw.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return model.Value{}, false
		}
		return number(x, f), true
	case string:
		return model.String(x), true
	case bool:
		return model.Bool(x), true
	}
	return model.Value{}, false
}

func number(n json.Number, f float64) model.Value {
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return model.Int(i)
		}
	}
	return model.Float(f)
}
