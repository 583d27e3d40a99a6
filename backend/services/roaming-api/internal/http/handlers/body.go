package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/apierr"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/http/routing"
)

const maxBodySize = 1 << 20

// maxDurationSeconds is the largest number of seconds a time.Duration holds.
const maxDurationSeconds = float64(math.MaxInt64 / int64(time.Second))

// body is a JSON object whose fields are decoded one at a time, so each
// field can fail with its own message.
type body map[string]json.RawMessage

// readBody decodes the request body. An empty body is an empty object when
// optional is set.
func readBody(req *routing.Request, optional bool) (body, *apierr.Error) {
	if req.Body == nil {
		if optional {
			return body{}, nil
		}
		return nil, apierr.BadRequest("Missing JSON request body!")
	}
	raw, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
	if err != nil {
		return nil, apierr.BadRequest("Could not read request body!")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if optional {
			return body{}, nil
		}
		return nil, apierr.BadRequest("Missing JSON request body!")
	}
	var b body
	if err := json.Unmarshal(raw, &b); err != nil || b == nil {
		return nil, apierr.BadRequest("Invalid JSON request body!")
	}
	return b, nil
}

func (b body) has(key string) bool {
	raw, ok := b[key]
	return ok && string(raw) != "null"
}

func (b body) str(key string) (string, bool, *apierr.Error) {
	if !b.has(key) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(b[key], &s); err != nil {
		return "", false, apierr.BadRequest("Invalid '%s' property!", key)
	}
	return s, true, nil
}

// field parses an optional string field with parse.
func field[T any](b body, key string, parse func(string) (T, error)) (T, bool, *apierr.Error) {
	var zero T
	s, ok, aerr := b.str(key)
	if aerr != nil || !ok {
		return zero, false, aerr
	}
	v, err := parse(s)
	if err != nil {
		return zero, false, apierr.BadRequest("Invalid '%s' property!", key)
	}
	return v, true, nil
}

// mandatory is field for required properties.
func mandatory[T any](b body, key string, parse func(string) (T, error)) (T, *apierr.Error) {
	v, ok, aerr := field(b, key, parse)
	if aerr != nil {
		return v, aerr
	}
	if !ok {
		return v, apierr.BadRequest("Missing '%s' property!", key)
	}
	return v, nil
}

// list parses an optional array of strings.
func list[T any](b body, key string, parse func(string) (T, error)) ([]T, *apierr.Error) {
	if !b.has(key) {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal(b[key], &raw); err != nil {
		return nil, apierr.BadRequest("Invalid '%s' property!", key)
	}
	out := make([]T, 0, len(raw))
	for _, s := range raw {
		v, err := parse(s)
		if err != nil {
			return nil, apierr.BadRequest("Invalid '%s' property!", key)
		}
		out = append(out, v)
	}
	return out, nil
}

// number parses an optional JSON number, also accepting numeric strings.
func (b body) number(key string) (float64, bool, *apierr.Error) {
	if !b.has(key) {
		return 0, false, nil
	}
	var f float64
	if err := json.Unmarshal(b[key], &f); err == nil {
		return f, true, nil
	}
	var s string
	if err := json.Unmarshal(b[key], &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true, nil
		}
	}
	return 0, false, apierr.BadRequest("Invalid '%s' property!", key)
}

// seconds parses an optional duration given in seconds.
func (b body) seconds(key string) (time.Duration, bool, *apierr.Error) {
	f, ok, aerr := b.number(key)
	if aerr != nil || !ok {
		return 0, ok, aerr
	}
	if !(f >= 0 && f <= maxDurationSeconds) {
		return 0, false, apierr.BadRequest("Invalid '%s' property!", key)
	}
	return time.Duration(f * float64(time.Second)), true, nil
}

// object returns a nested object.
func (b body) object(key string) (body, bool, *apierr.Error) {
	if !b.has(key) {
		return nil, false, nil
	}
	var inner body
	if err := json.Unmarshal(b[key], &inner); err != nil || inner == nil {
		return nil, false, apierr.BadRequest("Invalid '%s' property!", key)
	}
	return inner, true, nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}

func parseString(s string) (string, error) { return s, nil }
