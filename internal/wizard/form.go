// Package wizard declares the instance configuration form: its fields, the
// visibility rules between them, and how a completed form becomes a job payload.
package wizard

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Form field keys. These are also the wire keys of the submitted payload.
const (
	KeyNamePrefix = "display_name_prefix"
	KeyShape      = "shape"
	KeyOCPUs      = "ocpus"
	KeyMemory     = "memory_in_gbs"
	KeyBootVolume = "boot_volume_size"
	KeyMinDelay   = "min_delay"
	KeyMaxDelay   = "max_delay"
	KeyOSVersion  = "os_name_version"
)

// Known shapes.
const (
	ShapeFlex  = "VM.Standard.A1.Flex"
	ShapeMicro = "VM.Standard.E2.1.Micro"
)

// Defaults applied at submission when the form is silent.
const (
	DefaultMinDelay  = 45
	DefaultMaxDelay  = 90
	DefaultOSVersion = "Canonical Ubuntu-22.04"
)

// IsFlexShape reports whether a shape has operator-selectable CPU and memory.
func IsFlexShape(shape string) bool {
	return strings.Contains(shape, "Flex")
}

// Option is one selectable value for a field.
type Option struct {
	Value string
	Label string
}

// Field describes one wizard field: its choices and when it is shown.
// A field hidden by its visibility predicate does not count toward
// submit-eligibility.
type Field struct {
	Key      string
	Title    string
	Options  []Option
	Visible  func(form map[string]string) bool
	Required bool
}

// Spec returns the wizard's declared fields in render order.
func Spec() []Field {
	always := func(map[string]string) bool { return true }
	flexOnly := func(form map[string]string) bool { return IsFlexShape(form[KeyShape]) }
	shapeChosen := func(form map[string]string) bool { return form[KeyShape] != "" }

	return []Field{
		{
			Key:   KeyShape,
			Title: "Machine shape",
			Options: []Option{
				{Value: ShapeFlex, Label: "ARM"},
				{Value: ShapeMicro, Label: "AMD"},
			},
			Visible:  always,
			Required: true,
		},
		{
			Key:   KeyOCPUs,
			Title: "OCPU count",
			Options: []Option{
				{Value: "1", Label: "1 OCPU"},
				{Value: "2", Label: "2 OCPU"},
				{Value: "3", Label: "3 OCPU"},
				{Value: "4", Label: "4 OCPU"},
			},
			Visible:  flexOnly,
			Required: true,
		},
		{
			Key:   KeyMemory,
			Title: "Memory",
			Options: []Option{
				{Value: "6", Label: "6 GB"},
				{Value: "12", Label: "12 GB"},
				{Value: "18", Label: "18 GB"},
				{Value: "24", Label: "24 GB"},
			},
			Visible:  flexOnly,
			Required: true,
		},
		{
			Key:   KeyBootVolume,
			Title: "Boot volume",
			Options: []Option{
				{Value: "50", Label: "50 GB"},
				{Value: "100", Label: "100 GB"},
				{Value: "150", Label: "150 GB"},
				{Value: "200", Label: "200 GB"},
			},
			Visible:  shapeChosen,
			Required: true,
		},
	}
}

// Seed returns the initial form for a new wizard: a generated name and the
// default shape.
func Seed(now time.Time) map[string]string {
	return map[string]string{
		KeyNamePrefix: "snatch-" + now.Format("0102-1504"),
		KeyShape:      ShapeFlex,
	}
}

// SetField records a field value. Changing the shape invalidates the CPU and
// memory choices made for the previous machine class.
func SetField(form map[string]string, key, value string) {
	form[key] = value
	if key == KeyShape {
		delete(form, KeyOCPUs)
		delete(form, KeyMemory)
	}
}

// SubmitEligible reports whether every currently-visible required field has a
// non-empty value.
func SubmitEligible(form map[string]string) bool {
	for _, f := range Spec() {
		if f.Required && f.Visible(form) && form[f.Key] == "" {
			return false
		}
	}
	return true
}

// ValidationError flags a form value that failed numeric coercion.
type ValidationError struct {
	Key   string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %q for parameter %s", e.Value, e.Key)
}

// BuildPayload normalizes a completed form into the job payload the panel
// expects. CPU and memory become floats, sizes and delays become integers,
// and the fixed micro shape forces ocpus=1, memory=1 regardless of prior
// (now-irrelevant) form values.
func BuildPayload(form map[string]string) (map[string]any, error) {
	payload := make(map[string]any, len(form)+3)
	for k, v := range form {
		payload[k] = v
	}
	if _, ok := payload[KeyMinDelay]; !ok {
		payload[KeyMinDelay] = strconv.Itoa(DefaultMinDelay)
	}
	if _, ok := payload[KeyMaxDelay]; !ok {
		payload[KeyMaxDelay] = strconv.Itoa(DefaultMaxDelay)
	}

	shape, _ := payload[KeyShape].(string)
	if strings.Contains(shape, "E2.1.Micro") {
		payload[KeyOCPUs] = "1"
		payload[KeyMemory] = "1"
	}

	for _, key := range []string{KeyOCPUs, KeyMemory} {
		raw, ok := payload[key].(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ValidationError{Key: key, Value: raw}
		}
		payload[key] = n
	}
	for _, key := range []string{KeyBootVolume, KeyMinDelay, KeyMaxDelay} {
		raw, ok := payload[key].(string)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &ValidationError{Key: key, Value: raw}
		}
		payload[key] = n
	}

	if _, ok := payload[KeyOSVersion]; !ok {
		payload[KeyOSVersion] = DefaultOSVersion
	}
	return payload, nil
}
