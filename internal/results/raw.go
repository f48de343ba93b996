// Package results normalizes exercise result payloads.
//
// The grading pipeline has stored results in several shapes over time: plain
// boolean arrays, {"passed": true, "score": 95} objects, {"test_results": [...]}
// wrappers, arbitrary key/value objects and bare scalars. The shape is detected
// once, when the payload enters the process (FromJSON, FromValue or
// UnmarshalJSON), and the resulting Raw is reduced to an ordered []bool by
// Normalize. None of the functions in this package return errors.
package results

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the shape a results payload arrived in.
type Kind int

const (
	// KindEmpty is a missing or falsy payload (null, "", 0, false).
	KindEmpty Kind = iota
	// KindSequence is a JSON array.
	KindSequence
	// KindPassedFlag is an object carrying a "passed" key.
	KindPassedFlag
	// KindTestResults is an object carrying a "test_results" array.
	KindTestResults
	// KindObject is any other object; its values are used in document order.
	KindObject
	// KindScalar is a truthy number, string or boolean.
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindSequence:
		return "sequence"
	case KindPassedFlag:
		return "passed_flag"
	case KindTestResults:
		return "test_results"
	case KindObject:
		return "object"
	case KindScalar:
		return "scalar"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Raw is a results payload whose shape has been detected. The zero value is
// an empty payload.
type Raw struct {
	kind   Kind
	values []bool
}

// Empty returns a payload carrying no results.
func Empty() Raw {
	return Raw{kind: KindEmpty}
}

// Sequence returns an array-shaped payload.
func Sequence(truths ...bool) Raw {
	return Raw{kind: KindSequence, values: clone(truths)}
}

// PassedFlag returns a {"passed": passed} payload.
func PassedFlag(passed bool) Raw {
	return Raw{kind: KindPassedFlag, values: []bool{passed}}
}

// TestResultsWrapper returns a {"test_results": [...]} payload.
func TestResultsWrapper(truths ...bool) Raw {
	return Raw{kind: KindTestResults, values: clone(truths)}
}

// GenericObject returns an object payload whose values, in order, have the
// given truthiness.
func GenericObject(truths ...bool) Raw {
	return Raw{kind: KindObject, values: clone(truths)}
}

// Scalar returns a bare scalar payload. A falsy scalar carries no results,
// so Scalar(false) is Empty().
func Scalar(truthy bool) Raw {
	if !truthy {
		return Empty()
	}
	return Raw{kind: KindScalar, values: []bool{true}}
}

// Kind reports the detected shape.
func (r Raw) Kind() Kind {
	return r.kind
}

// RawResults lets a Raw be passed wherever a Holder is expected.
func (r Raw) RawResults() Raw {
	return r
}

// UnmarshalJSON detects the payload shape. It never fails.
func (r *Raw) UnmarshalJSON(data []byte) error {
	*r = FromJSON(data)
	return nil
}

// MarshalJSON encodes the normalized sequence.
func (r Raw) MarshalJSON() ([]byte, error) {
	return json.Marshal(Normalize(r))
}

func clone(truths []bool) []bool {
	out := make([]bool, len(truths))
	copy(out, truths)
	return out
}
