// Package record turns raw `task export` records into canonical tasks.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"taskbridge/internal/model"
	"taskbridge/internal/statusutil"
)

// Raw is one element of `task export` output. Every field is optional as far as
// decoding goes; Normalize decides what is required.
type Raw struct {
	ID          int             `json:"id"`
	UUID        string          `json:"uuid"`
	Description string          `json:"description"`
	Project     string          `json:"project"`
	Priority    string          `json:"priority"`
	Tags        []string        `json:"tags"`
	Status      string          `json:"status"`
	Wait        string          `json:"wait"`
	Entry       string          `json:"entry"`
	End         string          `json:"end"`
	Modified    string          `json:"modified"`
	Due         string          `json:"due"`
	Urgency     float64         `json:"urgency"`
	Annotations []RawAnnotation `json:"annotations"`

	// DecodeError is set when the element could not be decoded into Raw, for
	// example a field of the wrong JSON type. Normalize rejects such records.
	DecodeError string `json:"-"`
}

type RawAnnotation struct {
	Description string `json:"description"`
	Entry       string `json:"entry"`
}

// MalformedRecordError reports a record that cannot be turned into a task.
type MalformedRecordError struct {
	// Index is the record's position in the export, or -1 when unknown.
	Index  int    `json:"index"`
	UUID   string `json:"uuid,omitempty"`
	Reason string `json:"reason"`
}

func (e *MalformedRecordError) Error() string {
	switch {
	case e.UUID != "" && e.Index >= 0:
		return fmt.Sprintf("malformed record #%d (%s): %s", e.Index, e.UUID, e.Reason)
	case e.UUID != "":
		return fmt.Sprintf("malformed record (%s): %s", e.UUID, e.Reason)
	case e.Index >= 0:
		return fmt.Sprintf("malformed record #%d: %s", e.Index, e.Reason)
	default:
		return "malformed record: " + e.Reason
	}
}

// DecodeExport parses export output. Taskwarrior prints a JSON array with
// rc.json.array=on and one object per line otherwise; both are accepted. Blank
// output is an empty export. Elements are decoded one by one: an element with
// ill-typed fields comes back with DecodeError set instead of failing the whole
// export. Only output that is not valid JSON is an error.
func DecodeExport(b []byte) ([]Raw, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}

	var elems []json.RawMessage
	if b[0] == '[' {
		if err := json.Unmarshal(b, &elems); err != nil {
			return nil, fmt.Errorf("decode export: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(b))
		for {
			var m json.RawMessage
			err := dec.Decode(&m)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("decode export: %w", err)
			}
			elems = append(elems, m)
		}
	}

	out := make([]Raw, 0, len(elems))
	for _, m := range elems {
		out = append(out, decodeRaw(m))
	}
	return out, nil
}

func decodeRaw(m json.RawMessage) Raw {
	var r Raw
	err := json.Unmarshal(m, &r)
	if err == nil {
		return r
	}
	bad := Raw{DecodeError: err.Error()}
	var head struct {
		UUID json.RawMessage `json:"uuid"`
	}
	if json.Unmarshal(m, &head) == nil && len(head.UUID) > 0 {
		_ = json.Unmarshal(head.UUID, &bad.UUID)
	}
	return bad
}

// Normalize maps r onto a task, filling defaults for every optional field. It
// never modifies r; slices are copied.
func Normalize(r Raw) (model.Task, error) {
	if r.DecodeError != "" {
		return model.Task{}, &MalformedRecordError{Index: -1, UUID: strings.TrimSpace(r.UUID), Reason: r.DecodeError}
	}
	desc := strings.TrimSpace(r.Description)
	if desc == "" {
		return model.Task{}, &MalformedRecordError{Index: -1, UUID: strings.TrimSpace(r.UUID), Reason: "missing description"}
	}

	project := strings.TrimSpace(r.Project)
	if project == "" {
		project = model.DefaultProject
	}

	priority, err := statusutil.NormalizePriority(r.Priority)
	if err != nil || priority == "" {
		priority = model.PriorityMedium
	}

	annotations := make([]model.Annotation, 0, len(r.Annotations))
	for _, a := range r.Annotations {
		annotations = append(annotations, model.Annotation{
			Description: a.Description,
			Entry:       parseLenient(a.Entry),
		})
	}

	full := desc
	if len(annotations) > 0 && strings.TrimSpace(annotations[0].Description) != "" {
		full = annotations[0].Description
	}

	return model.Task{
		ID:              r.ID,
		UUID:            strings.TrimSpace(r.UUID),
		Description:     desc,
		FullDescription: full,
		Project:         project,
		Priority:        priority,
		Tags:            normalizeTags(r.Tags),
		Status:          statusutil.NormalizeStatus(r.Status),
		Wait:            strings.TrimSpace(r.Wait),
		Entry:           parseLenient(r.Entry),
		End:             parseLenient(r.End),
		Modified:        parseLenient(r.Modified),
		Due:             parseLenient(r.Due),
		Urgency:         r.Urgency,
		Annotations:     annotations,
	}, nil
}

// NormalizeAll normalizes an export. Deleted records are dropped; records that fail
// to normalize are reported individually and do not affect the others.
func NormalizeAll(raws []Raw) ([]model.Task, []*MalformedRecordError) {
	tasks := make([]model.Task, 0, len(raws))
	var skipped []*MalformedRecordError
	for i, r := range raws {
		if statusutil.NormalizeStatus(r.Status) == model.StatusDeleted {
			continue
		}
		t, err := Normalize(r)
		if err != nil {
			var mre *MalformedRecordError
			if errors.As(err, &mre) {
				cp := *mre
				cp.Index = i
				skipped = append(skipped, &cp)
			} else {
				skipped = append(skipped, &MalformedRecordError{Index: i, UUID: r.UUID, Reason: err.Error()})
			}
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, skipped
}

func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// parseLenient treats unparseable timestamps as absent.
func parseLenient(s string) model.Timestamp {
	ts, err := model.ParseTimestamp(s)
	if err != nil {
		return model.Timestamp{}
	}
	return ts
}
