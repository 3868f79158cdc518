package mutate

import "taskbridge/internal/model"

// PlanArchive tags a completed task as archived. Already archived tasks yield an
// empty plan; open tasks cannot be archived.
func PlanArchive(current model.ViewTask) ([]Intent, error) {
	switch current.State {
	case model.ViewArchived:
		return nil, nil
	case model.ViewCompleted:
		d := DiffTags(current.Tags, append(append([]string{}, current.Tags...), model.ArchivedTag))
		return tagIntents(d), nil
	default:
		return nil, &InvalidTransitionError{From: current.State, To: model.ViewArchived}
	}
}

// PlanUnarchive drops the archived tag. Tasks without it yield an empty plan.
func PlanUnarchive(current model.ViewTask) []Intent {
	return tagIntents(DiffTags(current.Tags, withoutTag(current.Tags, model.ArchivedTag)))
}

func tagIntents(d TagDiff) []Intent {
	var out []Intent
	for _, t := range d.Remove {
		out = append(out, removeTag(t))
	}
	for _, t := range d.Add {
		out = append(out, addTag(t))
	}
	return out
}
