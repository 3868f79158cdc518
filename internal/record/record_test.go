package record

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbridge/internal/model"
)

func TestNormalize_DefaultsBuyMilk(t *testing.T) {
	r := Raw{Description: "Buy milk", Project: "", Priority: "", Tags: []string{}, Status: "pending"}

	got, err := Normalize(r)
	require.NoError(t, err)
	assert.Equal(t, "default", got.Project)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.NotNil(t, got.Tags)
	assert.Empty(t, got.Tags)
	assert.Equal(t, "Buy milk", got.FullDescription)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestNormalize_MissingDescription(t *testing.T) {
	for _, desc := range []string{"", "   "} {
		_, err := Normalize(Raw{UUID: "u-1", Description: desc})
		var mre *MalformedRecordError
		require.True(t, errors.As(err, &mre), "expected MalformedRecordError for %q, got %v", desc, err)
		assert.Equal(t, "u-1", mre.UUID)
	}
}

func TestNormalize_FullDescriptionFromFirstAnnotation(t *testing.T) {
	r := Raw{
		Description: "Call plumber",
		Annotations: []RawAnnotation{
			{Description: "Ask about the kitchen sink too", Entry: "20240102T080000Z"},
			{Description: "second note"},
		},
	}
	got, err := Normalize(r)
	require.NoError(t, err)
	assert.Equal(t, "Ask about the kitchen sink too", got.FullDescription)
	require.Len(t, got.Annotations, 2)
	assert.Equal(t, "20240102T080000Z", got.Annotations[0].Entry.String())
}

func TestNormalize_DoesNotMutateSource(t *testing.T) {
	r := Raw{Description: "x", Tags: []string{" a ", "a", "b"}, Annotations: []RawAnnotation{{Description: "n"}}}
	before := Raw{Description: "x", Tags: []string{" a ", "a", "b"}, Annotations: []RawAnnotation{{Description: "n"}}}

	got, err := Normalize(r)
	require.NoError(t, err)
	got.Tags[0] = "changed"
	got.Annotations[0].Description = "changed"

	assert.True(t, reflect.DeepEqual(before, r), "source record was mutated: %+v", r)
	assert.Equal(t, []string{"changed", "b"}, got.Tags)
}

func TestNormalize_LenientFields(t *testing.T) {
	got, err := Normalize(Raw{
		Description: "x",
		Priority:    "urgent",
		Status:      "",
		Entry:       "garbage",
		End:         "20240101T000000Z",
		Urgency:     4.2,
		Wait:        " 20990101T000000Z ",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.True(t, got.Entry.IsZero())
	assert.Equal(t, "20240101T000000Z", got.End.String())
	assert.Equal(t, 4.2, got.Urgency)
	assert.Equal(t, "20990101T000000Z", got.Wait)
}

func TestNormalizeAll_PartialSuccess(t *testing.T) {
	raws := []Raw{
		{UUID: "a", Description: "first"},
		{UUID: "b", Description: ""},
		{UUID: "c", Description: "gone", Status: "deleted"},
		{UUID: "d", Description: "last", Status: "completed"},
	}

	tasks, skipped := NormalizeAll(raws)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].UUID)
	assert.Equal(t, "d", tasks[1].UUID)

	require.Len(t, skipped, 1)
	assert.Equal(t, 1, skipped[0].Index)
	assert.Equal(t, "b", skipped[0].UUID)
}

func TestDecodeExport(t *testing.T) {
	rs, err := DecodeExport([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, rs)

	rs, err = DecodeExport([]byte(`[{"id":1,"uuid":"a","description":"x","tags":["t"]}]`))
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, []string{"t"}, rs[0].Tags)

	rs, err = DecodeExport([]byte("{\"uuid\":\"a\",\"description\":\"x\"}\n{\"uuid\":\"b\",\"description\":\"y\"}\n"))
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "b", rs[1].UUID)

	_, err = DecodeExport([]byte(`[{"id":`))
	assert.Error(t, err)
}

func TestDecodeExport_IllTypedRecordIsSkippedNotFatal(t *testing.T) {
	export := `[{"uuid":"a","description":"ok"},{"uuid":"b","description":42},{"uuid":"c","description":"also ok","tags":"solo"},{"uuid":"d","description":"last"}]`

	rs, err := DecodeExport([]byte(export))
	require.NoError(t, err)
	require.Len(t, rs, 4)
	assert.Empty(t, rs[0].DecodeError)
	assert.NotEmpty(t, rs[1].DecodeError)
	assert.Equal(t, "b", rs[1].UUID)
	assert.NotEmpty(t, rs[2].DecodeError)

	tasks, skipped := NormalizeAll(rs)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].UUID)
	assert.Equal(t, "d", tasks[1].UUID)
	require.Len(t, skipped, 2)
	assert.Equal(t, 1, skipped[0].Index)
	assert.Equal(t, "b", skipped[0].UUID)
	assert.Equal(t, 2, skipped[1].Index)
	assert.Equal(t, "c", skipped[1].UUID)
}

func TestDecodeExport_IllTypedLineDelimited(t *testing.T) {
	rs, err := DecodeExport([]byte("{\"uuid\":7,\"description\":\"x\"}\n{\"uuid\":\"b\",\"description\":\"y\"}\n"))
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.NotEmpty(t, rs[0].DecodeError)
	assert.Empty(t, rs[0].UUID)
	assert.Empty(t, rs[1].DecodeError)

	_, err = Normalize(rs[0])
	var mre *MalformedRecordError
	require.ErrorAs(t, err, &mre)
}
