package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationRequest_Validate(t *testing.T) {
	tests := []struct {
		name       string
		req        GenerationRequest
		wantFields []string
	}{
		{name: "valid", req: GenerationRequest{StoryText: "A knight meets a dragon.", RequestedPanelCount: 4}},
		{name: "min count", req: GenerationRequest{StoryText: "A knight meets a dragon.", RequestedPanelCount: 1}},
		{name: "max count", req: GenerationRequest{StoryText: "A knight meets a dragon.", RequestedPanelCount: 25}},
		{name: "story too short", req: GenerationRequest{StoryText: "  hi  ", RequestedPanelCount: 3}, wantFields: []string{"story"}},
		{name: "count zero", req: GenerationRequest{StoryText: "A knight meets a dragon.", RequestedPanelCount: 0}, wantFields: []string{"numPanels"}},
		{name: "count too large", req: GenerationRequest{StoryText: "A knight meets a dragon.", RequestedPanelCount: 26}, wantFields: []string{"numPanels"}},
		{name: "both", req: GenerationRequest{StoryText: "", RequestedPanelCount: -1}, wantFields: []string{"story", "numPanels"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			fields := verrs.ByField()
			assert.Len(t, fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestExportSelection_ToggleIdempotence(t *testing.T) {
	base := AllPanels(4)

	toggled := AllPanels(4)
	toggled.Toggle(2)
	toggled.Toggle(2)
	assert.True(t, base.Equal(toggled), "off/on should restore the selection")

	var fresh ExportSelection
	fresh.Toggle(1)
	fresh.Toggle(1)
	fresh.Toggle(1)
	assert.True(t, NewExportSelection(1).Equal(fresh), "on/off/on equals a single selection")
}

func TestExportSelection_IndicesAscending(t *testing.T) {
	var s ExportSelection
	for _, i := range []int{7, 2, 5, 0, 2} {
		s.Select(i)
	}
	assert.Equal(t, []int{0, 2, 5, 7}, s.Indices())
	assert.Equal(t, 4, s.Len())
}

func TestExportSelection_Clamp(t *testing.T) {
	s := NewExportSelection(-1, 0, 3, 4, 9)
	assert.Equal(t, []int{0, 3}, s.Clamp(4).Indices())
	assert.True(t, NewExportSelection().Clamp(3).IsEmpty())
}

func TestGenerationResult_Exclusive(t *testing.T) {
	ok := Ok([]Panel{{VisualDescription: "a", CaptionText: "b", ImageReference: "u"}})
	panels, isOk := ok.Panels()
	require.True(t, isOk)
	assert.Len(t, panels, 1)
	_, failed := ok.Failure()
	assert.False(t, failed)

	bad := Err(FailureNoPanels, "nothing")
	_, isOk = bad.Panels()
	assert.False(t, isOk)
	f, failed := bad.Failure()
	require.True(t, failed)
	assert.Equal(t, FailureNoPanels, f.Kind)
}

func TestGenerationResult_PanelsAreCopies(t *testing.T) {
	src := []Panel{{VisualDescription: "a"}}
	res := Ok(src)
	src[0].VisualDescription = "changed"

	panels, _ := res.Panels()
	assert.Equal(t, "a", panels[0].VisualDescription)
	panels[0].VisualDescription = "changed again"
	again, _ := res.Panels()
	assert.Equal(t, "a", again[0].VisualDescription)
}

func TestGenerationResult_JSON(t *testing.T) {
	data, err := json.Marshal(Ok(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"panels":[]}`, string(data))

	data, err = json.Marshal(Err(FailureUpstream, "boom"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"boom","kind":"upstream"}`, string(data))

	var decoded GenerationResult
	require.NoError(t, json.Unmarshal([]byte(`{"panels":[{"imagePrompt":"p","text":"t","imageUrl":"u"}]}`), &decoded))
	panels, ok := decoded.Panels()
	require.True(t, ok)
	assert.Equal(t, "u", panels[0].ImageReference)

	err = json.Unmarshal([]byte(`{"panels":[],"error":"x"}`), &decoded)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "both"))
}

func TestPanel_WithImage(t *testing.T) {
	p := Panel{VisualDescription: "v", CaptionText: "c"}
	assert.False(t, p.HasImage())
	q := p.WithImage("https://img/1.png")
	assert.True(t, q.HasImage())
	assert.False(t, p.HasImage())
}
