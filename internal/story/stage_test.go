package story

import (
	"encoding/json"
	"testing"
)

func TestStage_Text(t *testing.T) {
	for s := StageIntro; s <= StagePoem; s++ {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d) error = %v", s, err)
		}
		var back Stage
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) error = %v", text, err)
		}
		if back != s {
			t.Errorf("stage %s decoded as %s", s, back)
		}
	}

	var s Stage
	if err := s.UnmarshalText([]byte("FINALE")); err == nil {
		t.Error("expected error for unknown stage")
	}
}

func TestStage_Shape(t *testing.T) {
	tests := []struct {
		stage Stage
		want  Shape
	}{
		{StageIntro, ShapeHeart},
		{StageScatter, ShapeExplode},
		{StageAskFirst, ShapeTextCloud},
		{StageAskSecond, ShapeTextCloud},
		{StageLetter, ShapeTextCloud},
		{StagePoem, ShapeTextCloud},
	}

	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			if got := tt.stage.Shape(); got != tt.want {
				t.Errorf("Shape() = %s, want %s", got, tt.want)
			}
		})
	}

	if !StagePoem.Terminal() || StageLetter.Terminal() {
		t.Error("only the poem is terminal")
	}
}

func TestSnapshot_JSON(t *testing.T) {
	in := Snapshot{Stage: StageScatter, Shape: ShapeExplode, ColorIndex: 1, Color: Color(1), Version: 3}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	json.Unmarshal(data, &raw)
	if raw["stage"] != "SCATTER" || raw["shape"] != "EXPLODE" {
		t.Errorf("expected names on the wire, got %s", data)
	}

	var out Snapshot
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out != in {
		t.Errorf("decoded %+v, want %+v", out, in)
	}
}

func TestColor(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "#ff007f"},
		{4, "#ff3333"},
		{5, "#ff007f"},
		{-1, "#ff3333"},
	}

	for _, tt := range tests {
		if got := Color(tt.index); got != tt.want {
			t.Errorf("Color(%d) = %s, want %s", tt.index, got, tt.want)
		}
	}
}
