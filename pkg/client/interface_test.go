package client

import (
	"errors"
	"testing"
)

func TestParseFaceReport(t *testing.T) {
	raw := "```json\n{\n  \"faces\": [\n    {\"box\": {\"x\": 0.3, \"y\": 0.2, \"w\": 0.4, \"h\": 0.5}, \"confidence\": 0.9}, // main\n  ],\n  /* note */\n  \"description\": \"one person\",\n}\n```"

	report, err := ParseFaceReport(raw)
	if err != nil {
		t.Fatalf("ParseFaceReport failed: %v", err)
	}
	if len(report.Faces) != 1 {
		t.Fatalf("Expected 1 face, got %d", len(report.Faces))
	}
	f := report.Faces[0]
	if f.Box.X != 0.3 || f.Box.H != 0.5 || f.Confidence != 0.9 {
		t.Errorf("Unexpected face %+v", f)
	}
	if report.Description != "one person" {
		t.Errorf("Unexpected description %q", report.Description)
	}
}

func TestParseFaceReportMissingConfidence(t *testing.T) {
	report, err := ParseFaceReport(`{"faces": [{"box": {"x": 0.3, "y": 0.2, "w": 0.4, "h": 0.5}}, {"box": {"x": 0.1, "y": 0.1, "w": 0.1, "h": 0.1}, "confidence": 0}, {"box": {"x": 0.5, "y": 0.5, "w": 0.1, "h": 0.1}, "confidence": null}]}`)
	if err != nil {
		t.Fatalf("ParseFaceReport failed: %v", err)
	}
	want := []float64{1, 0, 1}
	for i, f := range report.Faces {
		if f.Confidence != want[i] {
			t.Errorf("Face %d: expected confidence %v, got %v", i, want[i], f.Confidence)
		}
	}
	if report.Faces[0].Box.W != 0.4 {
		t.Errorf("Unexpected box %+v", report.Faces[0].Box)
	}
}

func TestParseFaceReportEmpty(t *testing.T) {
	report, err := ParseFaceReport(`{"faces": [], "description": "a wall"}`)
	if err != nil {
		t.Fatalf("ParseFaceReport failed: %v", err)
	}
	if len(report.Faces) != 0 {
		t.Errorf("Expected no faces, got %d", len(report.Faces))
	}
}

func TestParseFaceReportGarbage(t *testing.T) {
	for _, raw := range []string{"I see a person smiling.", "{not json at all}", ""} {
		if _, err := ParseFaceReport(raw); !errors.Is(err, ErrUnparseable) {
			t.Errorf("%q: expected ErrUnparseable, got %v", raw, err)
		}
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	got := SanitizeModelJSON("Sure! Here it is: {\"a\": [1, 2,], } thanks")
	if got != `{"a": [1, 2] }` {
		t.Errorf("Unexpected sanitized output %q", got)
	}
}
