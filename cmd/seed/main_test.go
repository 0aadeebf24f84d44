package main

import (
	"errors"
	"testing"

	"github.com/stemsi/exstem-exam-engine/internal/model"
)

func TestBuildQuestions(t *testing.T) {
	tests := []struct {
		options int
		wantErr error
	}{
		{options: 4},
		{options: 2},
		{options: 1, wantErr: model.ErrOptionCount},
		{options: 5, wantErr: model.ErrOptionCount},
	}
	for _, tt := range tests {
		qs := buildQuestions(6, tt.options, "general", "mathematics", "")
		if len(qs) != 6 {
			t.Fatalf("options=%d: got %d questions", tt.options, len(qs))
		}
		for i := range qs {
			if err := qs[i].Validate(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("options=%d question %d: err = %v, want %v", tt.options, i, err, tt.wantErr)
			}
		}
	}

	qs := buildQuestions(3, 2, "medicine", "anatomy", "surgery")
	if qs[0].CorrectOption != model.OptionA || qs[1].CorrectOption != model.OptionB || qs[2].CorrectOption != model.OptionA {
		t.Fatalf("correct labels = %s %s %s", qs[0].CorrectOption, qs[1].CorrectOption, qs[2].CorrectOption)
	}
	if qs[0].Area != "surgery" || !qs[0].IsActive {
		t.Fatalf("unexpected question %+v", qs[0])
	}
}
