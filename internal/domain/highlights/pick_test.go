package highlights

import (
	"reflect"
	"testing"
)

func TestPick_KeepsTranscriptOrder(t *testing.T) {
	lines := []string{
		"00:00:01,000 - Okay.",
		"00:00:05,000 - Please, you have to help me!",
		"00:00:09,000 - The train leaves at noon tomorrow.",
		"00:00:12,000 - [music]",
		"00:00:20,000 - Why would you never tell me the truth?",
	}
	got := Pick(lines, 2)
	want := []string{lines[1], lines[4]}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPick_Bounds(t *testing.T) {
	lines := []string{"00:00:01,000 - Help!", "00:00:02,000 - hmm"}
	if got := Pick(lines, 0); got != nil {
		t.Fatalf("n=0 should pick nothing, got %v", got)
	}
	if got := Pick(lines, 10); len(got) != 1 {
		t.Fatalf("zero-score lines must not be picked, got %v", got)
	}
}
