package progress

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestProgressTracker(t *testing.T) {
	tracker := NewProgressTracker()

	var receivedEvents []Event
	tracker.AddListener(func(event Event) {
		receivedEvents = append(receivedEvents, event)
	})

	tracker.UpdateProgress(StagePreparing, 0, "Preparing export", nil)
	tracker.UpdateProgress(StageRecording, 0, "Recording", nil)

	if len(receivedEvents) != 2 {
		t.Errorf("Expected 2 events, got %d", len(receivedEvents))
	}

	if state := tracker.GetCurrentState(); state.Error != "" {
		t.Errorf("Expected no error before failure, got %q", state.Error)
	}

	encodeErr := errors.New("encoder exited")
	tracker.SetError(encodeErr)

	state := tracker.GetCurrentState()
	if state.Stage != StageError {
		t.Errorf("Expected error stage, got %s", state.Stage)
	}
	if state.Error != encodeErr.Error() {
		t.Errorf("Expected error %v, got %s", encodeErr, state.Error)
	}

	tracker.UpdateProgress(StagePreparing, 0, "Preparing export", nil)
	if state := tracker.GetCurrentState(); state.Error != "" {
		t.Errorf("Expected error cleared by a new run, got %q", state.Error)
	}
}

func TestFrameProgress(t *testing.T) {
	tracker := NewProgressTracker()

	var receivedEvents []Event
	tracker.AddListener(func(event Event) {
		receivedEvents = append(receivedEvents, event)
	})

	tracker.UpdateProgress(StageRecording, 0, "Recording", nil)
	tracker.UpdateFrameProgress(30, 150, 1, 5)
	tracker.UpdateFrameProgress(75, 150, 2.5, 5)

	if len(receivedEvents) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(receivedEvents))
	}

	last := receivedEvents[2]
	if last.FrameDetails == nil {
		t.Fatal("Expected frame details, got nil")
	}
	if last.FrameDetails.FramesCaptured != 75 || last.FrameDetails.TotalFrames != 150 {
		t.Errorf("Unexpected frame details %+v", *last.FrameDetails)
	}
	if last.Progress != 50 {
		t.Errorf("Expected progress 50, got %f", last.Progress)
	}
	if last.Stage != StageRecording {
		t.Errorf("Expected recording stage, got %s", last.Stage)
	}

	tracker.UpdateProgress(StageFinalizing, 100, "Finalizing", nil)
	if tracker.GetCurrentState().FrameDetails != nil {
		t.Error("Expected frame details cleared on stage change")
	}
}

func TestEventJSON(t *testing.T) {
	event := Event{
		Stage:     StageRecording,
		Progress:  50.0,
		Message:   "Recording...",
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	var unmarshaled Event
	if err := json.Unmarshal(data, &unmarshaled); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}

	if unmarshaled.Stage != event.Stage {
		t.Errorf("Expected stage %s, got %s", event.Stage, unmarshaled.Stage)
	}
	if unmarshaled.Progress != event.Progress {
		t.Errorf("Expected progress %f, got %f", event.Progress, unmarshaled.Progress)
	}
	if unmarshaled.Message != event.Message {
		t.Errorf("Expected message %s, got %s", event.Message, unmarshaled.Message)
	}
}

func TestListenerManagement(t *testing.T) {
	tracker := NewProgressTracker()

	var receivedEvents []Event
	listener := func(event Event) {
		receivedEvents = append(receivedEvents, event)
	}
	tracker.AddListener(listener)

	tracker.UpdateProgress(StageRecording, 50, "Test", nil)

	if len(receivedEvents) != 1 {
		t.Errorf("Expected 1 event, got %d", len(receivedEvents))
	}

	tracker.RemoveListener(listener)

	tracker.UpdateProgress(StageRecording, 75, "Test 2", nil)

	if len(receivedEvents) != 1 {
		t.Errorf("Expected 1 event after removal, got %d", len(receivedEvents))
	}
}
