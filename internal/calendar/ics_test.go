package calendar

import (
	"strings"
	"testing"
	"time"
)

func TestEncodeICS(t *testing.T) {
	loc := time.FixedZone("UTC-08:00", -8*3600)

	ics, err := EncodeICS(testEvent(), loc)
	if err != nil {
		t.Fatalf("EncodeICS() returned an error: %v", err)
	}

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"END:VCALENDAR",
		"BEGIN:VEVENT",
		"SUMMARY:Standup",
		"UID:evt-1@chatcal",
		"LOCATION:voice channel",
	} {
		if !strings.Contains(ics, want) {
			t.Errorf("Expected output to contain '%s'\n%s", want, ics)
		}
	}
}

func TestEncodeICS_OptionalFieldsOmitted(t *testing.T) {
	event := testEvent()
	event.Description = ""
	event.Location = ""

	ics, err := EncodeICS(event, time.UTC)
	if err != nil {
		t.Fatalf("EncodeICS() returned an error: %v", err)
	}

	if strings.Contains(ics, "DESCRIPTION") {
		t.Error("Expected no DESCRIPTION property for an empty description")
	}
	if strings.Contains(ics, "LOCATION") {
		t.Error("Expected no LOCATION property for an empty location")
	}
}
