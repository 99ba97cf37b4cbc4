package schedulestore

import (
	"errors"
	"testing"

	"github.com/dalemusser/strataportal/internal/testutil"
)

func TestOverlaps(t *testing.T) {
	tests := []struct {
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"09:00", "10:00", "09:30", "10:30", true},
		{"09:00", "10:00", "10:00", "11:00", false}, // back to back
		{"09:00", "12:00", "10:00", "11:00", true},  // contains
		{"13:00", "14:00", "09:00", "10:00", false},
		{"09:00", "10:00", "09:00", "10:00", true},
		{"08:30", " 09:30", "09:00", "10:00", true}, // text order would miss this
		{"+9:00", "+9:30", "09:00", "10:00", false}, // not a clock time
	}
	for _, tt := range tests {
		if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
			t.Errorf("Overlaps(%s-%s, %s-%s) = %v, want %v", tt.aStart, tt.aEnd, tt.bStart, tt.bEnd, got, tt.want)
		}
	}
}

func TestStore_RoomConflicts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := store.Create(ctx, Input{Day: "Monday", Start: "09:00", End: "10:00", Course: " CS301 ", Room: "lh-1", Faculty: "Dr. Rao"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Room != "LH-1" || first.Course != "CS301" {
		t.Errorf("Create did not normalize: room %q course %q", first.Room, first.Course)
	}

	tests := []struct {
		name    string
		in      Input
		wantErr error
	}{
		{"overlap same room", Input{Day: "Monday", Start: "09:30", End: "10:30", Course: "CS302", Room: "LH-1"}, ErrRoomBusy},
		{"room case folded", Input{Day: "Monday", Start: "09:15", End: "09:45", Course: "CS303", Room: " Lh-1 "}, ErrRoomBusy},
		{"back to back", Input{Day: "Monday", Start: "10:00", End: "11:00", Course: "CS304", Room: "LH-1"}, nil},
		{"other room", Input{Day: "Monday", Start: "09:00", End: "10:00", Course: "CS305", Room: "LH-2"}, nil},
		{"other day", Input{Day: "Tuesday", Start: "09:00", End: "10:00", Course: "CS306", Room: "LH-1"}, nil},
		{"signed hours", Input{Day: "Monday", Start: "+9:00", End: "+9:30", Course: "CS307", Room: "LH-1"}, ErrInvalidTime},
		{"negative hours", Input{Day: "Wednesday", Start: "-0:30", End: "01:00", Course: "CS308", Room: "LH-1"}, ErrInvalidTime},
		{"end before start", Input{Day: "Wednesday", Start: "11:00", End: "10:00", Course: "CS309", Room: "LH-1"}, ErrInvalidTime},
		{"padded overlap", Input{Day: "Monday", Start: " 09:10 ", End: "09:20", Course: "CS310", Room: "LH-1"}, ErrRoomBusy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_StoresCanonicalTimes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	slot, err := store.Create(ctx, Input{Day: "Thursday", Start: " 08:00", End: "09:00 ", Course: "PH101", Room: "LAB-2"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := store.Get(ctx, slot.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Start != "08:00" || got.End != "09:00" {
		t.Errorf("stored times = %q-%q, want 08:00-09:00", got.Start, got.End)
	}
}

func TestStore_UpdateIgnoresItself(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	slot, err := store.Create(ctx, Input{Day: "Friday", Start: "14:00", End: "15:00", Course: "MA201", Room: "LH-3"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, Input{Day: "Friday", Start: "15:00", End: "16:00", Course: "MA202", Room: "LH-3"}); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	// Stretching into its own time is fine.
	if err := store.Update(ctx, slot.ID, Input{Day: "Friday", Start: "13:30", End: "15:00", Course: "MA201", Room: "LH-3"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	// Stretching into the next slot is not.
	err = store.Update(ctx, slot.ID, Input{Day: "Friday", Start: "14:00", End: "15:30", Course: "MA201", Room: "LH-3"})
	if !errors.Is(err, ErrRoomBusy) {
		t.Errorf("Update overlapping error = %v, want ErrRoomBusy", err)
	}
}
