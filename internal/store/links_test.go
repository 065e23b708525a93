package store

import (
	"path/filepath"
	"testing"
)

func TestLinkIndex_AddRemove(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "links.json")

	index, err := NewLinkIndex(path)
	if err != nil {
		t.Fatalf("NewLinkIndex() returned an error: %v", err)
	}

	link := CalendarLink{
		OwnerID:       "user-a",
		RemoteEventID: "remote-1",
		SharedEventID: "shared-1",
		Title:         "Standup",
	}
	if err := index.Add(link); err != nil {
		t.Fatalf("Add() returned an error: %v", err)
	}

	links := index.For("user-a")
	if len(links) != 1 {
		t.Fatalf("Expected 1 link for user-a, got %d", len(links))
	}
	if links[0].RemoteEventID != "remote-1" {
		t.Errorf("Expected RemoteEventID 'remote-1', got '%s'", links[0].RemoteEventID)
	}

	// Links survive a reopen
	reopened, err := NewLinkIndex(path)
	if err != nil {
		t.Fatalf("NewLinkIndex() returned an error on reopen: %v", err)
	}
	if len(reopened.For("user-a")) != 1 {
		t.Error("Expected link to survive a reopen")
	}

	removed, err := index.Remove("user-a", "remote-1")
	if err != nil {
		t.Fatalf("Remove() returned an error: %v", err)
	}
	if !removed {
		t.Error("Expected Remove() to report the link as removed")
	}
	if len(index.For("user-a")) != 0 {
		t.Error("Expected no links after removal")
	}

	removed, err = index.Remove("user-a", "remote-1")
	if err != nil {
		t.Fatalf("Remove() returned an error: %v", err)
	}
	if removed {
		t.Error("Expected Remove() to report false for an absent link")
	}
}

func TestLinkIndex_FindByRemote(t *testing.T) {
	tempDir := t.TempDir()
	index, err := NewLinkIndex(filepath.Join(tempDir, "links.json"))
	if err != nil {
		t.Fatalf("NewLinkIndex() returned an error: %v", err)
	}

	if err := index.Add(CalendarLink{OwnerID: "user-a", RemoteEventID: "remote-1", SharedEventID: "shared-1"}); err != nil {
		t.Fatalf("Add() returned an error: %v", err)
	}
	if err := index.Add(CalendarLink{OwnerID: "user-b", RemoteEventID: "remote-2", SharedEventID: "shared-1"}); err != nil {
		t.Fatalf("Add() returned an error: %v", err)
	}

	link, ok := index.FindByRemote("remote-2")
	if !ok {
		t.Fatal("FindByRemote() did not find remote-2")
	}
	if link.OwnerID != "user-b" {
		t.Errorf("Expected owner 'user-b', got '%s'", link.OwnerID)
	}

	if _, ok := index.FindByRemote("remote-404"); ok {
		t.Error("FindByRemote() should not find an unknown remote id")
	}
}

func TestLinkIndex_BySharedEvent(t *testing.T) {
	tempDir := t.TempDir()
	index, err := NewLinkIndex(filepath.Join(tempDir, "links.json"))
	if err != nil {
		t.Fatalf("NewLinkIndex() returned an error: %v", err)
	}

	if err := index.Add(CalendarLink{OwnerID: "user-a", RemoteEventID: "remote-1", SharedEventID: "shared-1"}); err != nil {
		t.Fatalf("Add() returned an error: %v", err)
	}
	if err := index.Add(CalendarLink{OwnerID: "user-b", RemoteEventID: "remote-2", SharedEventID: "shared-1"}); err != nil {
		t.Fatalf("Add() returned an error: %v", err)
	}
	if err := index.Add(CalendarLink{OwnerID: "user-b", RemoteEventID: "remote-3", SharedEventID: "shared-2"}); err != nil {
		t.Fatalf("Add() returned an error: %v", err)
	}

	links := index.BySharedEvent("shared-1")
	if len(links) != 2 {
		t.Fatalf("Expected 2 links for shared-1, got %d", len(links))
	}
}

func TestLinkIndex_RemoveBySharedEvent(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "links.json")

	index, err := NewLinkIndex(path)
	if err != nil {
		t.Fatalf("NewLinkIndex() returned an error: %v", err)
	}

	if err := index.Add(CalendarLink{OwnerID: "user-a", RemoteEventID: "remote-1", SharedEventID: "shared-1"}); err != nil {
		t.Fatalf("Add() returned an error: %v", err)
	}
	if err := index.Add(CalendarLink{OwnerID: "user-b", RemoteEventID: "remote-2", SharedEventID: "shared-1"}); err != nil {
		t.Fatalf("Add() returned an error: %v", err)
	}
	if err := index.Add(CalendarLink{OwnerID: "user-b", RemoteEventID: "remote-3", SharedEventID: "shared-2"}); err != nil {
		t.Fatalf("Add() returned an error: %v", err)
	}

	removed, err := index.RemoveBySharedEvent("shared-1")
	if err != nil {
		t.Fatalf("RemoveBySharedEvent() returned an error: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removals, got %d", removed)
	}

	if index.Count() != 1 {
		t.Errorf("Expected 1 remaining link, got %d", index.Count())
	}
	if len(index.For("user-a")) != 0 {
		t.Error("Expected user-a to have no remaining links")
	}

	reopened, err := NewLinkIndex(path)
	if err != nil {
		t.Fatalf("NewLinkIndex() returned an error on reopen: %v", err)
	}
	if reopened.Count() != 1 {
		t.Errorf("Expected removal to survive a reopen, got %d links", reopened.Count())
	}
}
