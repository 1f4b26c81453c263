package models

import (
	"testing"
)

func TestValidPriority(t *testing.T) {
	tests := []struct {
		priority Priority
		want     bool
	}{
		{PriorityLow, true},
		{PriorityMedium, true},
		{PriorityHigh, true},
		{Priority("urgent"), false},
		{Priority(""), false},
	}

	for _, tt := range tests {
		if got := ValidPriority(tt.priority); got != tt.want {
			t.Errorf("ValidPriority(%q) = %v, want %v", tt.priority, got, tt.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusTodo, true},
		{StatusInProgress, true},
		{StatusReview, true},
		{StatusDone, true},
		{Status("cancelled"), false},
		{Status(""), false},
	}

	for _, tt := range tests {
		if got := ValidStatus(tt.status); got != tt.want {
			t.Errorf("ValidStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestValidProgress(t *testing.T) {
	tests := []struct {
		progress int
		want     bool
	}{
		{0, true},
		{50, true},
		{100, true},
		{-1, false},
		{101, false},
	}

	for _, tt := range tests {
		if got := ValidProgress(tt.progress); got != tt.want {
			t.Errorf("ValidProgress(%d) = %v, want %v", tt.progress, got, tt.want)
		}
	}
}

func TestValidISODate(t *testing.T) {
	good := "2025-03-14"
	bad := "14/03/2025"
	empty := ""

	tests := []struct {
		name string
		date *string
		want bool
	}{
		{"nil", nil, true},
		{"empty", &empty, true},
		{"iso", &good, true},
		{"slashes", &bad, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidISODate(tt.date); got != tt.want {
				t.Errorf("ValidISODate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewTicket_Defaults(t *testing.T) {
	ticket := NewTicket("default", "Fix bug")

	if ticket.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want %q", ticket.Priority, PriorityMedium)
	}
	if ticket.Status != StatusTodo {
		t.Errorf("Status = %q, want %q", ticket.Status, StatusTodo)
	}
	if ticket.Progress != 0 {
		t.Errorf("Progress = %d, want 0", ticket.Progress)
	}
	if ticket.Tags == nil {
		t.Error("Tags should be initialized")
	}
	if ticket.CreatedAt.IsZero() || ticket.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestProject_Membership(t *testing.T) {
	p := NewProject("Website", "", "user-1")

	if !p.HasMember("user-1") {
		t.Error("owner should be enrolled as member")
	}

	p.AddMember("user-2")
	p.AddMember("user-2") // idempotent
	if len(p.Members) != 2 {
		t.Errorf("Members = %v, want 2 entries", p.Members)
	}

	p.Admins = append(p.Admins, "user-2")
	p.RemoveMember("user-2")
	if p.HasMember("user-2") {
		t.Error("user-2 should be removed from members")
	}
	if len(p.Admins) != 0 {
		t.Error("user-2 should be removed from admins too")
	}
}

func TestUser_Membership(t *testing.T) {
	u := NewUser("Alice", "alice@example.com", RoleUser)

	u.AddProject("default")
	u.AddProject("default")
	if len(u.Projects) != 1 {
		t.Errorf("Projects = %v, want 1 entry", u.Projects)
	}

	u.RemoveProject("default")
	if u.IsMemberOf("default") {
		t.Error("membership should be removed")
	}
}
