package routes

import (
	"testing"
)

func TestActivityFilterStudentPinnedToOwnRecords(t *testing.T) {
	filter := activityFilter(false, "student-1", "someone-else", "", "")
	if filter["user_id"] != "student-1" {
		t.Fatalf("student filter %+v, want own user_id", filter)
	}
}

func TestActivityFilterStudentDefaultsToSelf(t *testing.T) {
	filter := activityFilter(false, "student-1", "", "quiz_submission", "Maths")
	if filter["user_id"] != "student-1" {
		t.Fatalf("filter %+v, want user_id pinned to requester", filter)
	}
	if filter["activity_type"] != "quiz_submission" || filter["subject"] != "Maths" {
		t.Fatalf("secondary filters dropped: %+v", filter)
	}
}

func TestActivityFilterAdminQueriesAnyUser(t *testing.T) {
	filter := activityFilter(true, "admin-1", "student-2", "", "")
	if filter["user_id"] != "student-2" {
		t.Fatalf("admin filter %+v, want requested user_id", filter)
	}
}

func TestActivityFilterAdminUnscoped(t *testing.T) {
	filter := activityFilter(true, "admin-1", "", "", "")
	if _, ok := filter["user_id"]; ok {
		t.Fatalf("admin without userId should list all users: %+v", filter)
	}
}
