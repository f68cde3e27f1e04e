package model

import "testing"

func TestClampRating(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-10, 0},
		{-1, 0},
		{0, 0},
		{3, 3},
		{5, 5},
		{6, 5},
		{7, 5},
		{1 << 30, 5},
	}

	for _, tt := range tests {
		if got := ClampRating(tt.in); got != tt.want {
			t.Errorf("ClampRating(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCourseKey(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"Algorithms", "algorithms"},
		{"  Databases ", "DATABASES"},
		{"Ökonomie", "ökonomie"},
		{"ÇALIŞMA", "çalişma"},
	}

	for _, tt := range tests {
		if CourseKey(tt.a) != CourseKey(tt.b) {
			t.Errorf("CourseKey(%q) = %q, CourseKey(%q) = %q, want equal",
				tt.a, CourseKey(tt.a), tt.b, CourseKey(tt.b))
		}
	}
	if CourseKey("Algorithms") == CourseKey("Algorithm") {
		t.Error("CourseKey matched different names")
	}
}
