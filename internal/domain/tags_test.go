package domain

import "testing"

func TestTag_Matches(t *testing.T) {
	tests := []struct {
		tag      Tag
		query    Tag
		expected bool
	}{
		{"Status.Sprinting", "Status.Sprinting", true},
		{"Status.Sprinting", "Status", true},
		{"Status", "Status.Sprinting", false},
		{"StatusEffect", "Status", false},
		{"Status.Burning", "Status.Sprinting", false},
	}

	for _, tt := range tests {
		if got := tt.tag.Matches(tt.query); got != tt.expected {
			t.Errorf("%q.Matches(%q) = %v, want %v", tt.tag, tt.query, got, tt.expected)
		}
	}
}

func TestTagContainer_StackedGrants(t *testing.T) {
	c := NewTagContainer()
	burning := []Tag{"Status.Burning"}

	// Два эффекта выдают один и тот же тег
	c.AppendTags(burning)
	c.AppendTags(burning)

	if c.Count("Status.Burning") != 2 {
		t.Fatalf("Expected 2 grants, got %d", c.Count("Status.Burning"))
	}

	// Первый эффект закончился - тег должен остаться
	c.RemoveTags(burning)
	if !c.HasTag("Status.Burning") {
		t.Error("Tag removed while still granted by another effect")
	}

	c.RemoveTags(burning)
	if c.HasTag("Status.Burning") {
		t.Error("Tag leaked after all grants removed")
	}

	// Лишнее снятие не уходит в минус
	c.RemoveTags(burning)
	if c.Count("Status.Burning") != 0 || c.Len() != 0 {
		t.Error("Over-removal corrupted the container")
	}
}

func TestTagContainer_HasAnyHierarchical(t *testing.T) {
	c := NewTagContainer()
	c.AppendTags([]Tag{"Status.Stunned"})

	if !c.HasAny([]Tag{"Status.Sprinting", "Status"}) {
		t.Error("Parent query should match child tag")
	}
	if c.HasAny([]Tag{"Status.Sprinting"}) {
		t.Error("Unrelated tag should not match")
	}
	if c.HasAny(nil) {
		t.Error("Empty query must not match")
	}
}

func TestTagContainer_String(t *testing.T) {
	c := NewTagContainer()
	c.AppendTags([]Tag{"B", "A", "B"})

	if got := c.String(); got != "A, B x2" {
		t.Errorf("String() = %q, want %q", got, "A, B x2")
	}
}
