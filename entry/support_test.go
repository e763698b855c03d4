package entry

import (
	"testing"
	"time"
)

func TestTag_SegmentsAndHierarchy(t *testing.T) {
	ml, err := NewTag("topic/ml/nlp")
	if err != nil {
		t.Fatal(err)
	}
	if ml.Name() != "nlp" {
		t.Errorf("Name() = %q", ml.Name())
	}
	if ml.ParentPath() != "topic/ml" {
		t.Errorf("ParentPath() = %q", ml.ParentPath())
	}
	if ml.Level() != 2 {
		t.Errorf("Level() = %d", ml.Level())
	}

	topic, _ := NewTag("topic")
	if !topic.IsAncestorOf(ml) {
		t.Error("topic should be an ancestor of topic/ml/nlp")
	}
	if !ml.IsDescendantOf(topic) {
		t.Error("topic/ml/nlp should be a descendant of topic")
	}

	sibling, _ := NewTag("topic/ml/cv")
	other, _ := NewTag("topic/ml/nlp")
	if !sibling.IsSiblingOf(other) {
		t.Error("topic/ml/cv and topic/ml/nlp should be siblings")
	}
}

func TestNewTag_Rejects(t *testing.T) {
	for _, bad := range []string{"", "/a", "a/", "a//b"} {
		if _, err := NewTag(bad); err == nil {
			t.Errorf("NewTag(%q) should have failed", bad)
		}
	}
}

func TestCollection_Validate_ManualXorSmart(t *testing.T) {
	c := Collection{ID: "c1", Members: []string{"a"}, Query: "type = article"}
	if err := c.Validate(); err == nil {
		t.Error("collection with both members and query should fail validation")
	}
	manual := Collection{ID: "c2", Members: []string{"a"}}
	if err := manual.Validate(); err != nil {
		t.Errorf("manual-only collection should validate, got %v", err)
	}
	smart := Collection{ID: "c3", Query: "type = article"}
	if err := smart.Validate(); err != nil {
		t.Errorf("smart-only collection should validate, got %v", err)
	}
	if !smart.IsSmart() || smart.IsManual() {
		t.Error("smart collection misclassified")
	}
	if !manual.IsManual() || manual.IsSmart() {
		t.Error("manual collection misclassified")
	}
}

func TestCollection_WithMember_Idempotent(t *testing.T) {
	now := time.Now()
	c := Collection{ID: "c1"}
	c2 := c.WithMember("k1", now)
	c3 := c2.WithMember("k1", now.Add(time.Second))
	if len(c3.Members) != 1 {
		t.Fatalf("expected 1 member, got %v", c3.Members)
	}
	if !c3.ModifiedAt.Equal(now) {
		t.Error("adding a duplicate member should be a no-op, including timestamp")
	}
}

func TestCollection_WithoutMember(t *testing.T) {
	now := time.Now()
	c := Collection{ID: "c1", Members: []string{"a", "b", "c"}}
	c2 := c.WithoutMember("b", now)
	want := []string{"a", "c"}
	if len(c2.Members) != len(want) {
		t.Fatalf("Members = %v, want %v", c2.Members, want)
	}
	for i := range want {
		if c2.Members[i] != want[i] {
			t.Errorf("Members[%d] = %q, want %q", i, c2.Members[i], want[i])
		}
	}
}

func TestEntryMetadata_WithRating_Clamps(t *testing.T) {
	m := DefaultMetadata("k1")
	if m.ReadStatus != ReadStatusUnread || m.Importance != ImportanceNormal {
		t.Errorf("DefaultMetadata has unexpected defaults: %+v", m)
	}
	m2 := m.WithRating(10)
	if m2.Rating == nil || *m2.Rating != 5 {
		t.Errorf("rating should clamp to 5, got %v", m2.Rating)
	}
	m3 := m.WithRating(-3)
	if m3.Rating == nil || *m3.Rating != 1 {
		t.Errorf("rating should clamp to 1, got %v", m3.Rating)
	}
}

func TestEntryMetadata_WithTag_WithoutTag(t *testing.T) {
	m := DefaultMetadata("k1")
	m = m.WithTag("ml")
	m = m.WithTag("ml") // no-op
	if len(m.Tags) != 1 {
		t.Fatalf("expected one tag after duplicate add, got %v", m.Tags)
	}
	m = m.WithTag("nlp")
	m = m.WithoutTag("ml")
	if len(m.Tags) != 1 || m.Tags[0] != "nlp" {
		t.Errorf("Tags = %v, want [nlp]", m.Tags)
	}
}
