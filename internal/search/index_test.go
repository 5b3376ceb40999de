package search

import (
	"testing"

	"github.com/ideapool/go-ideas-backend/internal/domain"
)

func sampleIdeas() []domain.Idea {
	return []domain.Idea{
		{ID: "i1", Title: "Invoice automation for freelancers", Niche: "fintech",
			Pain: "manual invoicing wastes hours", Solution: "generate invoices from tracked time"},
		{ID: "i2", Title: "Community garden scheduler", Niche: "local",
			Pain: "plots sit unused", Solution: "shared calendar for plot rotation"},
		{ID: "i3", Title: "Freelancer tax assistant", Niche: "fintech",
			Pain: "quarterly taxes confuse freelancers", Solution: "automated tax estimates"},
	}
}

func TestTopK_RanksRelevantIdeasFirst(t *testing.T) {
	idx := NewIndex(sampleIdeas())
	got := idx.TopK("invoice automation", 10)
	if len(got) == 0 {
		t.Fatalf("no results")
	}
	if got[0].IdeaID != "i1" {
		t.Fatalf("top result = %s; want i1", got[0].IdeaID)
	}
	for _, r := range got {
		if r.IdeaID == "i2" {
			t.Fatalf("unrelated idea matched: %+v", got)
		}
	}
}

func TestTopK_TitleMatchOutranksBodyMatch(t *testing.T) {
	idx := NewIndex([]domain.Idea{
		{ID: "title-hit", Title: "solar panels", Pain: "x y z"},
		{ID: "body-hit", Title: "a b c", Pain: "solar panels everywhere"},
	})
	got := idx.TopK("solar panels", 2)
	if len(got) != 2 || got[0].IdeaID != "title-hit" {
		t.Fatalf("title match not ranked first: %+v", got)
	}
}

func TestTopK_Deterministic(t *testing.T) {
	ideas := sampleIdeas()
	a := NewIndex(ideas).TopK("freelancers fintech", 10)
	b := NewIndex([]domain.Idea{ideas[2], ideas[0], ideas[1]}).TopK("freelancers fintech", 10)
	if len(a) != len(b) {
		t.Fatalf("result counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order depends on input order: %+v vs %+v", a, b)
		}
	}
}

func TestTopK_EmptyInputs(t *testing.T) {
	idx := NewIndex(sampleIdeas())
	if got := idx.TopK("", 5); got != nil {
		t.Fatalf("empty query returned %v", got)
	}
	if got := idx.TopK("   ", 5); got != nil {
		t.Fatalf("blank query returned %v", got)
	}
	empty := NewIndex(nil)
	if got := empty.TopK("anything", 5); got != nil {
		t.Fatalf("empty index returned %v", got)
	}
}

func TestTopK_CapsAtK(t *testing.T) {
	idx := NewIndex(sampleIdeas())
	if got := idx.TopK("freelancers fintech taxes invoices", 1); len(got) > 1 {
		t.Fatalf("k not honored: %d results", len(got))
	}
}

func TestNewIndex_Stopwords(t *testing.T) {
	idx := NewIndex(sampleIdeas(), WithStopwords([]string{"for", "the"}))
	if got := idx.TopK("for the", 5); got != nil {
		t.Fatalf("stopword-only query matched: %v", got)
	}
}

func TestNewIndex_MaxDocs(t *testing.T) {
	idx := NewIndex(sampleIdeas(), WithMaxDocs(1)).(*index)
	if len(idx.docs) != 1 {
		t.Fatalf("maxDocs not applied: %d docs", len(idx.docs))
	}
}
