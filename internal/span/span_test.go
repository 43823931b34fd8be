package span

import (
	"reflect"
	"testing"
)

func TestOrderedCategories_CanonicalOrder(t *testing.T) {
	entities := map[string]string{
		"roomno":   "501",
		"prov":     "浙江省",
		"road":     "文一西路",
		"city":     "杭州市",
		"poi":      "某大厦",
		"district": "余杭区",
	}
	got := OrderedCategories(entities)
	want := []string{"prov", "city", "district", "road", "poi", "roomno"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestOrderedCategories_UnknownKeysSortLast(t *testing.T) {
	entities := map[string]string{
		"zeta":  "z",
		"alpha": "a",
		"city":  "杭州市",
	}
	got := OrderedCategories(entities)
	want := []string{"city", "alpha", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestOrderedCategories_Deterministic(t *testing.T) {
	entities := map[string]string{
		"prov": "p", "city": "c", "district": "d", "town": "t",
		"road": "r", "roadno": "rn", "poi": "poi", "roomno": "rm",
	}
	first := OrderedCategories(entities)
	for i := 0; i < 20; i++ {
		if got := OrderedCategories(entities); !reflect.DeepEqual(got, first) {
			t.Fatalf("order changed between calls: %v vs %v", first, got)
		}
	}
}

func TestSplitValues(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"文一西路", []string{"文一西路"}},
		{"文一西路, 文二路", []string{"文一西路", "文二路"}},
		{"a,,b", []string{"a", "b"}},
		{" , ", []string{}},
		{"", []string{}},
	}
	for _, c := range cases {
		got := SplitValues(c.raw)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("SplitValues(%q): expected %v, got %v", c.raw, c.want, got)
		}
	}
}

func TestFirst_LeftmostMatch(t *testing.T) {
	text := []rune("杭州市杭州大厦")
	start, end, ok := First(text, "杭州")
	if !ok {
		t.Fatal("expected a match")
	}
	if start != 0 || end != 2 {
		t.Errorf("expected [0,2), got [%d,%d)", start, end)
	}
}

func TestFirst_AbsentValue(t *testing.T) {
	if _, _, ok := First([]rune("杭州市"), "北京"); ok {
		t.Error("expected no match for absent value")
	}
	if _, _, ok := First([]rune("杭州市"), ""); ok {
		t.Error("expected no match for empty value")
	}
}

func TestFind_SkipsConsumedWindow(t *testing.T) {
	// "村" appears at offsets 1 and 2; a second lookup must land on the later one.
	text := []rune("三村村一区")
	used := NewUsed()

	s1, e1, ok := Find(text, "村", 0, used)
	if !ok || s1 != 1 || e1 != 2 {
		t.Fatalf("first find: expected [1,2) ok, got [%d,%d) %v", s1, e1, ok)
	}

	s2, e2, ok := Find(text, "村", 0, used)
	if !ok || s2 != 2 || e2 != 3 {
		t.Fatalf("second find: expected [2,3) ok, got [%d,%d) %v", s2, e2, ok)
	}

	if _, _, ok := Find(text, "村", 0, used); ok {
		t.Error("third find: expected exhaustion")
	}
}

func TestFind_MarksWindow(t *testing.T) {
	text := []rune("文一西路100号")
	used := NewUsed()
	start, end, ok := Find(text, "文一西路", 0, used)
	if !ok {
		t.Fatal("expected a match")
	}
	for i := start; i < end; i++ {
		if !used.Contains(i) {
			t.Errorf("position %d not marked consumed", i)
		}
	}
	if used.Contains(end) {
		t.Errorf("position %d past window marked consumed", end)
	}
}

func TestUsed_Overlaps(t *testing.T) {
	used := NewUsed()
	used.Mark(3, 6)
	if used.Overlaps(0, 3) {
		t.Error("[0,3) should not overlap [3,6)")
	}
	if !used.Overlaps(5, 8) {
		t.Error("[5,8) should overlap [3,6)")
	}
	if used.Overlaps(6, 9) {
		t.Error("[6,9) should not overlap [3,6)")
	}
}

func TestIndex_RuneOffsets(t *testing.T) {
	// Offsets count characters, not bytes.
	text := []rune("浙江省杭州市")
	if got := Index(text, []rune("杭州市"), 0); got != 3 {
		t.Errorf("expected rune offset 3, got %d", got)
	}
	if got := Index(text, []rune("杭州市"), 4); got != -1 {
		t.Errorf("expected -1 past occurrence, got %d", got)
	}
}
