package bioes

import (
	"reflect"
	"testing"
)

func TestDecode_WellFormedSequence(t *testing.T) {
	tokens := []string{"五", "楼", "5", "0", "1"}
	tags := []string{"B-floorno", "E-floorno", "B-roomno", "I-roomno", "E-roomno"}

	got := Decode(tokens, tags)
	if v := got.Values("floorno"); !reflect.DeepEqual(v, []string{"五楼"}) {
		t.Errorf("floorno: expected [五楼], got %v", v)
	}
	if v := got.Values("roomno"); !reflect.DeepEqual(v, []string{"501"}) {
		t.Errorf("roomno: expected [501], got %v", v)
	}
	if cats := got.Categories(); !reflect.DeepEqual(cats, []string{"floorno", "roomno"}) {
		t.Errorf("categories: expected [floorno roomno], got %v", cats)
	}
}

func TestDecode_SingleTag(t *testing.T) {
	got := Decode([]string{"西", "村"}, []string{"S-direction", "O"})
	if v := got.Values("direction"); !reflect.DeepEqual(v, []string{"西"}) {
		t.Errorf("expected [西], got %v", v)
	}
}

func TestDecode_MismatchedCategoryFlushes(t *testing.T) {
	// An I- tag of a different category is a boundary violation: the open
	// partial is kept, and the stray continuation is then ignored from idle.
	tokens := []string{"杭", "州", "市"}
	tags := []string{"B-city", "I-city", "I-district"}

	got := Decode(tokens, tags)
	if v := got.Values("city"); !reflect.DeepEqual(v, []string{"杭州"}) {
		t.Errorf("city: expected [杭州], got %v", v)
	}
	if v := got.Values("district"); v != nil {
		t.Errorf("district: expected nothing, got %v", v)
	}
}

func TestDecode_FreshBeginFlushesOpenEntity(t *testing.T) {
	tokens := []string{"杭", "州", "余", "杭"}
	tags := []string{"B-city", "I-city", "B-district", "E-district"}

	got := Decode(tokens, tags)
	if v := got.Values("city"); !reflect.DeepEqual(v, []string{"杭州"}) {
		t.Errorf("city: expected [杭州], got %v", v)
	}
	if v := got.Values("district"); !reflect.DeepEqual(v, []string{"余杭"}) {
		t.Errorf("district: expected [余杭], got %v", v)
	}
}

func TestDecode_EOFFlushesOpenEntity(t *testing.T) {
	got := Decode([]string{"杭", "州"}, []string{"B-city", "I-city"})
	if v := got.Values("city"); !reflect.DeepEqual(v, []string{"杭州"}) {
		t.Errorf("expected [杭州], got %v", v)
	}
}

func TestDecode_StrayContinuationsIgnored(t *testing.T) {
	got := Decode([]string{"a", "b", "c"}, []string{"I-city", "E-city", "O"})
	if got.Len() != 0 {
		t.Errorf("expected no entities, got %v categories", got.Categories())
	}
}

func TestDecode_RepeatedCategoryAccumulates(t *testing.T) {
	tokens := []string{"一", "路", "x", "二", "路"}
	tags := []string{"B-road", "E-road", "O", "B-road", "E-road"}

	got := Decode(tokens, tags)
	if v := got.Values("road"); !reflect.DeepEqual(v, []string{"一路", "二路"}) {
		t.Errorf("expected [一路 二路], got %v", v)
	}
	if flat := got.Flat(); flat["road"] != "一路, 二路" {
		t.Errorf("flat: expected %q, got %q", "一路, 二路", flat["road"])
	}
}

func TestDecode_MalformedTagShapes(t *testing.T) {
	// Unknown shapes count as O and must not panic.
	tokens := []string{"a", "b", "c", "d"}
	tags := []string{"B-", "X-city", "Bcity", ""}
	got := Decode(tokens, tags)
	if v := got.Values(""); !reflect.DeepEqual(v, []string{"a"}) {
		t.Errorf("B- carries an empty category: expected [a], got %v", v)
	}
}

func TestDecode_LengthMismatchUsesShorter(t *testing.T) {
	got := Decode([]string{"杭", "州", "市"}, []string{"B-city", "E-city"})
	if v := got.Values("city"); !reflect.DeepEqual(v, []string{"杭州"}) {
		t.Errorf("expected [杭州], got %v", v)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	entities := map[string]string{
		"prov":     "浙江省",
		"city":     "杭州市",
		"district": "余杭区",
		"road":     "文一西路",
		"roadno":   "969号",
	}
	text := "浙江省杭州市余杭区文一西路969号"

	seq := Encode(text, entities, nil)
	back := Decode(seq.Tokens, seq.Tags)

	flat := back.Flat()
	for cat, want := range entities {
		if flat[cat] != want {
			t.Errorf("%s: expected %q, got %q", cat, want, flat[cat])
		}
	}
	if len(flat) != len(entities) {
		t.Errorf("expected %d categories, got %d", len(entities), len(flat))
	}
}
