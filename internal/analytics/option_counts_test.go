package analytics

import (
	"encoding/json"
	"testing"
)

func TestOptionCounts_JSONKeepsOrder(t *testing.T) {
	oc := newOptionCounts([]string{"zeta", "alpha", "zeta", "mid"})
	oc.inc("alpha")
	oc.inc("alpha")
	if oc.inc("nope") {
		t.Fatalf("undeclared option must not count")
	}
	b, err := json.Marshal(oc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"zeta":0,"alpha":2,"mid":0}` {
		t.Fatalf("json = %s", b)
	}

	var back OptionCounts
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	keys := back.Keys()
	if len(keys) != 3 || keys[0] != "zeta" || keys[1] != "alpha" || keys[2] != "mid" {
		t.Fatalf("keys = %v", keys)
	}
	if top, n, ok := back.Top(); !ok || top != "alpha" || n != 2 {
		t.Fatalf("top = %s %d %v", top, n, ok)
	}
}

func TestOptionCounts_Empty(t *testing.T) {
	oc := newOptionCounts(nil)
	b, _ := json.Marshal(oc)
	if string(b) != "{}" {
		t.Fatalf("json = %s", b)
	}
	if _, _, ok := oc.Top(); ok {
		t.Fatalf("empty tally has no top option")
	}
	var bad OptionCounts
	if err := json.Unmarshal([]byte(`[1]`), &bad); err == nil {
		t.Fatalf("expected error for non-object")
	}
}
