package heap

import "testing"

func str(chars string) *StringObj {
	return &StringObj{header: header{kind: ObjString}, chars: chars, hash: hashString(chars)}
}

func TestTableSetGetDelete(t *testing.T) {
	tbl := NewTable()
	k := str("answer")

	if _, ok := tbl.Get(k); ok {
		t.Fatal("Get on empty table should miss")
	}

	if isNew := tbl.Set(k, Number(42)); !isNew {
		t.Error("Set of a fresh key should report isNew")
	}
	v, ok := tbl.Get(k)
	if !ok || v != Number(42) {
		t.Fatalf("Get = %v, %v; want 42, true", v, ok)
	}

	if isNew := tbl.Set(k, Number(43)); isNew {
		t.Error("Set overwriting an existing key should not report isNew")
	}
	v, _ = tbl.Get(k)
	if v != Number(43) {
		t.Errorf("Get after overwrite = %v, want 43", v)
	}

	if !tbl.Delete(k) {
		t.Error("Delete of a present key should succeed")
	}
	if _, ok := tbl.Get(k); ok {
		t.Error("Get after Delete should miss")
	}
	if tbl.Delete(k) {
		t.Error("Delete of an already-deleted key should report false")
	}
}

func TestTableTombstoneKeepsProbeChainAlive(t *testing.T) {
	tbl := NewTable()
	// Force everything into the same tiny table so collisions are likely,
	// then delete one and confirm a later key can still be found past the
	// tombstone.
	a, b, c := str("a"), str("b"), str("c")
	tbl.Set(a, Number(1))
	tbl.Set(b, Number(2))
	tbl.Set(c, Number(3))

	tbl.Delete(b)

	if v, ok := tbl.Get(a); !ok || v != Number(1) {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if v, ok := tbl.Get(c); !ok || v != Number(3) {
		t.Errorf("Get(c) = %v, %v", v, ok)
	}
	if _, ok := tbl.Get(b); ok {
		t.Error("Get(b) after delete should miss")
	}
}

func TestTableGrowRecomputesLiveCount(t *testing.T) {
	tbl := NewTable()
	keys := make([]*StringObj, 0, 40)
	for i := 0; i < 40; i++ {
		k := str(string(rune('a' + i%26)) + string(rune('0'+i/26)))
		keys = append(keys, k)
		tbl.Set(k, Number(float64(i)))
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		if !ok || v != Number(float64(i)) {
			t.Fatalf("Get(%q) = %v, %v; want %d, true", k.Chars(), v, ok, i)
		}
	}
	if got := tbl.Count(); got != len(keys) {
		t.Errorf("Count() after growth = %d, want %d", got, len(keys))
	}
}

func TestTableFindString(t *testing.T) {
	tbl := NewTable()
	k := str("hello")
	tbl.Set(k, Bool(true))

	if found := tbl.FindString("hello", hashString("hello")); found != k {
		t.Error("FindString should return the exact interned StringObj")
	}
	if found := tbl.FindString("goodbye", hashString("goodbye")); found != nil {
		t.Error("FindString of an absent string should return nil")
	}
}

func TestTableRemoveWhiteDropsUnmarkedKeys(t *testing.T) {
	tbl := NewTable()
	kept := str("kept")
	dropped := str("dropped")
	kept.mark = true
	dropped.mark = false

	tbl.Set(kept, Bool(true))
	tbl.Set(dropped, Bool(true))

	tbl.RemoveWhite()

	if _, ok := tbl.Get(kept); !ok {
		t.Error("RemoveWhite should keep a marked key")
	}
	if _, ok := tbl.Get(dropped); ok {
		t.Error("RemoveWhite should drop an unmarked key")
	}
}

func TestTableAddAll(t *testing.T) {
	// Keys are compared by identity, as interned strings would be, so the
	// lookups reuse the same StringObj values that were inserted.
	x, y := str("x"), str("y")
	src := NewTable()
	src.Set(x, Number(1))
	src.Set(y, Number(2))

	dst := NewTable()
	dst.AddAll(src)

	if v, ok := dst.Get(x); !ok || v != Number(1) {
		t.Errorf("dst.Get(x) = %v, %v", v, ok)
	}
	if v, ok := dst.Get(y); !ok || v != Number(2) {
		t.Errorf("dst.Get(y) = %v, %v", v, ok)
	}
}
