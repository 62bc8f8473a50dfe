package broker

import "testing"

func TestIdempotencyTableQoSPkid(t *testing.T) {
	tbl := NewIdempotencyTable()

	if tbl.GetQoSPkidData("device-1", 5) {
		t.Fatal("expected no entry before save")
	}

	tbl.SaveQoSPkidData("device-1", 5)
	if !tbl.GetQoSPkidData("device-1", 5) {
		t.Fatal("expected entry to be present after save")
	}
	if tbl.GetQoSPkidData("device-2", 5) {
		t.Fatal("entries are scoped per client_id, not shared")
	}

	tbl.DeleteQoSPkidData("device-1", 5)
	if tbl.GetQoSPkidData("device-1", 5) {
		t.Fatal("expected entry to be gone after delete")
	}
}

func TestIdempotencyTableSubPkid(t *testing.T) {
	tbl := NewIdempotencyTable()

	tbl.SaveSubPkidData("device-1", 9)
	if !tbl.GetSubPkidData("device-1", 9) {
		t.Fatal("expected sub pkid entry to be present")
	}

	tbl.DeleteSubPkidData("device-1", 9)
	if tbl.GetSubPkidData("device-1", 9) {
		t.Fatal("expected sub pkid entry to be gone after delete")
	}
}

func TestIdempotencyTableQoSAndSubAreIndependent(t *testing.T) {
	tbl := NewIdempotencyTable()

	tbl.SaveQoSPkidData("device-1", 1)
	if tbl.GetSubPkidData("device-1", 1) {
		t.Fatal("a qos2 pkid entry must not be visible through the sub table")
	}
}
